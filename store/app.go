package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Afefmejri25/crm/i18n"
	"github.com/Afefmejri25/crm/models"
)

type View string

const (
	ViewLoading   View = "loading"
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
)

// Tab is one dashboard section.
type Tab struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

var agentTabs = []struct{ id, key string }{
	{"clients", i18n.DashboardClients},
	{"calls", i18n.DashboardCalls},
	{"calendar", i18n.DashboardCalendar},
	{"notifications", i18n.DashboardNotifications},
	{"documents", i18n.DashboardDocuments},
	{"history", i18n.DashboardHistory},
}

// App owns every store and their shared lifecycle. Close cancels the root
// context so requests still in flight stop updating state.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	Auth          *AuthStore
	Clients       *ClientStore
	Calls         *CallStore
	Documents     *DocumentStore
	Notifications *NotificationStore
	History       *HistoryStore
	Analytics     *AnalyticsStore

	api      Backend
	sessions SessionStorage

	mu         sync.Mutex
	translator *i18n.Translator
	closed     bool
}

func NewApp(ctx context.Context, api Backend, sessions SessionStorage) *App {
	ctx, cancel := context.WithCancel(ctx)

	prefs, err := sessions.LoadPreferences()
	if err != nil {
		slog.Warn("Failed to load preferences", "error", err)
	}
	translator := i18n.New(prefs.Lang)

	a := &App{ctx: ctx, cancel: cancel, api: api, sessions: sessions, translator: translator}
	a.Auth = NewAuthStore(api, sessions)
	a.Auth.setTheme(prefs.Theme)
	a.Notifications = NewNotificationStore(api)
	a.Clients = NewClientStore(api, translator.Collator())
	a.Calls = NewCallStore(api, api, a.Notifications.Receive)
	a.Documents = NewDocumentStore(api, api, api, a.Auth.UserID, a.Notifications.Receive)
	a.History = NewHistoryStore(api, api, api, a.Auth.UserID)
	a.Analytics = NewAnalyticsStore(api)
	return a
}

// Context is the root context every store operation should run under.
func (a *App) Context() context.Context { return a.ctx }

// Start resolves the persisted session.
func (a *App) Start() error {
	return a.Auth.CheckUser(a.ctx)
}

// Listen feeds realtime notifications into the notification store until Close.
func (a *App) Listen() error {
	err := a.Notifications.Listen(a.ctx, a.api)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops all stores and saves the preferences. It is safe to call twice.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	lang := a.translator.Lang()
	a.mu.Unlock()

	a.cancel()
	a.Auth.close()
	a.Clients.close()
	a.Calls.close()
	a.Documents.close()
	a.Notifications.close()
	a.History.close()
	a.Analytics.close()

	return a.sessions.SavePreferences(Preferences{Theme: a.Auth.State().Theme, Lang: lang})
}

func (a *App) View() View {
	switch a.Auth.State().Status {
	case StatusAuthenticated:
		return ViewDashboard
	case StatusUnauthenticated:
		return ViewLogin
	default:
		return ViewLoading
	}
}

// Tabs lists the dashboard tabs for the signed-in role. Analytics is admin only.
func (a *App) Tabs() []Tab {
	st := a.Auth.State()
	if st.Status != StatusAuthenticated {
		return nil
	}
	t := a.Translator()
	tabs := make([]Tab, 0, len(agentTabs)+1)
	for _, tab := range agentTabs {
		tabs = append(tabs, Tab{ID: tab.id, Label: t.T(tab.key)})
	}
	if st.Role == models.RoleAdmin {
		tabs = append(tabs, Tab{ID: "analytics", Label: t.T(i18n.DashboardAnalytics)})
	}
	return tabs
}

func (a *App) Translator() *i18n.Translator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.translator
}

// SetLang switches the UI language for the rest of the run; Close persists it.
func (a *App) SetLang(lang string) {
	t := i18n.New(lang)
	a.mu.Lock()
	a.translator = t
	a.mu.Unlock()
	a.Clients.setCollator(t.Collator())
}
