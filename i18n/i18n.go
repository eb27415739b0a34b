// Package i18n holds the French and German UI strings.
package i18n

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	LoginTitle    = "login.title"
	LoginEmail    = "login.email"
	LoginPassword = "login.password"
	LoginSubmit   = "login.submit"

	DashboardTitle         = "dashboard.title"
	DashboardWelcome       = "dashboard.welcome"
	DashboardClients       = "dashboard.clients"
	DashboardCalls         = "dashboard.calls"
	DashboardCalendar      = "dashboard.calendar"
	DashboardNotifications = "dashboard.notifications"
	DashboardDocuments     = "dashboard.documents"
	DashboardHistory       = "dashboard.history"
	DashboardAnalytics     = "dashboard.analytics"

	UnreadCount = "notifications.unread"
)

// Supported lists the UI languages; the first is the default.
var Supported = []language.Tag{language.French, language.German}

var translations = map[language.Tag]map[string]string{
	language.French: {
		LoginTitle:    "Connexion CRM",
		LoginEmail:    "Email",
		LoginPassword: "Mot de passe",
		LoginSubmit:   "Se connecter",

		DashboardTitle:         "Centre d'Appels",
		DashboardWelcome:       "Bienvenue dans votre espace CRM",
		DashboardClients:       "Clients",
		DashboardCalls:         "Actions",
		DashboardCalendar:      "Calendrier",
		DashboardNotifications: "Notifications",
		DashboardDocuments:     "Documents",
		DashboardHistory:       "Historique",
		DashboardAnalytics:     "Analytique",

		UnreadCount: "%d non lue(s)",
	},
	language.German: {
		LoginTitle:    "CRM Anmeldung",
		LoginEmail:    "E-Mail",
		LoginPassword: "Passwort",
		LoginSubmit:   "Anmelden",

		DashboardTitle:         "Callcenter",
		DashboardWelcome:       "Willkommen in Ihrem CRM-Bereich",
		DashboardClients:       "Kunden",
		DashboardCalls:         "Aktionen",
		DashboardCalendar:      "Kalender",
		DashboardNotifications: "Benachrichtigungen",
		DashboardDocuments:     "Dokumente",
		DashboardHistory:       "Verlauf",
		DashboardAnalytics:     "Analytik",

		UnreadCount: "%d ungelesen",
	},
}

var (
	cat     = buildCatalog()
	matcher = language.NewMatcher(Supported)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(Supported[0]))
	for tag, entries := range translations {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Translator renders UI strings in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language for lang ("fr", "de-CH", ...).
// Unknown or empty values fall back to French.
func New(lang string) *Translator {
	tag := Supported[0]
	if lang != "" {
		if parsed, err := language.Parse(lang); err == nil {
			_, idx, conf := matcher.Match(parsed)
			if conf != language.No {
				tag = Supported[idx]
			}
		}
	}
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

func (t *Translator) Tag() language.Tag { return t.tag }

// Lang returns the base language code, e.g. "fr".
func (t *Translator) Lang() string {
	base, _ := t.tag.Base()
	return base.String()
}

// T formats the message for key.
func (t *Translator) T(key string, args ...interface{}) string {
	return t.printer.Sprintf(key, args...)
}

// Collator orders strings the way a reader of this language expects.
func (t *Translator) Collator() *collate.Collator {
	return collate.New(t.tag, collate.IgnoreCase)
}

// Toggle returns the other supported language, matching the language switch on the dashboard.
func Toggle(lang string) string {
	if New(lang).Lang() == "fr" {
		return "de"
	}
	return "fr"
}
