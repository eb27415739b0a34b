package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Afefmejri25/crm/backend"
	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/store"
)

// fakeAPI is an in-memory store.Backend shared by consecutive command runs.
type fakeAPI struct {
	mu sync.Mutex

	users   map[string]models.User // by email
	roles   map[string]models.Role // by user id
	session *models.Session

	clients       []models.Client
	calls         []models.Call
	documents     []models.Document
	notifications []models.Notification
	objects       map[string]int
	events        chan models.Event
	clock         time.Time
	seq           int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users: map[string]models.User{
			"admin@crm.com": {ID: "u-admin", Email: "admin@crm.com", Password: "admin123"},
			"agent@crm.com": {ID: "u-agent", Email: "agent@crm.com", Password: "agent123"},
		},
		roles:   map[string]models.Role{"u-admin": models.RoleAdmin, "u-agent": models.RoleAgent},
		objects: map[string]int{},
		events:  make(chan models.Event, 4),
		clock:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAPI) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeAPI) now() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeAPI) uid() (string, error) {
	if f.session == nil {
		return "", backend.ErrNoSession
	}
	return f.session.UserID, nil
}

func (f *fakeAPI) SignIn(ctx context.Context, email, password string) (*backend.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.Password != password {
		return nil, backend.ErrInvalidCredentials
	}
	f.session = &models.Session{AccessToken: "tok-" + u.ID, RefreshToken: "ref-" + u.ID, UserID: u.ID, ExpiresAt: f.clock.Add(time.Hour)}
	return &backend.AuthResult{User: &models.User{ID: u.ID, Email: u.Email}, Session: *f.session}, nil
}

func (f *fakeAPI) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return nil
}

func (f *fakeAPI) GetUser(ctx context.Context) (*backend.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.ID == uid {
			return &backend.Identity{ID: u.ID, Email: u.Email}, nil
		}
	}
	return nil, &backend.APIError{Status: 401}
}

func (f *fakeAPI) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[userID]
	if !ok {
		return nil, &backend.APIError{Status: 404}
	}
	return &models.Profile{ID: userID, Role: role}, nil
}

func (f *fakeAPI) Session() *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	s := *f.session
	return &s
}

func (f *fakeAPI) SetSession(s *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

func (f *fakeAPI) ListClients(ctx context.Context) ([]models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	var out []models.Client
	for _, c := range f.clients {
		if c.CreatedBy == uid || f.roles[uid] == models.RoleAdmin {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateClient(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	c := models.Client{ID: f.id("client"), CompanyName: in.CompanyName, ContactName: in.ContactName, Email: in.Email, Phone: in.Phone, Region: in.Region, CreatedBy: uid, CreatedAt: f.now()}
	f.clients = append(f.clients, c)
	return &c, nil
}

func (f *fakeAPI) UpdateClient(ctx context.Context, id string, p models.ClientPatch) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.clients {
		if f.clients[i].ID != id {
			continue
		}
		if p.CompanyName != nil {
			f.clients[i].CompanyName = *p.CompanyName
		}
		if p.Phone != nil {
			f.clients[i].Phone = p.Phone
		}
		c := f.clients[i]
		return &c, nil
	}
	return nil, &backend.APIError{Status: 404, Message: "not found: client"}
}

func (f *fakeAPI) ListCalls(ctx context.Context, clientID string) ([]models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	var out []models.Call
	for i := len(f.calls) - 1; i >= 0; i-- {
		c := f.calls[i]
		if c.AgentID == uid && (clientID == "" || c.ClientID == clientID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateCall(ctx context.Context, in models.CallInput) (*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	for _, cl := range f.clients {
		if cl.ID == in.ClientID {
			call := models.Call{ID: f.id("call"), ClientID: cl.ID, AgentID: uid, Status: in.Status, Notes: in.Notes, ScheduledCallback: in.ScheduledCallback, CreatedAt: f.now(),
				Client: &models.Client{ID: cl.ID, CompanyName: cl.CompanyName, ContactName: cl.ContactName}}
			f.calls = append(f.calls, call)
			return &call, nil
		}
	}
	return nil, &backend.APIError{Status: 400, Message: "validation failed: call must reference an existing client"}
}

func (f *fakeAPI) UpdateCall(ctx context.Context, id string, p models.CallPatch) (*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.calls {
		if f.calls[i].ID != id {
			continue
		}
		p.Apply(&f.calls[i])
		c := f.calls[i]
		return &c, nil
	}
	return nil, &backend.APIError{Status: 404}
}

func (f *fakeAPI) ListDocuments(ctx context.Context, query string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for i := len(f.documents) - 1; i >= 0; i-- {
		d := f.documents[i]
		if query == "" || strings.Contains(strings.ToLower(d.Title), strings.ToLower(query)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateDocument(ctx context.Context, in models.DocumentInput) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	d := models.Document{ID: f.id("doc"), Title: in.Title, Description: in.Description, FilePath: in.FilePath, FileType: in.FileType, FileURL: "http://files/" + in.FilePath, SharedBy: uid, CreatedAt: f.now()}
	f.documents = append(f.documents, d)
	return &d, nil
}

func (f *fakeAPI) DeleteDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.documents {
		if d.ID == id {
			f.documents = append(f.documents[:i], f.documents[i+1:]...)
			return nil
		}
	}
	return &backend.APIError{Status: 404}
}

func (f *fakeAPI) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	var out []models.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		if f.notifications[i].RecipientID == uid {
			out = append(out, f.notifications[i])
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateNotification(ctx context.Context, in models.NotificationInput) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.uid()
	if err != nil {
		return nil, err
	}
	n := models.Notification{ID: f.id("notif"), Title: in.Title, Message: in.Message, RecipientID: in.RecipientID, CreatedBy: uid, CreatedAt: f.now()}
	f.notifications = append(f.notifications, n)
	return &n, nil
}

func (f *fakeAPI) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].IsRead = true
			n := f.notifications[i]
			return &n, nil
		}
	}
	return nil, &backend.APIError{Status: 404}
}

func (f *fakeAPI) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, _ := f.uid()
	var n int64
	for i := range f.notifications {
		if f.notifications[i].RecipientID == uid && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeAPI) Upload(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = len(body)
	return "http://files/" + bucket + "/" + key, nil
}

func (f *fakeAPI) Remove(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeAPI) GetCallStats(ctx context.Context) (*models.CallStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, _ := f.uid()
	if f.roles[uid] != models.RoleAdmin {
		return nil, &backend.APIError{Status: 403, Message: "forbidden"}
	}
	stats := &models.CallStats{CallsByStatus: map[models.CallStatus]int64{}}
	for _, c := range f.calls {
		stats.TotalCalls++
		stats.CallsByStatus[c.Status]++
		if c.Status == models.CallStatusSuccess {
			stats.SuccessfulCalls++
		}
	}
	if stats.TotalCalls > 0 {
		stats.SuccessRate = float64(stats.SuccessfulCalls) / float64(stats.TotalCalls) * 100
	}
	return stats, nil
}

func (f *fakeAPI) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	return f.events, nil
}

func (f *fakeAPI) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// memStorage keeps the session and preferences between command runs.
type memStorage struct {
	mu      sync.Mutex
	session *models.Session
	prefs   store.Preferences
}

func (m *memStorage) LoadSession() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memStorage) SaveSession(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = s
	return nil
}

func (m *memStorage) LoadPreferences() (store.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *memStorage) SavePreferences(p store.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	return nil
}

var (
	_ store.Backend        = (*fakeAPI)(nil)
	_ store.SessionStorage = (*memStorage)(nil)
)
