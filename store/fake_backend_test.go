package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Afefmejri25/crm/backend"
	"github.com/Afefmejri25/crm/models"
)

type fakeAccount struct {
	password string
	user     models.User
	profile  *models.Profile
}

// fakeBackend is an in-memory Backend for one signed-in user at a time.
type fakeBackend struct {
	mu sync.Mutex

	accounts      map[string]*fakeAccount
	session       *models.Session
	clients       []models.Client
	calls         []models.Call
	documents     []models.Document
	notifications []models.Notification
	objects       map[string][]byte
	stats         *models.CallStats
	events        chan models.Event
	clock         time.Time
	seq           int

	getUserErr      error
	signOutErr      error
	createDocErr    error
	notificationErr error
	removeErr       error
	listClients     func() // hook run before ListClients returns
	listNotes       func() // hook run before ListNotifications returns
	signInCalls     int
}

func newFakeBackend() *fakeBackend {
	f := &fakeBackend{
		accounts: map[string]*fakeAccount{},
		objects:  map[string][]byte{},
		clock:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		events:   make(chan models.Event, 8),
	}
	f.addAccount("admin@crm.com", "admin123", models.RoleAdmin)
	f.addAccount("agent@crm.com", "agent123", models.RoleAgent)
	return f
}

func (f *fakeBackend) addAccount(email, password string, role models.Role) string {
	id := fmt.Sprintf("user-%d", len(f.accounts)+1)
	acc := &fakeAccount{password: password, user: models.User{ID: id, Email: email}}
	if role != "" {
		acc.profile = &models.Profile{ID: id, FullName: email, Role: role}
	}
	f.accounts[email] = acc
	return id
}

func (f *fakeBackend) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeBackend) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeBackend) currentUser() (string, error) {
	if f.session == nil {
		return "", backend.ErrNoSession
	}
	return f.session.UserID, nil
}

func (f *fakeBackend) SignIn(ctx context.Context, email, password string) (*backend.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return nil, backend.ErrInvalidCredentials
	}
	f.session = &models.Session{AccessToken: "tok-" + acc.user.ID, RefreshToken: "ref-" + acc.user.ID, UserID: acc.user.ID, ExpiresAt: f.clock.Add(time.Hour)}
	user := acc.user
	return &backend.AuthResult{User: &user, Session: *f.session}, nil
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = nil
	return f.signOutErr
}

func (f *fakeBackend) GetUser(ctx context.Context) (*backend.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	id, err := f.currentUser()
	if err != nil {
		return nil, err
	}
	for _, acc := range f.accounts {
		if acc.user.ID == id {
			return &backend.Identity{ID: id, Email: acc.user.Email}, nil
		}
	}
	return nil, backend.ErrUnauthorized
}

func (f *fakeBackend) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.user.ID == userID && acc.profile != nil {
			p := *acc.profile
			return &p, nil
		}
	}
	return nil, &backend.APIError{Status: 404, Message: "not found"}
}

func (f *fakeBackend) Session() *models.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	s := *f.session
	return &s
}

func (f *fakeBackend) SetSession(s *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s == nil {
		f.session = nil
		return
	}
	cp := *s
	f.session = &cp
}

func (f *fakeBackend) ListClients(ctx context.Context) ([]models.Client, error) {
	f.mu.Lock()
	uid, err := f.currentUser()
	var out []models.Client
	for _, c := range f.clients {
		if c.CreatedBy == uid {
			out = append(out, c)
		}
	}
	hook := f.listClients
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeBackend) CreateClient(ctx context.Context, input models.ClientInput) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.currentUser()
	if err != nil {
		return nil, err
	}
	if input.CompanyName == "" {
		return nil, &backend.APIError{Status: 400, Message: "validation failed: company_name and contact_name are required"}
	}
	c := models.Client{ID: f.nextID("client"), CompanyName: input.CompanyName, ContactName: input.ContactName, CreatedBy: uid, CreatedAt: f.tick()}
	f.clients = append(f.clients, c)
	return &c, nil
}

func (f *fakeBackend) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.clients {
		if f.clients[i].ID == id {
			if patch.CompanyName != nil {
				f.clients[i].CompanyName = *patch.CompanyName
			}
			if patch.Phone != nil {
				f.clients[i].Phone = patch.Phone
			}
			c := f.clients[i]
			return &c, nil
		}
	}
	return nil, &backend.APIError{Status: 404, Message: "not found: client"}
}

func (f *fakeBackend) ListCalls(ctx context.Context, clientID string) ([]models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.currentUser()
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

func (f *fakeBackend) CreateCall(ctx context.Context, input models.CallInput) (*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, err := f.currentUser()
	if err != nil {
		return nil, err
	}
	var client *models.Client
	for _, c := range f.clients {
		if c.ID == input.ClientID {
			client = &models.Client{ID: c.ID, CompanyName: c.CompanyName, ContactName: c.ContactName}
		}
	}
	if client == nil {
		return nil, &backend.APIError{Status: 400, Message: "validation failed: call must reference an existing client"}
	}
	call := models.Call{ID: f.nextID("call"), ClientID: input.ClientID, AgentID: uid, Status: input.Status, Notes: input.Notes, ScheduledCallback: input.ScheduledCallback, CreatedAt: f.tick(), Client: client}
	f.calls = append(f.calls, call)
	return &call, nil
}

func (f *fakeBackend) UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.calls {
		if f.calls[i].ID == id {
			patch.Apply(&f.calls[i])
			c := f.calls[i]
			return &c, nil
		}
	}
	return nil, &backend.APIError{Status: 404}
}

func (f *fakeBackend) ListDocuments(ctx context.Context, query string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.Document
	for _, d := range f.documents {
		desc := ""
		if d.Description != nil {
			desc = *d.Description
		}
		if q == "" || strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(desc), q) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBackend) CreateDocument(ctx context.Context, input models.DocumentInput) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createDocErr != nil {
		return nil, f.createDocErr
	}
	uid, err := f.currentUser()
	if err != nil {
		return nil, err
	}
	if _, ok := f.objects["documents/"+input.FilePath]; !ok {
		return nil, &backend.APIError{Status: 400, Message: "validation failed: file_path does not point to an uploaded object"}
	}
	d := models.Document{ID: f.nextID("doc"), Title: input.Title, Description: input.Description, FilePath: input.FilePath, FileType: input.FileType, FileURL: "http://files/documents/" + input.FilePath, SharedBy: uid, CreatedAt: f.tick()}
	f.documents = append(f.documents, d)
	return &d, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, id string) error {
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

func (f *fakeBackend) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	uid, err := f.currentUser()
	var out []models.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		if f.notifications[i].RecipientID == uid {
			out = append(out, f.notifications[i])
		}
	}
	hook := f.listNotes
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeBackend) CreateNotification(ctx context.Context, input models.NotificationInput) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notificationErr != nil {
		return nil, f.notificationErr
	}
	uid, err := f.currentUser()
	if err != nil {
		return nil, err
	}
	recipient := input.RecipientID
	if recipient == "" {
		recipient = uid
	}
	n := models.Notification{ID: f.nextID("notif"), Title: input.Title, Message: input.Message, RecipientID: recipient, CreatedBy: uid, CreatedAt: f.tick()}
	f.notifications = append(f.notifications, n)
	return &n, nil
}

func (f *fakeBackend) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
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

func (f *fakeBackend) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, _ := f.currentUser()
	var n int64
	for i := range f.notifications {
		if f.notifications[i].RecipientID == uid && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeBackend) Upload(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = body
	return "http://files/" + bucket + "/" + key, nil
}

func (f *fakeBackend) Remove(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.objects[bucket+"/"+key]; !ok {
		return &backend.APIError{Status: 404}
	}
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeBackend) GetCallStats(ctx context.Context) (*models.CallStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats == nil {
		return nil, &backend.APIError{Status: 403, Message: "forbidden"}
	}
	s := *f.stats
	return &s, nil
}

func (f *fakeBackend) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	if f.Session() == nil {
		return nil, backend.ErrNoSession
	}
	return f.events, nil
}

func (f *fakeBackend) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeBackend) notificationsFor(userID string) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.notifications {
		if n.RecipientID == userID {
			out = append(out, n)
		}
	}
	return out
}

// memSessions is an in-memory SessionStorage.
type memSessions struct {
	mu      sync.Mutex
	session *models.Session
	prefs   Preferences
	saves   int
	loadErr error
}

func (m *memSessions) LoadSession() (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *memSessions) SaveSession(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if s == nil {
		m.session = nil
		return nil
	}
	cp := *s
	m.session = &cp
	return nil
}

func (m *memSessions) LoadPreferences() (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs, nil
}

func (m *memSessions) SavePreferences(p Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	return nil
}

var errTransient = errors.New("connection refused")

var (
	_ Backend        = (*fakeBackend)(nil)
	_ SessionStorage = (*memSessions)(nil)
)
