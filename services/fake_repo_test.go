package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/repository"
	"github.com/google/uuid"
)

// memRepo is an in-memory Repository for handler tests.
type memRepo struct {
	mu            sync.Mutex
	users         map[string]*models.User
	profiles      map[string]*models.Profile
	tokens        map[string]*models.RefreshToken
	clients       map[string]*models.Client
	calls         map[string]*models.Call
	documents     map[string]*models.Document
	notifications map[string]*models.Notification
	clock         time.Time
	getClientErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:         map[string]*models.User{},
		profiles:      map[string]*models.Profile{},
		tokens:        map[string]*models.RefreshToken{},
		clients:       map[string]*models.Client{},
		calls:         map[string]*models.Call{},
		documents:     map[string]*models.Document{},
		notifications: map[string]*models.Notification{},
		clock:         time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (m *memRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memRepo) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = uuid.New().String()
	user.CreatedAt = m.tick()
	u := *user
	m.users[u.ID] = &u
	return nil
}

func (m *memRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *memRepo) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *profile
	m.profiles[p.ID] = &p
	return nil
}

func (m *memRepo) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (m *memRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := *token
	m.tokens[t.Token] = &t
	return nil
}

func (m *memRepo) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[token]; ok && t.ExpiresAt.After(time.Now()) {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (m *memRepo) DeleteAllUserTokens(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *memRepo) CreateClient(ctx context.Context, client *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	client.ID = uuid.New().String()
	client.CreatedAt = m.tick()
	client.UpdatedAt = client.CreatedAt
	c := *client
	m.clients[c.ID] = &c
	return nil
}

func (m *memRepo) GetClient(ctx context.Context, id string) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getClientErr != nil {
		return nil, m.getClientErr
	}
	if c, ok := m.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) ListClients(ctx context.Context, filter repository.ClientFilter) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Client{}
	for _, c := range m.clients {
		if filter.CreatedBy == "" || c.CreatedBy == filter.CreatedBy {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyName < out[j].CompanyName })
	return out, nil
}

func (m *memRepo) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, nil
	}
	if patch.CompanyName != nil {
		c.CompanyName = *patch.CompanyName
	}
	if patch.ContactName != nil {
		c.ContactName = *patch.ContactName
	}
	if patch.Email != nil {
		c.Email = patch.Email
	}
	if patch.Phone != nil {
		c.Phone = patch.Phone
	}
	if patch.Region != nil {
		c.Region = patch.Region
	}
	c.UpdatedAt = m.tick()
	cp := *c
	return &cp, nil
}

func (m *memRepo) withClient(call models.Call) models.Call {
	if c, ok := m.clients[call.ClientID]; ok {
		call.Client = &models.Client{ID: c.ID, CompanyName: c.CompanyName, ContactName: c.ContactName}
	}
	return call
}

func (m *memRepo) CreateCall(ctx context.Context, call *models.Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call.ID = uuid.New().String()
	call.CreatedAt = m.tick()
	c := *call
	c.Client = nil
	m.calls[c.ID] = &c
	return nil
}

func (m *memRepo) GetCall(ctx context.Context, id string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.calls[id]; ok {
		cp := m.withClient(*c)
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) ListCalls(ctx context.Context, filter repository.CallFilter) ([]models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Call{}
	for _, c := range m.calls {
		if filter.AgentID != "" && c.AgentID != filter.AgentID {
			continue
		}
		if filter.ClientID != "" && c.ClientID != filter.ClientID {
			continue
		}
		out = append(out, m.withClient(*c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(c)
	cp := m.withClient(*c)
	return &cp, nil
}

func (m *memRepo) CreateDocument(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc.ID = uuid.New().String()
	doc.CreatedAt = m.tick()
	d := *doc
	m.documents[d.ID] = &d
	return nil
}

func (m *memRepo) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.documents[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) ListDocuments(ctx context.Context, query string) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Document{}
	for _, d := range m.documents {
		desc := ""
		if d.Description != nil {
			desc = *d.Description
		}
		if q == "" || strings.Contains(strings.ToLower(d.Title), q) || strings.Contains(strings.ToLower(desc), q) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) DeleteDocument(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

func (m *memRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New().String()
	n.CreatedAt = m.tick()
	cp := *n
	m.notifications[cp.ID] = &cp
	return nil
}

func (m *memRepo) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (m *memRepo) ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.notifications {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, nil
	}
	n.IsRead = true
	cp := *n
	return &cp, nil
}

func (m *memRepo) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

// GetCallStats lets memRepo double as the analytics repository.
func (m *memRepo) GetCallStats(ctx context.Context) (*models.CallStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.CallStats{CallsByStatus: map[models.CallStatus]int64{}, CallsByAgent: []models.AgentCallCount{}}
	byAgent := map[string]int64{}
	for _, c := range m.calls {
		stats.TotalCalls++
		stats.CallsByStatus[c.Status]++
		byAgent[c.AgentID]++
	}
	for id, count := range byAgent {
		name := ""
		if p, ok := m.profiles[id]; ok {
			name = p.FullName
		}
		stats.CallsByAgent = append(stats.CallsByAgent, models.AgentCallCount{AgentID: id, AgentName: name, TotalCalls: count})
	}
	repository.FinalizeCallStats(stats)
	return stats, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]interface{}
}

func (p *recordingPublisher) SendToUser(userID string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]interface{}{}
	}
	p.events[userID] = append(p.events[userID], v)
	return nil
}

func (p *recordingPublisher) count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID])
}
