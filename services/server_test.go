package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/storage"
	ws "github.com/Afefmejri25/crm/websocket"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	repo    *memRepo
	server  *Server
	hub     *ws.Hub
	handler http.Handler
	objects *storage.FileStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newMemRepo()
	require.NoError(t, NewDatabaseSeeder(repo).SeedDatabase(context.Background()))

	objects, err := storage.NewFileStorage(t.TempDir(), "http://crm.test")
	require.NoError(t, err)

	hub := ws.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	cfg := &Config{
		JWT:  JWTConfig{Secret: "test-secret"},
		Auth: AuthConfig{LoginRatePerMinute: 600, LoginBurst: 100},
	}
	srv := NewServer(cfg, Deps{Repo: repo, Analytics: repo, Objects: objects, Hub: hub})
	return &testEnv{repo: repo, server: srv, hub: hub, handler: srv.SetupRoutes(), objects: objects}
}

// addUser creates a user with a profile; an empty role skips the profile.
func (e *testEnv) addUser(t *testing.T, email, password string, role models.Role) string {
	t.Helper()
	hashed, err := HashPassword(password)
	require.NoError(t, err)
	user := &models.User{Email: email, Password: hashed}
	require.NoError(t, e.repo.CreateUser(context.Background(), user))
	if role != "" {
		require.NoError(t, e.repo.UpsertProfile(context.Background(), &models.Profile{ID: user.ID, FullName: email, Role: role}))
	}
	return user.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = strings.NewReader(raw)
		} else {
			payload, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(payload)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) AuthResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{name: "seeded admin", email: "admin@crm.com", password: "admin123", wantStatus: http.StatusOK},
		{name: "seeded agent", email: "agent@crm.com", password: "agent123", wantStatus: http.StatusOK},
		{name: "email is case-insensitive", email: "Admin@CRM.com", password: "admin123", wantStatus: http.StatusOK},
		{name: "wrong password", email: "admin@crm.com", password: "nope", wantStatus: http.StatusUnauthorized},
		{name: "unknown user", email: "ghost@crm.com", password: "admin123", wantStatus: http.StatusUnauthorized},
		{name: "missing fields", email: "", password: "", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: tt.email, Password: tt.password})
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				resp := decode[AuthResponse](t, rec)
				assert.NotEmpty(t, resp.Session.AccessToken)
				assert.NotEmpty(t, resp.Session.RefreshToken)
				assert.Equal(t, resp.User.ID, resp.Session.UserID)
				assert.True(t, resp.Session.ExpiresAt.After(time.Now()))
				assert.NotContains(t, rec.Body.String(), "password")
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestMeReportsProfileRole(t *testing.T) {
	env := newTestEnv(t)

	admin := env.login(t, "admin@crm.com", "admin123")
	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", admin.Session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct{ User AuthUser }](t, rec)
	assert.Equal(t, models.RoleAdmin, me.User.Role)
	assert.Equal(t, "admin@crm.com", me.User.Email)

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "agent@crm.com", "agent123").Session

	rec := env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := decode[AuthResponse](t, rec)
	assert.NotEmpty(t, refreshed.Session.AccessToken)
	assert.Equal(t, session.RefreshToken, refreshed.Session.RefreshToken)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshFromCookie(t *testing.T) {
	env := newTestEnv(t)
	session := env.login(t, "agent@crm.com", "agent123").Session

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: session.RefreshToken})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "access_token=")
}

func TestUserWithoutProfileCannotReachData(t *testing.T) {
	env := newTestEnv(t)
	id := env.addUser(t, "orphan@crm.com", "orphan123", "")
	token := env.login(t, "orphan@crm.com", "orphan123").Session.AccessToken

	rec := env.do(t, http.MethodGet, "/api/v1/profiles/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/clients", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProfileAccess(t *testing.T) {
	env := newTestEnv(t)
	otherID := env.addUser(t, "other@crm.com", "other123", models.RoleAgent)
	agent := env.login(t, "agent@crm.com", "agent123")
	admin := env.login(t, "admin@crm.com", "admin123")

	rec := env.do(t, http.MethodGet, "/api/v1/profiles/"+agent.User.ID, agent.Session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleAgent, decode[models.Profile](t, rec).Role)

	rec = env.do(t, http.MethodGet, "/api/v1/profiles/"+otherID, agent.Session.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/profiles/"+otherID, admin.Session.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "other@crm.com", "other123", models.RoleAgent)
	agent := env.login(t, "agent@crm.com", "agent123").Session.AccessToken
	other := env.login(t, "other@crm.com", "other123").Session.AccessToken
	admin := env.login(t, "admin@crm.com", "admin123").Session.AccessToken

	rec := env.do(t, http.MethodPost, "/api/v1/clients", other, models.ClientInput{CompanyName: "Zeta SA", ContactName: "Zoe"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Client](t, rec)

	rec = env.do(t, http.MethodGet, "/api/v1/clients", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range decode[[]models.Client](t, rec) {
		assert.NotEqual(t, created.ID, c.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/clients/"+created.ID, agent, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	name := "Hijacked"
	rec = env.do(t, http.MethodPatch, "/api/v1/clients/"+created.ID, agent, models.ClientPatch{CompanyName: &name})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/clients", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Client](t, rec), 4)
}

func TestClientValidationAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123").Session.AccessToken

	rec := env.do(t, http.MethodPost, "/api/v1/clients", agent, models.ClientInput{CompanyName: "  ", ContactName: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/clients", agent, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/clients", agent, models.ClientInput{CompanyName: "Acme", ContactName: "Ann"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Client](t, rec)

	phone := "+33 1 23 45 67 89"
	rec = env.do(t, http.MethodPatch, "/api/v1/clients/"+created.ID, agent, models.ClientPatch{Phone: &phone})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Client](t, rec)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, phone, *updated.Phone)
	assert.Equal(t, "Acme", updated.CompanyName)
}

func TestCallsRequireVisibleClient(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123")
	token := agent.Session.AccessToken

	rec := env.do(t, http.MethodGet, "/api/v1/clients", token, nil)
	clients := decode[[]models.Client](t, rec)
	require.NotEmpty(t, clients)

	rec = env.do(t, http.MethodPost, "/api/v1/calls", token, models.CallInput{ClientID: "4f1c2a9e-0000-4000-8000-000000000000", Status: models.CallStatusSuccess})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/calls", token, models.CallInput{ClientID: clients[0].ID, Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	when := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec = env.do(t, http.MethodPost, "/api/v1/calls", token, models.CallInput{ClientID: clients[0].ID, Status: models.CallStatusCallback, ScheduledCallback: &when})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	call := decode[models.Call](t, rec)
	assert.Equal(t, agent.User.ID, call.AgentID)
	require.NotNil(t, call.Client)
	assert.Equal(t, clients[0].CompanyName, call.Client.CompanyName)

	rec = env.do(t, http.MethodGet, "/api/v1/calls?client_id="+clients[0].ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Call](t, rec), 1)

	status := models.CallStatusSuccess
	rec = env.do(t, http.MethodPatch, "/api/v1/calls/"+call.ID, token, models.CallPatch{Status: &status})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Call](t, rec)
	assert.Equal(t, models.CallStatusSuccess, updated.Status)
	assert.Nil(t, updated.ScheduledCallback, "a call that is no longer a callback keeps no schedule")

	env.addUser(t, "other@crm.com", "other123", models.RoleAgent)
	other := env.login(t, "other@crm.com", "other123").Session.AccessToken
	rec = env.do(t, http.MethodGet, "/api/v1/calls/"+call.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodPatch, "/api/v1/calls/"+call.ID, other, models.CallPatch{Status: &status})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationsAreRecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123")
	admin := env.login(t, "admin@crm.com", "admin123")

	rec := env.do(t, http.MethodPost, "/api/v1/notifications", agent.Session.AccessToken,
		models.NotificationInput{Title: "Hi", Message: "to admin", RecipientID: admin.User.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/notifications", admin.Session.AccessToken,
		models.NotificationInput{Title: "Hi", Message: "nobody", RecipientID: "4f1c2a9e-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/notifications", admin.Session.AccessToken,
		models.NotificationInput{Title: "Team", Message: "standup", RecipientID: agent.User.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	n := decode[models.Notification](t, rec)
	assert.Equal(t, admin.User.ID, n.CreatedBy)
	assert.False(t, n.IsRead)

	rec = env.do(t, http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", admin.Session.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/notifications/"+n.ID+"/read", agent.Session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Notification](t, rec).IsRead)

	rec = env.do(t, http.MethodGet, "/api/v1/notifications", admin.Session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Notification](t, rec))
}

func TestMarkAllRead(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123").Session.AccessToken

	for _, title := range []string{"a", "b", "c"} {
		rec := env.do(t, http.MethodPost, "/api/v1/notifications", agent, models.NotificationInput{Title: title, Message: title})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/notifications/read-all", agent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[map[string]int64](t, rec)["updated"])

	rec = env.do(t, http.MethodGet, "/api/v1/notifications", agent, nil)
	for _, n := range decode[[]models.Notification](t, rec) {
		assert.True(t, n.IsRead)
	}
}

func TestDocumentUploadFlow(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123")
	token := agent.Session.AccessToken
	key := agent.User.ID + "/brochure.pdf"

	rec := env.do(t, http.MethodPost, "/api/v1/documents", token, models.DocumentInput{Title: "Brochure", FilePath: key})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "metadata without an uploaded object is rejected")

	rec = env.do(t, http.MethodPut, "/api/v1/storage/documents/someone-else/brochure.pdf", token, "%PDF")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/storage/documents/"+key, "", "%PDF")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/storage/documents/"+key, token, "%PDF")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	upload := decode[map[string]string](t, rec)
	assert.Equal(t, "http://crm.test/api/v1/storage/documents/"+key, upload["url"])

	rec = env.do(t, http.MethodGet, "/api/v1/storage/documents/"+key, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF", rec.Body.String())

	desc := "Spring catalogue"
	rec = env.do(t, http.MethodPost, "/api/v1/documents", token, models.DocumentInput{Title: "Brochure", Description: &desc, FilePath: key, FileType: "application/pdf"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[models.Document](t, rec)
	assert.Equal(t, upload["url"], doc.FileURL)
	assert.Equal(t, agent.User.ID, doc.SharedBy)

	rec = env.do(t, http.MethodGet, "/api/v1/documents?q=CATALOGUE", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Document](t, rec), 1)

	rec = env.do(t, http.MethodGet, "/api/v1/documents?q=invoice", token, nil)
	assert.Empty(t, decode[[]models.Document](t, rec))

	env.addUser(t, "other@crm.com", "other123", models.RoleAgent)
	other := env.login(t, "other@crm.com", "other123").Session.AccessToken
	rec = env.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/documents/"+doc.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/v1/storage/documents/"+key, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/storage/documents/"+key, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123").Session.AccessToken
	admin := env.login(t, "admin@crm.com", "admin123").Session.AccessToken

	rec := env.do(t, http.MethodGet, "/api/v1/analytics/calls", agent, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/analytics/calls", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.CallStats](t, rec)
	assert.Zero(t, stats.TotalCalls)
	assert.Zero(t, stats.SuccessRate)

	clients := decode[[]models.Client](t, env.do(t, http.MethodGet, "/api/v1/clients", agent, nil))
	for _, status := range []models.CallStatus{models.CallStatusSuccess, models.CallStatusSuccess, models.CallStatusNoAnswer, models.CallStatusCallback} {
		rec := env.do(t, http.MethodPost, "/api/v1/calls", agent, models.CallInput{ClientID: clients[0].ID, Status: status})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	stats = decode[models.CallStats](t, env.do(t, http.MethodGet, "/api/v1/analytics/calls", admin, nil))
	assert.Equal(t, int64(4), stats.TotalCalls)
	assert.Equal(t, int64(2), stats.SuccessfulCalls)
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
	require.Len(t, stats.CallsByAgent, 1)
	assert.Equal(t, "Agent User", stats.CallsByAgent[0].AgentName)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"not configured","documents":{"objects":0,"bytes":0}}`, rec.Body.String())

	_, err := env.objects.Put(context.Background(), models.DocumentsBucket, "u1/tarifs.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/health", "", nil)
	assert.JSONEq(t, `{"status":"ok","database":"not configured","documents":{"objects":1,"bytes":8}}`, rec.Body.String())
}

func TestShutdownIsAnnouncedToSubscribers(t *testing.T) {
	env := newTestEnv(t)
	agent := env.login(t, "agent@crm.com", "agent123")

	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	header := http.Header{"Authorization": []string{"Bearer " + agent.Session.AccessToken}}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return env.hub.ConnectedUsers()[agent.User.ID] == 1
	}, 2*time.Second, 10*time.Millisecond)

	env.server.announceShutdown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, models.EventServerShutdown, event.Type)
	assert.Nil(t, event.Notification)
}

func TestLoginIsRateLimited(t *testing.T) {
	repo := newMemRepo()
	srv := NewServer(&Config{JWT: JWTConfig{Secret: "s"}, Auth: AuthConfig{LoginRatePerMinute: 1, LoginBurst: 2}}, Deps{Repo: repo})
	h := srv.SetupRoutes()

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}
