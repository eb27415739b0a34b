package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Afefmejri25/crm/backend"
	"github.com/Afefmejri25/crm/models"
)

type AuthStatus string

const (
	StatusUninitialized   AuthStatus = "uninitialized"
	StatusLoading         AuthStatus = "loading"
	StatusAuthenticated   AuthStatus = "authenticated"
	StatusUnauthenticated AuthStatus = "unauthenticated"
)

var (
	ErrAlreadySignedIn = errors.New("already signed in")
	ErrNotReady        = errors.New("session check still in progress")
	ErrNoRole          = errors.New("account has no admin or agent role")
)

// AuthState is a snapshot of the signed-in identity. User, Session and Role are
// either all set (authenticated) or all empty.
type AuthState struct {
	Status  AuthStatus
	User    *backend.Identity
	Profile *models.Profile
	Session *models.Session
	Role    models.Role
	Loading bool
	Error   string
	Theme   Theme
}

func (s AuthState) IsAdmin() bool { return s.Role == models.RoleAdmin }

type AuthStore struct {
	observable[AuthState]
	api      AuthBackend
	sessions SessionStorage
	check    sync.Once
}

func NewAuthStore(api AuthBackend, sessions SessionStorage) *AuthStore {
	s := &AuthStore{api: api, sessions: sessions}
	s.state = AuthState{Status: StatusUninitialized, Theme: ThemeLight}
	return s
}

func (s *AuthStore) State() AuthState { return s.snapshot() }

// UserID returns the signed-in user's id, or "".
func (s *AuthStore) UserID() string {
	st := s.snapshot()
	if st.User == nil {
		return ""
	}
	return st.User.ID
}

// CheckUser restores the persisted session once at startup. Later calls return
// immediately. Loading ends exactly once whatever the outcome.
func (s *AuthStore) CheckUser(ctx context.Context) error {
	var err error
	s.check.Do(func() {
		err = s.checkUser(ctx)
	})
	return err
}

func (s *AuthStore) checkUser(ctx context.Context) error {
	s.set(func(st *AuthState) {
		st.Status = StatusLoading
		st.Loading = true
	})

	session, err := s.sessions.LoadSession()
	if err != nil {
		slog.Warn("Failed to load persisted session", "error", err)
	}
	if session == nil {
		s.finishUnauthenticated("")
		return nil
	}

	s.api.SetSession(session)
	identity, err := s.api.GetUser(ctx)
	var profile *models.Profile
	if err == nil {
		profile, err = s.resolve(ctx, identity)
	}
	if err != nil {
		if backend.IsUnauthorized(err) {
			// The server rejected the session; transient failures keep it for the next start.
			s.forgetSession()
		}
		s.finishUnauthenticated(err.Error())
		return err
	}

	// GetUser may have refreshed the access token.
	if current := s.api.Session(); current != nil {
		session = current
	}
	s.finishAuthenticated(identity, profile, session)
	return nil
}

// SignIn is only accepted while signed out. The previous state is kept on failure
// apart from Error.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) error {
	var rejected error
	s.set(func(st *AuthState) {
		switch {
		case st.Status == StatusAuthenticated:
			rejected = ErrAlreadySignedIn
		case st.Status != StatusUnauthenticated || st.Loading:
			rejected = ErrNotReady
		default:
			st.Loading = true
		}
	})
	if rejected != nil {
		return rejected
	}

	result, err := s.api.SignIn(ctx, email, password)
	if err != nil {
		s.set(func(st *AuthState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	identity := &backend.Identity{ID: result.User.ID, Email: result.User.Email}
	profile, err := s.resolve(ctx, identity)
	if err != nil {
		// Never expose a user without a role.
		if signOutErr := s.api.SignOut(ctx); signOutErr != nil {
			slog.Warn("Failed to revoke session without role", "error", signOutErr)
		}
		s.set(func(st *AuthState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}
	session := result.Session
	if err := s.sessions.SaveSession(&session); err != nil {
		slog.Warn("Failed to persist session", "error", err)
	}
	s.finishAuthenticated(identity, profile, &session)
	slog.Info("Signed in", "user_id", identity.ID, "role", profile.Role)
	return nil
}

// SignOut clears the local identity even when the server call fails; the
// failure is kept in Error.
func (s *AuthStore) SignOut(ctx context.Context) error {
	if s.snapshot().Status != StatusAuthenticated {
		return nil
	}

	err := s.api.SignOut(ctx)
	s.forgetSession()
	s.set(func(st *AuthState) {
		st.Status = StatusUnauthenticated
		st.User = nil
		st.Profile = nil
		st.Session = nil
		st.Role = ""
		st.Loading = false
		st.Error = ""
		if err != nil {
			st.Error = err.Error()
		}
	})
	return err
}

func (s *AuthStore) ToggleTheme() Theme {
	var theme Theme
	s.set(func(st *AuthState) {
		if st.Theme == ThemeDark {
			st.Theme = ThemeLight
		} else {
			st.Theme = ThemeDark
		}
		theme = st.Theme
	})
	return theme
}

func (s *AuthStore) setTheme(theme Theme) {
	if theme != ThemeDark {
		theme = ThemeLight
	}
	s.set(func(st *AuthState) { st.Theme = theme })
}

// resolve loads the profile of identity and checks its role. On success the
// identity carries the profile role.
func (s *AuthStore) resolve(ctx context.Context, identity *backend.Identity) (*models.Profile, error) {
	profile, err := s.api.GetProfile(ctx, identity.ID)
	if errors.Is(err, backend.ErrNotFound) || (err == nil && !profile.Role.Valid()) {
		return nil, ErrNoRole
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	identity.Role = profile.Role
	return profile, nil
}

func (s *AuthStore) forgetSession() {
	s.api.SetSession(nil)
	if err := s.sessions.SaveSession(nil); err != nil {
		slog.Warn("Failed to clear persisted session", "error", err)
	}
}

func (s *AuthStore) finishAuthenticated(identity *backend.Identity, profile *models.Profile, session *models.Session) {
	s.set(func(st *AuthState) {
		st.Status = StatusAuthenticated
		st.User = identity
		st.Profile = profile
		st.Session = session
		st.Role = profile.Role
		st.Loading = false
		st.Error = ""
	})
}

func (s *AuthStore) finishUnauthenticated(msg string) {
	s.set(func(st *AuthState) {
		st.Status = StatusUnauthenticated
		st.User = nil
		st.Profile = nil
		st.Session = nil
		st.Role = ""
		st.Loading = false
		st.Error = msg
	})
}
