package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Afefmejri25/crm/models"
)

// AuthResult is what the server returns on sign-in and refresh.
type AuthResult struct {
	User    *models.User   `json:"user"`
	Session models.Session `json:"session"`
}

// Identity is the caller as the server resolves it on each request.
type Identity struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role,omitempty"`
}

// SignIn exchanges credentials for a session and installs it.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	req.noRefresh = true

	var result AuthResult
	if err := c.do(ctx, req, &result); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if result.User == nil || result.Session.AccessToken == "" {
		return nil, fmt.Errorf("sign-in response is missing the session")
	}

	c.replaceSession(&result.Session)
	return &result, nil
}

// SignOut revokes the refresh tokens on the server. The local session is dropped
// even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.replaceSession(nil)
	if c.accessToken() == "" {
		return nil
	}
	req := request{method: http.MethodPost, path: "/auth/logout", noRefresh: true}
	return c.do(ctx, req, nil)
}

// Refresh trades the refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) (*models.Session, error) {
	current := c.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	req, err := jsonRequest(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": current.RefreshToken})
	if err != nil {
		return nil, err
	}
	req.noRefresh = true

	var result AuthResult
	if err := c.do(ctx, req, &result); err != nil {
		return nil, err
	}

	next := result.Session
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	c.replaceSession(&next)
	return &next, nil
}

// GetUser resolves the current session to an identity. The access token is
// refreshed transparently when it has expired.
func (c *Client) GetUser(ctx context.Context) (*Identity, error) {
	if c.Session() == nil {
		return nil, ErrNoSession
	}
	var payload struct {
		User Identity `json:"user"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &payload); err != nil {
		return nil, err
	}
	return &payload.User, nil
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: "/profiles/" + userID}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
