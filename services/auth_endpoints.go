package services

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type AuthEndpoints struct {
	authService *AuthService
	limiter     *IPRateLimiter
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func NewAuthEndpoints(authService *AuthService, limiter *IPRateLimiter) *AuthEndpoints {
	return &AuthEndpoints{
		authService: authService,
		limiter:     limiter,
	}
}

func (e *AuthEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		// Public auth routes
		r.With(e.limiter.Middleware).Post("/login", e.LoginHandler)
		r.Post("/refresh", e.RefreshHandler)

		// Protected auth routes
		r.Group(func(r chi.Router) {
			r.Use(e.authService.Middleware)
			r.Post("/logout", e.LogoutHandler)
			r.Get("/me", e.MeHandler)
		})
	})
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	authResponse, err := e.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("Login failed", "error", err, "email", req.Email)
		writeError(w, err)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.Session.AccessToken, authResponse.Session.RefreshToken)
	writeJSON(w, http.StatusOK, authResponse)
}

// RefreshHandler accepts the refresh token in the body or the refresh_token cookie.
func (e *AuthEndpoints) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken = e.authService.GetTokenFromCookie(r, "refresh_token")
	}

	authResponse, err := e.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		slog.Warn("Token refresh failed", "error", err)
		writeError(w, err)
		return
	}

	e.authService.SetAuthCookies(w, authResponse.Session.AccessToken, "")
	writeJSON(w, http.StatusOK, authResponse)
}

func (e *AuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	if user == nil {
		writeError(w, ErrUnauthorized)
		return
	}

	if err := e.authService.Logout(r.Context(), user.ID); err != nil {
		slog.Error("Logout failed", "error", err, "user_id", user.ID)
		writeError(w, err)
		return
	}

	e.authService.ClearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	if user == nil {
		writeError(w, ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
