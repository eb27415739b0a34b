package services

import (
	"context"
	"net/http"
	"slices"

	"github.com/Afefmejri25/crm/models"
)

// AuthUser is the authenticated caller attached to a request context.
type AuthUser struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role,omitempty"`
}

func (u *AuthUser) IsAdmin() bool {
	return u != nil && u.Role == models.RoleAdmin
}

type contextKey struct{}

func WithAuthUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// AuthUserFrom returns the caller set by AuthService.Middleware, or nil.
func AuthUserFrom(ctx context.Context) *AuthUser {
	user, _ := ctx.Value(contextKey{}).(*AuthUser)
	return user
}

// RequireRoles rejects callers whose profile role is not one of roles.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := AuthUserFrom(r.Context())
			if user == nil {
				writeError(w, ErrUnauthorized)
				return
			}
			if !slices.Contains(roles, user.Role) {
				writeError(w, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
