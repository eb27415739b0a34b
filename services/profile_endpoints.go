package services

import (
	"net/http"

	"github.com/Afefmejri25/crm/repository"
	"github.com/go-chi/chi/v5"
)

type ProfileEndpoints struct {
	repo repository.ProfileRepository
}

func NewProfileEndpoints(repo repository.ProfileRepository) *ProfileEndpoints {
	return &ProfileEndpoints{repo: repo}
}

func (e *ProfileEndpoints) RegisterRoutes(r chi.Router) {
	r.Get("/profiles/{id}", e.GetProfileHandler)
}

// GetProfileHandler serves the caller's own profile; admins may read any.
func (e *ProfileEndpoints) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	id := chi.URLParam(r, "id")
	if user.ID != id && !user.IsAdmin() {
		writeError(w, ErrForbidden)
		return
	}

	if !isValidUUID(id) {
		writeError(w, ErrNotFound)
		return
	}

	profile, err := e.repo.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if profile == nil {
		writeError(w, ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
