package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/repository"
	"github.com/go-chi/chi/v5"
)

type ClientEndpoints struct {
	repo repository.ClientRepository
}

func NewClientEndpoints(repo repository.ClientRepository) *ClientEndpoints {
	return &ClientEndpoints{repo: repo}
}

func (e *ClientEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", e.ListClientsHandler)
		r.Post("/", e.CreateClientHandler)
		r.Get("/{id}", e.GetClientHandler)
		r.Patch("/{id}", e.UpdateClientHandler)
	})
}

// ListClientsHandler lists the caller's clients; admins see every client.
func (e *ClientEndpoints) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	filter := repository.ClientFilter{CreatedBy: user.ID}
	if user.IsAdmin() {
		filter.CreatedBy = ""
	}

	clients, err := e.repo.ListClients(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (e *ClientEndpoints) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	var input models.ClientInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	input.CompanyName = strings.TrimSpace(input.CompanyName)
	input.ContactName = strings.TrimSpace(input.ContactName)
	if input.CompanyName == "" || input.ContactName == "" {
		writeError(w, fmt.Errorf("%w: company_name and contact_name are required", ErrValidation))
		return
	}

	client := &models.Client{
		CompanyName:   input.CompanyName,
		ContactName:   input.ContactName,
		Email:         input.Email,
		Phone:         input.Phone,
		Mobile:        input.Mobile,
		Address:       input.Address,
		Region:        input.Region,
		AnnualRevenue: input.AnnualRevenue,
		CreatedBy:     user.ID,
	}
	if err := e.repo.CreateClient(r.Context(), client); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Client created", "client_id", client.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, client)
}

func (e *ClientEndpoints) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	client, err := e.visibleClient(r.Context(), AuthUserFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (e *ClientEndpoints) UpdateClientHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := e.visibleClient(r.Context(), user, id); err != nil {
		writeError(w, err)
		return
	}

	var patch models.ClientPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if patch.CompanyName != nil && strings.TrimSpace(*patch.CompanyName) == "" {
		writeError(w, fmt.Errorf("%w: company_name cannot be empty", ErrValidation))
		return
	}
	if patch.ContactName != nil && strings.TrimSpace(*patch.ContactName) == "" {
		writeError(w, fmt.Errorf("%w: contact_name cannot be empty", ErrValidation))
		return
	}

	client, err := e.repo.UpdateClient(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	if client == nil {
		writeError(w, ErrNotFound)
		return
	}

	slog.Info("Client updated", "client_id", id, "user_id", user.ID)
	writeJSON(w, http.StatusOK, client)
}

// visibleClient loads a client the caller may see. Other agents' clients read as not found.
func (e *ClientEndpoints) visibleClient(ctx context.Context, user *AuthUser, id string) (*models.Client, error) {
	return loadVisibleClient(ctx, e.repo, user, id)
}

func loadVisibleClient(ctx context.Context, repo repository.ClientRepository, user *AuthUser, id string) (*models.Client, error) {
	if !isValidUUID(id) {
		return nil, fmt.Errorf("%w: client", ErrNotFound)
	}
	client, err := repo.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if client == nil || (client.CreatedBy != user.ID && !user.IsAdmin()) {
		return nil, fmt.Errorf("%w: client", ErrNotFound)
	}
	return client, nil
}
