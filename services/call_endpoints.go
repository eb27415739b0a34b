package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/repository"
	"github.com/go-chi/chi/v5"
)

type CallEndpoints struct {
	calls   repository.CallRepository
	clients repository.ClientRepository
}

func NewCallEndpoints(calls repository.CallRepository, clients repository.ClientRepository) *CallEndpoints {
	return &CallEndpoints{calls: calls, clients: clients}
}

func (e *CallEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/calls", func(r chi.Router) {
		r.Get("/", e.ListCallsHandler)
		r.Post("/", e.CreateCallHandler)
		r.Get("/{id}", e.GetCallHandler)
		r.Patch("/{id}", e.UpdateCallHandler)
	})
}

// ListCallsHandler lists the caller's calls newest first, optionally for one client.
// Admins see every agent's calls.
func (e *CallEndpoints) ListCallsHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	filter := repository.CallFilter{AgentID: user.ID}
	if user.IsAdmin() {
		filter.AgentID = ""
	}
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		if !isValidUUID(clientID) {
			writeError(w, fmt.Errorf("%w: invalid client_id", ErrValidation))
			return
		}
		filter.ClientID = clientID
	}

	calls, err := e.calls.ListCalls(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calls)
}

func (e *CallEndpoints) CreateCallHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	var input models.CallInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	if !input.Status.Valid() {
		writeError(w, fmt.Errorf("%w: status must be success, callback or no_answer", ErrValidation))
		return
	}
	if _, err := loadVisibleClient(r.Context(), e.clients, user, input.ClientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("%w: call must reference an existing client", ErrValidation)
		}
		writeError(w, err)
		return
	}

	call := &models.Call{
		ClientID:          input.ClientID,
		AgentID:           user.ID,
		Status:            input.Status,
		Notes:             input.Notes,
		ScheduledCallback: input.ScheduledCallback,
	}
	if err := e.calls.CreateCall(r.Context(), call); err != nil {
		writeError(w, err)
		return
	}

	// Respond with the stored row so the embedded client is populated.
	stored, err := e.calls.GetCall(r.Context(), call.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if stored == nil {
		stored = call
	}

	slog.Info("Call logged", "call_id", call.ID, "user_id", user.ID, "status", call.Status)
	writeJSON(w, http.StatusCreated, stored)
}

func (e *CallEndpoints) GetCallHandler(w http.ResponseWriter, r *http.Request) {
	call, err := e.visibleCall(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (e *CallEndpoints) UpdateCallHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	id := chi.URLParam(r, "id")

	if _, err := e.visibleCall(r, id); err != nil {
		writeError(w, err)
		return
	}

	var patch models.CallPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		writeError(w, fmt.Errorf("%w: status must be success, callback or no_answer", ErrValidation))
		return
	}

	call, err := e.calls.UpdateCall(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	if call == nil {
		writeError(w, ErrNotFound)
		return
	}

	slog.Info("Call updated", "call_id", id, "user_id", user.ID)
	writeJSON(w, http.StatusOK, call)
}

func (e *CallEndpoints) visibleCall(r *http.Request, id string) (*models.Call, error) {
	user := AuthUserFrom(r.Context())
	if !isValidUUID(id) {
		return nil, fmt.Errorf("%w: call", ErrNotFound)
	}
	call, err := e.calls.GetCall(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if call == nil || (call.AgentID != user.ID && !user.IsAdmin()) {
		return nil, fmt.Errorf("%w: call", ErrNotFound)
	}
	return call, nil
}
