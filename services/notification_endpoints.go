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

// EventPublisher pushes realtime events to a user's open connections.
type EventPublisher interface {
	SendToUser(userID string, v interface{}) error
}

type NotificationEndpoints struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	publisher EventPublisher
}

func NewNotificationEndpoints(repo repository.NotificationRepository, users repository.UserRepository, publisher EventPublisher) *NotificationEndpoints {
	return &NotificationEndpoints{repo: repo, users: users, publisher: publisher}
}

func (e *NotificationEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", e.ListNotificationsHandler)
		r.Post("/", e.CreateNotificationHandler)
		r.Post("/read-all", e.MarkAllReadHandler)
		r.Post("/{id}/read", e.MarkReadHandler)
	})
}

// ListNotificationsHandler lists the caller's notifications newest first.
func (e *NotificationEndpoints) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	notifications, err := e.repo.ListNotifications(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// CreateNotificationHandler stores a notification and pushes it to the recipient.
// Agents may only notify themselves; admins may notify any user.
func (e *NotificationEndpoints) CreateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	var input models.NotificationInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || strings.TrimSpace(input.Message) == "" {
		writeError(w, fmt.Errorf("%w: title and message are required", ErrValidation))
		return
	}
	if input.RecipientID == "" {
		input.RecipientID = user.ID
	}
	if input.RecipientID != user.ID && !user.IsAdmin() {
		writeError(w, ErrForbidden)
		return
	}
	if err := e.requireUser(r.Context(), input.RecipientID); err != nil {
		writeError(w, err)
		return
	}

	n := &models.Notification{
		Title:       input.Title,
		Message:     input.Message,
		RecipientID: input.RecipientID,
		CreatedBy:   user.ID,
	}
	if err := e.repo.CreateNotification(r.Context(), n); err != nil {
		writeError(w, err)
		return
	}

	e.publish(n)
	writeJSON(w, http.StatusCreated, n)
}

func (e *NotificationEndpoints) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	id := chi.URLParam(r, "id")
	if !isValidUUID(id) {
		writeError(w, fmt.Errorf("%w: notification", ErrNotFound))
		return
	}

	existing, err := e.repo.GetNotification(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing == nil || existing.RecipientID != user.ID {
		writeError(w, fmt.Errorf("%w: notification", ErrNotFound))
		return
	}

	n, err := e.repo.MarkNotificationRead(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == nil {
		writeError(w, fmt.Errorf("%w: notification", ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (e *NotificationEndpoints) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	updated, err := e.repo.MarkAllNotificationsRead(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

func (e *NotificationEndpoints) requireUser(ctx context.Context, id string) error {
	if !isValidUUID(id) {
		return fmt.Errorf("%w: recipient_id is not a valid user id", ErrValidation)
	}
	recipient, err := e.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if recipient == nil {
		return fmt.Errorf("%w: recipient does not exist", ErrValidation)
	}
	return nil
}

func (e *NotificationEndpoints) publish(n *models.Notification) {
	if e.publisher == nil {
		return
	}
	event := models.Event{Type: models.EventNotificationCreated, Notification: n}
	if err := e.publisher.SendToUser(n.RecipientID, event); err != nil {
		slog.Warn("Failed to push notification", "error", err, "notification_id", n.ID)
	}
}
