package store

import (
	"context"
	"log/slog"
	"slices"

	"github.com/Afefmejri25/crm/models"
)

type NotificationState struct {
	Notifications []models.Notification
	UnreadCount   int
	Loading       bool
	Error         string
}

type NotificationStore struct {
	observable[NotificationState]
	repo NotificationRepository
}

func NewNotificationStore(repo NotificationRepository) *NotificationStore {
	return &NotificationStore{repo: repo}
}

func (s *NotificationStore) State() NotificationState { return s.snapshot() }

func (s *NotificationStore) FetchNotifications(ctx context.Context) error {
	gen := s.beginFetch(func(st *NotificationState) { st.Loading = true })

	notifications, err := s.repo.ListNotifications(ctx)
	if err != nil {
		s.finishFetch(gen, func(st *NotificationState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	s.finishFetch(gen, func(st *NotificationState) {
		st.Notifications = notifications
		st.UnreadCount = countUnread(notifications)
		st.Loading = false
		st.Error = ""
	})
	return nil
}

// MarkAsRead marks one notification read; the server's copy replaces the local one.
func (s *NotificationStore) MarkAsRead(ctx context.Context, id string) error {
	updated, err := s.repo.MarkNotificationRead(ctx, id)
	if err != nil {
		s.set(func(st *NotificationState) { st.Error = err.Error() })
		return err
	}
	s.Receive(*updated)
	return nil
}

func (s *NotificationStore) MarkAllAsRead(ctx context.Context) error {
	if _, err := s.repo.MarkAllNotificationsRead(ctx); err != nil {
		s.set(func(st *NotificationState) { st.Error = err.Error() })
		return err
	}

	s.commit(func(st *NotificationState) {
		notifications := slices.Clone(st.Notifications)
		for i := range notifications {
			notifications[i].IsRead = true
		}
		st.Notifications = notifications
		st.UnreadCount = 0
		st.Loading = false
		st.Error = ""
	})
	return nil
}

// Receive merges a notification created elsewhere: by another store, or pushed
// over the realtime feed. A known id is replaced in place, a new one goes first.
func (s *NotificationStore) Receive(n models.Notification) {
	s.commit(func(st *NotificationState) {
		notifications := slices.Clone(st.Notifications)
		if idx := slices.IndexFunc(notifications, func(x models.Notification) bool { return x.ID == n.ID }); idx >= 0 {
			notifications[idx] = n
		} else {
			notifications = append([]models.Notification{n}, notifications...)
		}
		st.Notifications = notifications
		st.UnreadCount = countUnread(notifications)
		st.Loading = false
		st.Error = ""
	})
}

// Listen applies realtime notifications until ctx ends, the feed closes, or the
// server announces it is shutting down.
func (s *NotificationStore) Listen(ctx context.Context, feed Feed) error {
	events, err := feed.Subscribe(ctx)
	if err != nil {
		s.set(func(st *NotificationState) { st.Error = err.Error() })
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			switch event.Type {
			case models.EventNotificationCreated:
				if event.Notification != nil {
					s.Receive(*event.Notification)
				}
			case models.EventServerShutdown:
				slog.Info("Realtime feed closed by server shutdown")
				return nil
			}
		}
	}
}

func countUnread(notifications []models.Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}
