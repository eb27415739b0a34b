package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Afefmejri25/crm/models"
)

type HistoryState struct {
	Items   []models.HistoryItem
	Loading bool
	Error   string
}

// HistoryStore merges the user's calls, notifications and shared documents into
// one activity feed.
type HistoryStore struct {
	observable[HistoryState]
	calls         CallRepository
	notifications NotificationRepository
	documents     DocumentRepository
	userID        func() string
}

func NewHistoryStore(calls CallRepository, notifications NotificationRepository, documents DocumentRepository, userID func() string) *HistoryStore {
	return &HistoryStore{calls: calls, notifications: notifications, documents: documents, userID: userID}
}

func (s *HistoryStore) State() HistoryState { return s.snapshot() }

func (s *HistoryStore) FetchHistory(ctx context.Context) error {
	gen := s.beginFetch(func(st *HistoryState) { st.Loading = true })

	items, err := s.load(ctx)
	if err != nil {
		s.finishFetch(gen, func(st *HistoryState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	s.finishFetch(gen, func(st *HistoryState) {
		st.Items = items
		st.Loading = false
		st.Error = ""
	})
	return nil
}

func (s *HistoryStore) load(ctx context.Context) ([]models.HistoryItem, error) {
	calls, err := s.calls.ListCalls(ctx, "")
	if err != nil {
		return nil, err
	}
	notifications, err := s.notifications.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := s.documents.ListDocuments(ctx, "")
	if err != nil {
		return nil, err
	}
	return mergeHistory(calls, notifications, docs, s.userID()), nil
}

// mergeHistory builds the feed newest first. Only documents shared by userID are included.
func mergeHistory(calls []models.Call, notifications []models.Notification, docs []models.Document, userID string) []models.HistoryItem {
	items := make([]models.HistoryItem, 0, len(calls)+len(notifications)+len(docs))
	for _, c := range calls {
		item := models.HistoryItem{
			ID:          c.ID,
			Type:        models.HistoryCall,
			Description: "Call " + string(c.Status),
			CreatedAt:   c.CreatedAt,
		}
		if c.Notes != nil && strings.TrimSpace(*c.Notes) != "" {
			item.Description += " - " + *c.Notes
		}
		if c.Client != nil {
			item.ClientName = c.Client.CompanyName
		}
		items = append(items, item)
	}
	for _, n := range notifications {
		items = append(items, models.HistoryItem{
			ID:          n.ID,
			Type:        models.HistoryNotification,
			Description: n.Message,
			CreatedAt:   n.CreatedAt,
		})
	}
	for _, d := range docs {
		if d.SharedBy != userID {
			continue
		}
		items = append(items, models.HistoryItem{
			ID:          d.ID,
			Type:        models.HistoryDocument,
			Description: fmt.Sprintf("Document shared - %s", d.Title),
			CreatedAt:   d.CreatedAt,
		})
	}

	slices.SortStableFunc(items, func(a, b models.HistoryItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return items
}
