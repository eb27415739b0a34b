package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Afefmejri25/crm/models"
)

const callbackLayout = "02/01/2006 15:04"

type CallState struct {
	Calls []models.Call
	// ClientID is the client filter of the last fetch; empty means all own calls.
	ClientID string
	Loading  bool
	Error    string
}

type CallStore struct {
	observable[CallState]
	repo          CallRepository
	notifications NotificationRepository
	notify        func(models.Notification)
}

// NewCallStore builds the store. notify receives notifications the store creates; it may be nil.
func NewCallStore(repo CallRepository, notifications NotificationRepository, notify func(models.Notification)) *CallStore {
	return &CallStore{repo: repo, notifications: notifications, notify: notify}
}

func (s *CallStore) State() CallState { return s.snapshot() }

// FetchCalls loads the caller's own calls, newest first.
func (s *CallStore) FetchCalls(ctx context.Context) error {
	return s.fetch(ctx, "")
}

func (s *CallStore) FetchCallsByClient(ctx context.Context, clientID string) error {
	return s.fetch(ctx, clientID)
}

func (s *CallStore) fetch(ctx context.Context, clientID string) error {
	gen := s.beginFetch(func(st *CallState) {
		st.Loading = true
		st.ClientID = clientID
	})

	calls, err := s.repo.ListCalls(ctx, clientID)
	if err != nil {
		s.finishFetch(gen, func(st *CallState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	s.finishFetch(gen, func(st *CallState) {
		st.Calls = calls
		st.Loading = false
		st.Error = ""
	})
	return nil
}

// AddCall logs a call. A callback with a scheduled time also creates one
// "Callback Scheduled" notification for the agent. When only the notification
// fails the call is returned together with the error.
func (s *CallStore) AddCall(ctx context.Context, input models.CallInput) (*models.Call, error) {
	call, err := s.repo.CreateCall(ctx, input)
	if err != nil {
		s.set(func(st *CallState) { st.Error = err.Error() })
		return nil, err
	}

	s.commit(func(st *CallState) {
		if st.ClientID == "" || st.ClientID == call.ClientID {
			st.Calls = append([]models.Call{*call}, st.Calls...)
		}
		st.Loading = false
		st.Error = ""
	})

	if !call.WantsCallbackNotification() {
		return call, nil
	}

	n, err := s.notifications.CreateNotification(ctx, callbackNotification(call))
	if err != nil {
		err = fmt.Errorf("call saved but callback notification failed: %w", err)
		s.set(func(st *CallState) { st.Error = err.Error() })
		return call, err
	}
	if s.notify != nil {
		s.notify(*n)
	}
	return call, nil
}

func (s *CallStore) UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error) {
	updated, err := s.repo.UpdateCall(ctx, id, patch)
	if err != nil {
		s.set(func(st *CallState) { st.Error = err.Error() })
		return nil, err
	}

	s.commit(func(st *CallState) {
		calls := slices.Clone(st.Calls)
		for i := range calls {
			if calls[i].ID == updated.ID {
				calls[i] = *updated
			}
		}
		st.Calls = calls
		st.Loading = false
		st.Error = ""
	})
	return updated, nil
}

// UpcomingCallbacks lists loaded callbacks scheduled after now, soonest first.
func (s *CallStore) UpcomingCallbacks(now time.Time) []models.Call {
	var upcoming []models.Call
	for _, c := range s.snapshot().Calls {
		if c.WantsCallbackNotification() && c.ScheduledCallback.After(now) {
			upcoming = append(upcoming, c)
		}
	}
	slices.SortFunc(upcoming, func(a, b models.Call) int {
		return a.ScheduledCallback.Compare(*b.ScheduledCallback)
	})
	return upcoming
}

func callbackNotification(call *models.Call) models.NotificationInput {
	company := ""
	if call.Client != nil {
		company = call.Client.CompanyName
	}
	return models.NotificationInput{
		Title:       "Callback Scheduled",
		Message:     fmt.Sprintf("Callback scheduled for %s with %s", call.ScheduledCallback.Local().Format(callbackLayout), company),
		RecipientID: call.AgentID,
	}
}
