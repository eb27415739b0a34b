package store

import (
	"context"

	"github.com/Afefmejri25/crm/models"
)

type AnalyticsState struct {
	Stats   *models.CallStats
	Loading bool
	Error   string
}

// AnalyticsStore loads call statistics. The server only answers admins.
type AnalyticsStore struct {
	observable[AnalyticsState]
	repo AnalyticsRepository
}

func NewAnalyticsStore(repo AnalyticsRepository) *AnalyticsStore {
	return &AnalyticsStore{repo: repo}
}

func (s *AnalyticsStore) State() AnalyticsState { return s.snapshot() }

func (s *AnalyticsStore) FetchStats(ctx context.Context) error {
	gen := s.beginFetch(func(st *AnalyticsState) { st.Loading = true })

	stats, err := s.repo.GetCallStats(ctx)
	if err != nil {
		s.finishFetch(gen, func(st *AnalyticsState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	s.finishFetch(gen, func(st *AnalyticsState) {
		st.Stats = stats
		st.Loading = false
		st.Error = ""
	})
	return nil
}
