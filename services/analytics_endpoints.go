package services

import (
	"net/http"

	"github.com/Afefmejri25/crm/repository"
	"github.com/go-chi/chi/v5"
)

type AnalyticsEndpoints struct {
	repo repository.AnalyticsRepository
}

func NewAnalyticsEndpoints(repo repository.AnalyticsRepository) *AnalyticsEndpoints {
	return &AnalyticsEndpoints{repo: repo}
}

func (e *AnalyticsEndpoints) RegisterRoutes(r chi.Router) {
	r.Get("/analytics/calls", e.CallStatsHandler)
}

func (e *AnalyticsEndpoints) CallStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := e.repo.GetCallStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
