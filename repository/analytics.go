package repository

import (
	"context"
	"fmt"

	"github.com/Afefmejri25/crm/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsStore computes call aggregates with raw SQL over a pgx pool.
type AnalyticsStore struct {
	pool *pgxpool.Pool
}

func NewAnalyticsStore(pool *pgxpool.Pool) *AnalyticsStore {
	return &AnalyticsStore{pool: pool}
}

func (s *AnalyticsStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *AnalyticsStore) GetCallStats(ctx context.Context) (*models.CallStats, error) {
	stats := &models.CallStats{
		CallsByStatus: map[models.CallStatus]int64{},
		CallsByAgent:  []models.AgentCallCount{},
	}

	rows, err := s.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM calls
		WHERE deleted_at IS NULL
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("query calls by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan calls by status: %w", err)
		}
		stats.CallsByStatus[models.CallStatus(status)] = count
		stats.TotalCalls += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls by status: %w", err)
	}

	agentRows, err := s.pool.Query(ctx, `
		SELECT c.agent_id, COALESCE(NULLIF(p.full_name, ''), u.email, ''), COUNT(*)
		FROM calls c
		LEFT JOIN profiles p ON p.id = c.agent_id
		LEFT JOIN users u ON u.id = c.agent_id
		WHERE c.deleted_at IS NULL
		GROUP BY c.agent_id, p.full_name, u.email
		ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query calls by agent: %w", err)
	}
	defer agentRows.Close()

	for agentRows.Next() {
		var row models.AgentCallCount
		if err := agentRows.Scan(&row.AgentID, &row.AgentName, &row.TotalCalls); err != nil {
			return nil, fmt.Errorf("scan calls by agent: %w", err)
		}
		stats.CallsByAgent = append(stats.CallsByAgent, row)
	}
	if err := agentRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls by agent: %w", err)
	}

	FinalizeCallStats(stats)
	return stats, nil
}

// FinalizeCallStats derives the successful count and success rate from the status breakdown.
func FinalizeCallStats(stats *models.CallStats) {
	stats.SuccessfulCalls = stats.CallsByStatus[models.CallStatusSuccess]
	if stats.TotalCalls == 0 {
		stats.SuccessRate = 0
		return
	}
	stats.SuccessRate = float64(stats.SuccessfulCalls) / float64(stats.TotalCalls) * 100
}
