package models

import "time"

// CallStats aggregates call outcomes for the admin analytics view.
type CallStats struct {
	TotalCalls      int64                `json:"total_calls" yaml:"total_calls"`
	SuccessfulCalls int64                `json:"successful_calls" yaml:"successful_calls"`
	SuccessRate     float64              `json:"success_rate" yaml:"success_rate"` // percent, 0 when there are no calls
	CallsByStatus   map[CallStatus]int64 `json:"calls_by_status" yaml:"calls_by_status"`
	CallsByAgent    []AgentCallCount     `json:"calls_by_agent" yaml:"calls_by_agent"`
}

type AgentCallCount struct {
	AgentID    string `json:"agent_id" yaml:"agent_id"`
	AgentName  string `json:"agent_name" yaml:"agent_name"`
	TotalCalls int64  `json:"total_calls" yaml:"total_calls"`
}

// HistoryType tags the source of a history entry.
type HistoryType string

const (
	HistoryCall         HistoryType = "call"
	HistoryNotification HistoryType = "notification"
	HistoryDocument     HistoryType = "document"
)

type HistoryItem struct {
	ID          string      `json:"id" yaml:"id"`
	Type        HistoryType `json:"type" yaml:"type"`
	Description string      `json:"description" yaml:"description"`
	ClientName  string      `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
}
