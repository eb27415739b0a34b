package models

import (
	"time"

	"gorm.io/gorm"
)

// CallStatus is the outcome an agent records for a call.
type CallStatus string

const (
	CallStatusSuccess  CallStatus = "success"
	CallStatusCallback CallStatus = "callback"
	CallStatusNoAnswer CallStatus = "no_answer"
)

func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusSuccess, CallStatusCallback, CallStatusNoAnswer:
		return true
	}
	return false
}

type Call struct {
	ID                string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ClientID          string         `gorm:"type:uuid;not null;index" json:"client_id"`
	AgentID           string         `gorm:"type:uuid;not null;index" json:"agent_id"`
	Status            CallStatus     `gorm:"type:varchar(20);not null;check:status IN ('success', 'callback', 'no_answer')" json:"status"`
	Notes             *string        `gorm:"type:text" json:"notes"`
	ScheduledCallback *time.Time     `json:"scheduled_callback"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Client *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// WantsCallbackNotification reports whether logging this call should notify the agent.
func (c *Call) WantsCallbackNotification() bool {
	return c.Status == CallStatusCallback && c.ScheduledCallback != nil
}

type CallInput struct {
	ClientID          string     `json:"client_id"`
	Status            CallStatus `json:"status"`
	Notes             *string    `json:"notes,omitempty"`
	ScheduledCallback *time.Time `json:"scheduled_callback,omitempty"`
}

type CallPatch struct {
	Status            *CallStatus `json:"status,omitempty"`
	Notes             *string     `json:"notes,omitempty"`
	ScheduledCallback *time.Time  `json:"scheduled_callback,omitempty"`
}

// clearsSchedule reports whether the patch moves the call away from callback.
// Only callbacks carry a scheduled time.
func (p CallPatch) clearsSchedule() bool {
	return p.Status != nil && *p.Status != CallStatusCallback
}

func (p CallPatch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	switch {
	case p.clearsSchedule():
		cols["scheduled_callback"] = nil
	case p.ScheduledCallback != nil:
		cols["scheduled_callback"] = *p.ScheduledCallback
	}
	return cols
}

// Apply updates c in memory the same way Columns updates the stored row.
func (p CallPatch) Apply(c *Call) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Notes != nil {
		c.Notes = p.Notes
	}
	switch {
	case p.clearsSchedule():
		c.ScheduledCallback = nil
	case p.ScheduledCallback != nil:
		when := *p.ScheduledCallback
		c.ScheduledCallback = &when
	}
}
