package models

import (
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	ID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Message     string         `gorm:"type:text;not null" json:"message"`
	RecipientID string         `gorm:"type:uuid;not null;index" json:"recipient_id"`
	IsRead      bool           `gorm:"default:false;index" json:"is_read"`
	CreatedBy   string         `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type NotificationInput struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	RecipientID string `json:"recipient_id"`
}

// Realtime event types pushed over the websocket feed.
const (
	EventNotificationCreated = "notification.created"
	EventServerShutdown      = "server.shutdown"
)

// Event is the envelope of a realtime message.
type Event struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
}
