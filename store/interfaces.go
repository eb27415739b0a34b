// Package store holds the client-side state containers. Each store talks to the
// server through a narrow repository interface and keeps its view state in sync.
package store

import (
	"context"
	"io"

	"github.com/Afefmejri25/crm/backend"
	"github.com/Afefmejri25/crm/models"
)

type AuthBackend interface {
	SignIn(ctx context.Context, email, password string) (*backend.AuthResult, error)
	SignOut(ctx context.Context) error
	GetUser(ctx context.Context) (*backend.Identity, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	Session() *models.Session
	SetSession(s *models.Session)
}

type ClientRepository interface {
	ListClients(ctx context.Context) ([]models.Client, error)
	CreateClient(ctx context.Context, input models.ClientInput) (*models.Client, error)
	UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error)
}

type CallRepository interface {
	// ListCalls returns the caller's calls newest first; a non-empty clientID narrows to one client.
	ListCalls(ctx context.Context, clientID string) ([]models.Call, error)
	CreateCall(ctx context.Context, input models.CallInput) (*models.Call, error)
	UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error)
}

type DocumentRepository interface {
	ListDocuments(ctx context.Context, query string) ([]models.Document, error)
	CreateDocument(ctx context.Context, input models.DocumentInput) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type NotificationRepository interface {
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	CreateNotification(ctx context.Context, input models.NotificationInput) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
}

type ObjectStorage interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error)
	Remove(ctx context.Context, bucket, key string) error
}

type AnalyticsRepository interface {
	GetCallStats(ctx context.Context) (*models.CallStats, error)
}

// Feed is the realtime event source.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan models.Event, error)
}

// Backend is everything the application needs from the server.
type Backend interface {
	AuthBackend
	ClientRepository
	CallRepository
	DocumentRepository
	NotificationRepository
	ObjectStorage
	AnalyticsRepository
	Feed
}

var _ Backend = (*backend.Client)(nil)
