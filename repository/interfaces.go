package repository

import (
	"context"

	"github.com/Afefmejri25/crm/models"
)

// Lookups return nil, nil when the record does not exist.

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type ProfileRepository interface {
	UpsertProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
}

type TokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteAllUserTokens(ctx context.Context, userID string) error
}

// ClientFilter scopes a listing to one owner. An empty CreatedBy lists every client.
type ClientFilter struct {
	CreatedBy string
}

type ClientRepository interface {
	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]models.Client, error)
	UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error)
}

type CallFilter struct {
	AgentID  string
	ClientID string
}

type CallRepository interface {
	CreateCall(ctx context.Context, call *models.Call) error
	GetCall(ctx context.Context, id string) (*models.Call, error)
	ListCalls(ctx context.Context, filter CallFilter) ([]models.Call, error)
	UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error)
}

type DocumentRepository interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, query string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
}

type AnalyticsRepository interface {
	GetCallStats(ctx context.Context) (*models.CallStats, error)
}

var (
	_ UserRepository         = (*GORMRepository)(nil)
	_ ProfileRepository      = (*GORMRepository)(nil)
	_ TokenRepository        = (*GORMRepository)(nil)
	_ ClientRepository       = (*GORMRepository)(nil)
	_ CallRepository         = (*GORMRepository)(nil)
	_ DocumentRepository     = (*GORMRepository)(nil)
	_ NotificationRepository = (*GORMRepository)(nil)
	_ AnalyticsRepository    = (*AnalyticsStore)(nil)
)
