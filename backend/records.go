package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Afefmejri25/crm/models"
)

func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := c.do(ctx, request{method: http.MethodGet, path: "/clients"}, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

func (c *Client) CreateClient(ctx context.Context, input models.ClientInput) (*models.Client, error) {
	return postJSON[models.Client](ctx, c, http.MethodPost, "/clients", input)
}

func (c *Client) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	return postJSON[models.Client](ctx, c, http.MethodPatch, "/clients/"+url.PathEscape(id), patch)
}

// ListCalls returns the caller's calls newest first, optionally for one client.
func (c *Client) ListCalls(ctx context.Context, clientID string) ([]models.Call, error) {
	var calls []models.Call
	req := request{method: http.MethodGet, path: "/calls", query: map[string]string{"client_id": clientID}}
	if err := c.do(ctx, req, &calls); err != nil {
		return nil, err
	}
	return calls, nil
}

func (c *Client) CreateCall(ctx context.Context, input models.CallInput) (*models.Call, error) {
	return postJSON[models.Call](ctx, c, http.MethodPost, "/calls", input)
}

func (c *Client) UpdateCall(ctx context.Context, id string, patch models.CallPatch) (*models.Call, error) {
	return postJSON[models.Call](ctx, c, http.MethodPatch, "/calls/"+url.PathEscape(id), patch)
}

func (c *Client) ListDocuments(ctx context.Context, query string) ([]models.Document, error) {
	var docs []models.Document
	req := request{method: http.MethodGet, path: "/documents", query: map[string]string{"q": query}}
	if err := c.do(ctx, req, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *Client) CreateDocument(ctx context.Context, input models.DocumentInput) (*models.Document, error) {
	return postJSON[models.Document](ctx, c, http.MethodPost, "/documents", input)
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/documents/" + url.PathEscape(id)}, nil)
}

func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := c.do(ctx, request{method: http.MethodGet, path: "/notifications"}, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (c *Client) CreateNotification(ctx context.Context, input models.NotificationInput) (*models.Notification, error) {
	return postJSON[models.Notification](ctx, c, http.MethodPost, "/notifications", input)
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (*models.Notification, error) {
	return postJSON[models.Notification](ctx, c, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var payload struct {
		Updated int64 `json:"updated"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: "/notifications/read-all"}, &payload); err != nil {
		return 0, err
	}
	return payload.Updated, nil
}

func (c *Client) GetCallStats(ctx context.Context) (*models.CallStats, error) {
	var stats models.CallStats
	if err := c.do(ctx, request{method: http.MethodGet, path: "/analytics/calls"}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func postJSON[T any](ctx context.Context, c *Client, method, path string, payload interface{}) (*T, error) {
	req, err := jsonRequest(method, path, payload)
	if err != nil {
		return nil, err
	}
	var out T
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
