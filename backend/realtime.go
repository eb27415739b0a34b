package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Afefmejri25/crm/models"
	"github.com/gorilla/websocket"
)

// Subscribe opens the realtime feed. The returned channel is closed when ctx is
// cancelled or the connection drops.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.Event, error) {
	token := c.accessToken()
	if token == "" {
		return nil, ErrNoSession
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("failed to open realtime feed: %w", err)
	}

	events := make(chan models.Event, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(events)
		defer close(done)
		for {
			var event models.Event
			if err := conn.ReadJSON(&event); err != nil {
				if ctx.Err() == nil {
					slog.Warn("Realtime feed closed", "error", err)
				}
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (c *Client) websocketURL() string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + apiPrefix + "/ws"
}
