package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	go hub.Run()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.RegisterClient(conn, r.URL.Query().Get("user"))
		go client.WritePump()
		client.ReadPump()
	}))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubSendToUserTargetsOnlyThatUser(t *testing.T) {
	hub, srv := newTestHubServer(t)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	require.Eventually(t, func() bool {
		users := hub.ConnectedUsers()
		return users["alice"] == 1 && users["bob"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.SendToUser("alice", map[string]string{"type": "notification.created"}))

	alice.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := alice.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"notification.created"}`, string(msg))

	bob.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err, "bob should not receive alice's event")
}

func TestHubBroadcastReachesEveryone(t *testing.T) {
	hub, srv := newTestHubServer(t)

	conns := []*websocket.Conn{dial(t, srv, "a"), dial(t, srv, "b")}
	require.Eventually(t, func() bool {
		return len(hub.ConnectedUsers()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(map[string]string{"type": "ping"}))

	for _, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"ping"}`, string(msg))
	}
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub, srv := newTestHubServer(t)

	conn := dial(t, srv, "carol")
	require.Eventually(t, func() bool {
		return hub.ConnectedUsers()["carol"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return hub.ConnectedUsers()["carol"] == 0
	}, 2*time.Second, 10*time.Millisecond)
}
