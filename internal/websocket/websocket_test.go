package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/owlcms/recorder/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	hub.OnEvent(status.Event{Player: "platform", Kind: status.PlayStarting})

	conn := dial(t, srv)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// the last event of each player is replayed on connect
	var ev status.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, status.PlayStarting, ev.Kind)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)
	hub.OnEvent(status.Event{Player: "platform", Kind: status.Playing, Severity: status.Info, Message: "ok"})
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, status.Playing, ev.Kind)
	assert.Equal(t, status.Info, ev.Severity)
	assert.Equal(t, "ok", ev.Message)
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 5*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 5*time.Second, 5*time.Millisecond)
}
