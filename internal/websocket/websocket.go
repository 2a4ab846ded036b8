package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/status"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub pushes status events to every connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	last    map[string]status.Event // latest event per player, replayed to new clients
}

// NewHub returns a hub without clients
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		last:    make(map[string]status.Event),
	}
}

// OnEvent sends ev as JSON to all clients, dropping the ones that fail.
func (h *Hub) OnEvent(ev status.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[ev.Player] = ev
	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(ev); err != nil {
			logging.ErrorLogger.Printf("Error sending event: %v", err)
			client.Close()
			delete(h.clients, client)
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and keeps it registered until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.ErrorLogger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	for _, ev := range h.last {
		if err := conn.WriteJSON(ev); err != nil {
			logging.ErrorLogger.Printf("Failed to send initial status: %v", err)
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = true
	h.mu.Unlock()

	// only reads detect the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		client.Close()
		delete(h.clients, client)
	}
}
