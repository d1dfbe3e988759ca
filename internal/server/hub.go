package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/guidellm/guidellm-go/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SSE endpoints already allow any origin; the websocket push
	// channel follows the same policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans progress broadcasts out to every connected websocket client.
// It is the push alternative to the SSE stream endpoints; both carry the
// same JSON messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	log     *logging.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

// BroadcastMessage sends data to every connected client, dropping
// clients whose writes fail.
func (h *Hub) BroadcastMessage(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Warn("dropping websocket client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades an HTTP request to a websocket connection and
// registers it with the hub. The read loop exists only to detect client
// disconnects and answer pings; all data flows hub-to-client.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.log.Info("websocket client connected (%d total)", h.ClientCount())

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
			h.log.Info("websocket client disconnected (%d total)", h.ClientCount())
		}()

		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
