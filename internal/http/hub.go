package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is pushed to every connected WebSocket client when data changes,
// so dashboards can refresh without polling.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	EventTransactionCreated = "transaction:created"
	EventTransactionUpdated = "transaction:updated"
	EventTransactionDeleted = "transaction:deleted"
)

// Hub fans events out to WebSocket clients. Registration and broadcast
// run on one goroutine started by Run.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	closeOnce  sync.Once
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			slog.Debug("WebSocket client connected", "clients", len(h.clients))
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			slog.Debug("WebSocket client disconnected", "clients", len(h.clients))
		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					slog.Warn("WebSocket write failed, dropping client", "error", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
		case <-h.done:
			for conn := range h.clients {
				conn.Close()
			}
			return
		}
	}
}

// Broadcast queues an event for all clients. It never blocks: when the
// queue is full the event is dropped, clients resync on next request.
func (h *Hub) Broadcast(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to marshal event", "type", e.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("Event queue full, dropping event", "type", e.Type)
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin browsers and local tooling only; the API carries no
	// per-origin credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
		return
	}
	s.hub.register <- conn

	// Drain client frames so pings and close messages are processed.
	go func() {
		defer func() { s.hub.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
