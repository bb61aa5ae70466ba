package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	ID   uuid.UUID
	Conn Conn
}

// Event tells clients which cached views to refetch.
type Event struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

// Hub fans invalidation events out to every connected client.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	broadcast chan Event
	clients   map[uuid.UUID]Conn
	clientsMu sync.RWMutex
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		broadcast:  make(chan Event, 64),
		clients:    make(map[uuid.UUID]Conn),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done. Register and
// Unregister return immediately once Run has stopped.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client.ID] = client.Conn
			h.clientsMu.Unlock()
			h.logger.Debug("websocket client registered", slog.String("client_id", client.ID.String()))
		case client := <-h.unregister:
			h.clientsMu.Lock()
			if conn, ok := h.clients[client.ID]; ok && conn == client.Conn {
				delete(h.clients, client.ID)
			}
			h.clientsMu.Unlock()
			h.logger.Debug("websocket client unregistered", slog.String("client_id", client.ID.String()))
		case event := <-h.broadcast:
			h.send(event)
		}
	}
}

// Register adds the client to the broadcast set. It reports false when the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an invalidation event. It never blocks; events are dropped
// when the queue is full.
func (h *Hub) Publish(keys []string) {
	if len(keys) == 0 {
		return
	}
	event := Event{Type: "invalidate", Keys: keys}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event", slog.Any("keys", keys))
	}
}

func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) send(event Event) {
	var failed []uuid.UUID
	h.clientsMu.RLock()
	for id, conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("error sending event to client",
				slog.String("client_id", id.String()),
				slog.Any("error", err))
			failed = append(failed, id)
		}
	}
	h.clientsMu.RUnlock()

	if len(failed) == 0 {
		return
	}
	var dropped []Conn
	h.clientsMu.Lock()
	for _, id := range failed {
		if conn, ok := h.clients[id]; ok {
			dropped = append(dropped, conn)
			delete(h.clients, id)
		}
	}
	h.clientsMu.Unlock()
	for _, conn := range dropped {
		_ = conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for id, conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, id)
	}
}
