package sse

import (
	"encoding/json"
	"sync"

	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Message is one event pushed to admin feed clients.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client represents a connected admin feed client.
type Client struct {
	ID     string
	Events chan Message
}

// Hub manages feed client connections and broadcasts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub creates a new feed hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  util.Named("sse"),
	}
}

// Register adds a new client and returns it for streaming.
func (h *Hub) Register(clientID string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &Client{
		ID:     clientID,
		Events: make(chan Message, 64),
	}
	h.clients[clientID] = c
	util.FeedClients.Set(float64(len(h.clients)))
	h.logger.Info("Feed client connected",
		zap.String("client_id", clientID),
		zap.Int("total_clients", len(h.clients)))
	return c
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		close(c.Events)
		delete(h.clients, clientID)
		util.FeedClients.Set(float64(len(h.clients)))
		h.logger.Info("Feed client disconnected",
			zap.String("client_id", clientID),
			zap.Int("total_clients", len(h.clients)))
	}
}

// Broadcast sends an event to all connected clients. A client whose buffer
// is full misses the event.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Events <- msg:
		default:
			h.logger.Warn("Feed client buffer full, dropping event", zap.String("client_id", c.ID))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
