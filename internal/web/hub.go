package web

import (
	"sync"

	"github.com/codefionn/collabd/internal/logger"
)

// Hub maintains the set of active websocket clients. When a user reconnects
// while an old connection lingers, registering the new client closes the old
// socket first, so the session registry's "one connection per user" holds.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	logger.Info("WebSocket hub started")
	defer logger.Info("WebSocket hub stopped")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.byUser[client.UserID()]; ok && old != client {
				delete(h.clients, old)
				old.closeSend()
				old.conn.Close()
				logger.Debug("Replaced connection for user %s", client.UserID())
			}
			h.clients[client] = true
			h.byUser[client.UserID()] = client
			h.mu.Unlock()
			logger.Debug("Client registered: %s (user %s)", client.ID, client.UserID())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				if h.byUser[client.UserID()] == client {
					delete(h.byUser, client.UserID())
				}
				client.closeSend()
			}
			h.mu.Unlock()
			logger.Debug("Client unregistered: %s", client.ID)

		case <-h.quit:
			return
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
