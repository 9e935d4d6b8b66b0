// Package ws streams notifications to connected clients over websockets.
package ws

import (
	"encoding/json"
	"sync"

	"meetly/internal/logger"

	"go.uber.org/zap"
)

// Client is one open socket for a user.
type Client struct {
	UserID uint
	Send   chan []byte
	hub    *Hub
	once   sync.Once
}

// NewClient returns a client with a buffered outbound queue.
func NewClient(userID uint) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 64)}
}

func (c *Client) Close() {
	c.once.Do(func() {
		if c.hub != nil {
			c.hub.unregister(c)
		}
		close(c.Send)
	})
}

// Hub tracks open sockets per user. A user may hold several connections.
type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// BroadcastToUser queues payload on every socket of userID. Slow clients
// drop messages rather than block the sender.
func (h *Hub) BroadcastToUser(userID uint, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Warn("ws payload not encodable", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// ClientCount returns the number of open sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.byUser {
		n += len(m)
	}
	return n
}
