// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"sync"

	"github.com/samber/lo"
)

// clientBuffer is the number of events queued per client before sends are dropped.
const clientBuffer = 10

// Hub manages SSE clients per visitor session.
// Multiple tabs of the same browser share the same session ID.
type Hub struct {
	clients map[string][]chan string
	mu      sync.RWMutex
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string][]chan string),
	}
}

// Register adds a new client channel for the given session.
// Returns the channel to receive events on.
func (h *Hub) Register(sessionID string) chan string {
	ch := make(chan string, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[sessionID] = append(h.clients[sessionID], ch)
	return ch
}

// Unregister removes and closes a client channel.
func (h *Hub) Unregister(sessionID string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[sessionID] = lo.Without(h.clients[sessionID], ch)
	if len(h.clients[sessionID]) == 0 {
		delete(h.clients, sessionID)
	}

	close(ch)
}

// SendToSession sends a message to all clients of the given session.
// Clients with a full buffer miss the message.
func (h *Hub) SendToSession(sessionID string, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients[sessionID] {
		send(ch, message)
	}
}

// SendToClient sends a message to a single client of the session. Nothing
// is sent once the client has been unregistered.
func (h *Hub) SendToClient(sessionID string, ch chan string, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if lo.Contains(h.clients[sessionID], ch) {
		send(ch, message)
	}
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.clients {
		for _, ch := range clients {
			send(ch, message)
		}
	}
}

func send(ch chan string, message string) {
	select {
	case ch <- message:
	default:
		// Channel full, skip (prevents blocking)
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.clients), func(clients []chan string) int {
		return len(clients)
	})
}

// SessionCount returns the number of unique sessions with active connections.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Connected reports whether the session has at least one open stream.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[sessionID]) > 0
}
