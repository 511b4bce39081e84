// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

var ErrDuplicateClient = errors.New("client already registered")

// Client is the outbound side of one connection. Frames are queued until
// the connection's writer drains them; when the queue is full the oldest
// frame is dropped.
type Client struct {
	ID string

	mu      sync.Mutex
	queue   chan []byte
	closed  bool
	dropped int
}

// Frames is drained by the connection writer. It is closed on Unregister.
func (c *Client) Frames() <-chan []byte {
	return c.queue
}

// Dropped returns how many frames were discarded because the queue was full
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// enqueue never blocks. Reports whether an older frame had to be dropped.
func (c *Client) enqueue(frame []byte) (dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.queue <- frame:
		return false
	default:
	}

	select {
	case <-c.queue:
		c.dropped++
		dropped = true
	default:
	}
	// Other senders hold c.mu, so the freed slot is still free.
	select {
	case c.queue <- frame:
	default:
	}
	return dropped
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
}

// Hub holds the outbound queue of every live connection
type Hub struct {
	buffer int

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		buffer:  buffer,
		clients: make(map[string]*Client),
	}
}

// Register creates the outbound queue for a connection
func (h *Hub) Register(connID string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; ok {
		return nil, ErrDuplicateClient
	}
	c := &Client{ID: connID, queue: make(chan []byte, h.buffer)}
	h.clients[connID] = c
	return c, nil
}

// Unregister removes the connection and closes its queue
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	delete(h.clients, connID)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// ClientCount returns the number of registered connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send encodes the event once and queues it for each listed connection.
// Connections that are no longer registered are skipped. It never blocks
// on a connection and never fails the caller.
func (h *Hub) Send(connIDs []string, event string, data any) {
	if len(connIDs) == 0 {
		return
	}

	frame, err := encode(event, data)
	if err != nil {
		slog.Error("failed to encode event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.enqueue(frame) {
			slog.Warn("dropped oldest frame for slow connection", "conn_id", c.ID, "event", event)
		}
	}
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Event{Event: event, Data: raw})
}
