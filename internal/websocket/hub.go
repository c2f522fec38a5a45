package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a change notification pushed to the clients of one flat.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	FlatID int64          `json:"flat_id"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(flatID int64, entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		FlatID: flatID,
		ID:     id,
		Extra:  extra,
	}
}

// Broadcaster publishes messages to subscribers of a flat.
type Broadcaster interface {
	Broadcast(msg Message)
}

// Hub tracks connected clients grouped by flat.
type Hub struct {
	mu     sync.RWMutex
	flats  map[int64]map[*Client]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		flats:  make(map[int64]map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.flats[c.flatID]
	if !ok {
		set = make(map[*Client]struct{})
		h.flats[c.flatID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.flats[c.flatID]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.flats, c.flatID)
	}
}

// Broadcast sends msg to every client subscribed to msg.FlatID.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.flats[msg.FlatID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping message for slow client", "flat_id", msg.FlatID, "user_id", c.userID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients across all flats.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.flats {
		n += len(set)
	}
	return n
}

// FlatClientCount returns the number of clients subscribed to flatID.
func (h *Hub) FlatClientCount(flatID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.flats[flatID])
}
