// Package realtime fans events out to connected clients over buffered
// channels. Handlers stream them as server-sent events.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is one realtime notification. Type distinguishes message traffic from
// form status updates so clients can route on it.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const subscriberBuffer = 16

// Hub tracks subscribers and broadcasts events to all of them. A subscriber
// that cannot keep up has events dropped rather than blocking the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan Event)}
}

// Subscribe registers a new listener and returns its channel plus an id to
// unsubscribe with. The channel is closed on Unsubscribe.
func (h *Hub) Subscribe() (string, <-chan Event) {
	id := uuid.NewString()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Broadcast delivers an event to every subscriber without blocking.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			log.Warn().Str("subscriber", id).Str("event", ev.Type).Msg("dropping event for slow subscriber")
		}
	}
}

// Count reports the number of active subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
