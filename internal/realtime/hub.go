package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Subscriber is one open live-update connection of a client.
type Subscriber struct {
	ID       string
	ClientID uuid.UUID
	Send     chan []byte
}

func NewSubscriber(clientID uuid.UUID) *Subscriber {
	return &Subscriber{
		ID:       uuid.NewString(),
		ClientID: clientID,
		Send:     make(chan []byte, 32),
	}
}

// Hub fans request and payment updates out to the connections of the two
// parties of a job request.
type Hub struct {
	subs   map[string]*Subscriber
	closed bool
	mu     sync.RWMutex
	log    *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[string]*Subscriber),
		log:  log,
	}
}

// Register adds s. After the hub stops, s.Send is closed immediately.
func (h *Hub) Register(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.Send)
		return
	}
	h.subs[s.ID] = s
	h.log.Debug("subscriber registered", "subscriber", s.ID, "client_id", s.ClientID)
}

// Unregister removes s and closes its channel. It is safe to call twice.
func (h *Hub) Unregister(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.subs[s.ID]; ok {
		delete(h.subs, s.ID)
		close(old.Send)
		h.log.Debug("subscriber unregistered", "subscriber", s.ID)
	}
}

// SendTo delivers payload to every connection of clientID. Full buffers are
// skipped rather than blocking the caller.
func (h *Hub) SendTo(clientID uuid.UUID, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, s := range h.subs {
		if s.ClientID != clientID {
			continue
		}
		select {
		case s.Send <- payload:
			delivered++
		default:
			h.log.Warn("realtime buffer full, dropping update", "subscriber", s.ID, "client_id", clientID)
		}
	}
	return delivered
}

// Run blocks until ctx is done, then closes every subscriber.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		close(s.Send)
		delete(h.subs, id)
	}
	h.log.Info("realtime hub stopped")
}
