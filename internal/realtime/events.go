package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	EventRequestCreated      = "request.created"
	EventRequestStateChanged = "request.state_changed"
	EventRequestCancelled    = "request.cancelled"
	EventPaymentSettled      = "payment.settled"
	EventRatingSubmitted     = "rating.submitted"

	// ChannelEvents carries every event for downstream consumers.
	ChannelEvents = "market:events"
)

type Event struct {
	Type         string    `json:"type"`
	JobRequestID uuid.UUID `json:"job_request_id"`
	Data         any       `json:"data,omitempty"`
	At           time.Time `json:"at"`
}

// Publisher announces committed workflow changes. Implementations must not
// fail the caller: the change is already durable when Publish runs.
type Publisher interface {
	Publish(ctx context.Context, evt Event, recipients ...uuid.UUID)
}

// Notifier publishes to Redis and pushes to the recipients' open connections.
type Notifier struct {
	RDB *redis.Client
	Hub *Hub
	Log *slog.Logger
}

func (n *Notifier) Publish(ctx context.Context, evt Event, recipients ...uuid.UUID) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		n.Log.Error("marshal event failed", "type", evt.Type, "err", err)
		return
	}

	if n.RDB != nil {
		if err := n.RDB.Publish(ctx, ChannelEvents, payload).Err(); err != nil {
			n.Log.Warn("publish event failed", "type", evt.Type, "job_request_id", evt.JobRequestID, "err", err)
		}
	}
	for _, id := range recipients {
		if n.RDB != nil {
			if err := n.RDB.Publish(ctx, "notifications:"+id.String(), payload).Err(); err != nil {
				n.Log.Warn("publish notification failed", "client_id", id, "err", err)
			}
		}
		if n.Hub != nil {
			n.Hub.SendTo(id, payload)
		}
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
	To     [][]uuid.UUID
}

func (r *Recorder) Publish(_ context.Context, evt Event, recipients ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, evt)
	r.To = append(r.To, recipients)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event, ...uuid.UUID) {}

// Nop discards events.
var Nop Publisher = nopPublisher{}
