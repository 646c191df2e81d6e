package observability

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one structured ledger event with a unique identifier.
type Event struct {
	ID         string
	Type       string
	Timestamp  time.Time
	Attributes map[string]string
}

// EventRecorder keeps a bounded in-memory trail of ledger events for
// inspection endpoints. Oldest entries are dropped once the limit is hit.
type EventRecorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

func NewEventRecorder(limit int) *EventRecorder {
	if limit <= 0 {
		limit = 1024
	}
	return &EventRecorder{limit: limit}
}

// Emit appends a new event and returns it.
func (r *EventRecorder) Emit(eventType string, attributes map[string]string) Event {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
	if len(attributes) > 0 {
		event.Attributes = make(map[string]string, len(attributes))
		for k, v := range attributes {
			event.Attributes[k] = v
		}
	}
	if r == nil {
		return event
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return event
}

// Recent returns up to n most recent events, newest last.
func (r *EventRecorder) Recent(n int) []Event {
	if r == nil || n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.events) {
		n = len(r.events)
	}
	out := make([]Event, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}
