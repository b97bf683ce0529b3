package service

import (
	"sync"

	"github.com/joeblew999/plat-mapview/internal/logging"
)

// Event kinds published on the bus.
const (
	EventViewport = "viewport"
	EventGesture  = "gesture"
	EventRefresh  = "refresh"
	EventSession  = "session"
)

// Event is a change in one session.
type Event struct {
	Session string // session ID
	Kind    string // EventViewport, EventGesture, EventRefresh, EventSession
	Action  string // session events: "created", "deleted"

	Viewport *ViewportState
	Gesture  *GestureEvent
}

// EventBus is a simple fan-out pub/sub for session events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish sends an event to all subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			logging.Logger().Warn("service: dropped event for slow subscriber", "session", e.Session, "kind", e.Kind)
		}
	}
}

// Subscribe returns a buffered channel that receives events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// Subscribers returns the number of active subscribers.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
