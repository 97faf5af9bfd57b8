// Package notify is the event channel the core publishes lifecycle events
// to. The core never depends on or blocks on listeners: publishing to a
// subscriber with a full buffer drops the event for that subscriber.
package notify

import "sync"

// Kind classifies a lifecycle event.
type Kind string

const (
	RotationStarted Kind = "rotation_started"
	RotationStopped Kind = "rotation_stopped"
	Committed       Kind = "committed"
	TriggerDropped  Kind = "trigger_dropped"
	CatalogRebuilt  Kind = "catalog_rebuilt"
)

// Event is one lifecycle notification.
type Event struct {
	Kind Kind
	// Image is the identifier involved, when the event concerns one.
	Image string
	// Detail carries free-form context (catalog size, error text).
	Detail string
}

// Bus fans events out to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs []chan Event
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a buffered channel of future events. Subscribers that
// fall behind lose events rather than slowing the core down.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers ev to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
