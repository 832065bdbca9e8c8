// Package telemetry is a small in-memory event bus used to publish
// diagnostic lifecycle events out of the debounce/expiry/delivery
// components without coupling them to a logger or a test's assertions.
// It is a trimmed adaptation of an in-process memory event bus: topic-keyed
// subscriber lists guarded by a single mutex, no persistence, no retention
// window — lifecycle events are diagnostic only and are never replayed.
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one lifecycle notification. Attributes are whatever the
// publishing component finds useful to log or assert on; nothing in the
// core ever reads an Event back. ID identifies a single emitted event; it
// is unique per event, so it does not link the several events (armed,
// drained, built, sent) that one buffered cycle produces.
type Event struct {
	ID         string
	Topic      string
	Path       string
	At         time.Time
	Attributes map[string]any
}

// Emitter is the narrow interface components depend on so they can be
// constructed with telemetry.Noop() in tests that don't care about it.
type Emitter interface {
	Emit(Event)
}

// Bus is an Emitter that fans events out to subscribers registered with
// Subscribe. Publishing never blocks on a slow subscriber: each
// subscription owns a bounded channel and drops events once it's full,
// because lifecycle events are diagnostic, not authoritative.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]chan Event)}
}

// Subscribe returns a channel that receives every Event published with the
// given topic. The channel is closed when cancel is called.
func (b *Bus) Subscribe(topic string) (ch <-chan Event, cancel func()) {
	c := make(chan Event, 64)

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], c)
	b.mu.Unlock()

	var once sync.Once
	return c, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subscribers[topic]
			for i, s := range subs {
				if s == c {
					b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(c)
		})
	}
}

// Emit implements Emitter. It is safe to call from any goroutine. Callers
// normally leave ID unset; Emit stamps one on if so, so every published
// event is independently traceable even when a component doesn't bother
// generating its own.
func (b *Bus) Emit(e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, c := range b.subscribers[e.Topic] {
		select {
		case c <- e:
		default:
			// Subscriber isn't keeping up; drop rather than block the
			// publisher. Lifecycle events never affect core correctness.
		}
	}
}

type noop struct{}

func (noop) Emit(Event) {}

// Noop returns an Emitter that discards every event, for callers that have
// no use for lifecycle telemetry (most unit tests).
func Noop() Emitter { return noop{} }

// Lifecycle topics published by the debounce/expiry/message/delivery
// components.
const (
	TopicEntryCreated    = "debounce.entry.created"
	TopicEntryRefreshed  = "debounce.entry.refreshed"
	TopicExpiryArmed     = "debounce.expiry.armed"
	TopicExpiryDrained   = "debounce.expiry.drained"
	TopicExpiryNoop      = "debounce.expiry.noop"
	TopicMessageBuilt    = "message.built"
	TopicDeliveryAttempt = "delivery.attempt"
	TopicDeliverySuccess = "delivery.success"
	TopicDeliveryFailure = "delivery.failure"
)
