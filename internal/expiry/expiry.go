// Package expiry implements the per-target expiry scheduler (C4): arming a
// delayed drain after every enqueue, and validating the captured generation
// before a drain is allowed to fire. Deadlines are never cancelled once
// armed — a refreshed entry simply lets the stale task observe a
// generation mismatch and self-retire, which avoids any cancellation API
// surface.
package expiry

import (
	"context"
	"time"

	"github.com/cbackas/hookbuffer/internal/debounce"
	"github.com/cbackas/hookbuffer/internal/event"
	"github.com/cbackas/hookbuffer/internal/telemetry"
)

// Drain is invoked with the events taken from a path's buffer once its
// expiry task fires and its generation is still current.
type Drain func(ctx context.Context, path string, events []event.Event)

// Scheduler arms expiry tasks against a debounce.Store.
type Scheduler struct {
	store   debounce.Store
	emit    telemetry.Emitter
	onDrain Drain

	// sleep is overridable in tests so they don't have to wait out the
	// real debounce window.
	sleep func(ctx context.Context, until time.Time)
}

// New returns a Scheduler that arms tasks against store and hands drained
// buffers to onDrain. emit may be telemetry.Noop() if lifecycle events
// aren't needed.
func New(store debounce.Store, emit telemetry.Emitter, onDrain Drain) *Scheduler {
	if emit == nil {
		emit = telemetry.Noop()
	}
	return &Scheduler{
		store:   store,
		emit:    emit,
		onDrain: onDrain,
		sleep:   sleepUntil,
	}
}

func sleepUntil(ctx context.Context, until time.Time) {
	timer := time.NewTimer(time.Until(until))
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Arm increments the generation for path and, if an entry exists, spawns an
// independent goroutine that sleeps until the captured deadline and then
// attempts the drain. It returns immediately; callers invoke Arm once per
// Enqueue, per spec.
func (s *Scheduler) Arm(ctx context.Context, path string) {
	gen, deadline, ok, err := s.store.Arm(ctx, path)
	if err != nil || !ok {
		return
	}

	s.emit.Emit(telemetry.Event{
		Topic: telemetry.TopicExpiryArmed,
		Path:  path,
		At:    time.Now(),
		Attributes: map[string]any{
			"generation": gen,
			"deadline":   deadline,
		},
	})

	go s.run(path, gen, deadline)
}

// run is the body of one expiry task: sleep until the captured absolute
// deadline (never a re-computed duration, so later arms don't compress it),
// then try to drain at the captured generation.
func (s *Scheduler) run(path string, gen uint64, deadline time.Time) {
	// Detached from any request context: an expiry task must outlive the
	// HTTP request that armed it.
	ctx := context.Background()
	s.sleep(ctx, deadline)

	events, ok, err := s.store.TryDrain(ctx, path, gen)
	if err != nil || !ok {
		s.emit.Emit(telemetry.Event{
			Topic:      telemetry.TopicExpiryNoop,
			Path:       path,
			At:         time.Now(),
			Attributes: map[string]any{"generation": gen},
		})
		return
	}

	s.emit.Emit(telemetry.Event{
		Topic: telemetry.TopicExpiryDrained,
		Path:  path,
		At:    time.Now(),
		Attributes: map[string]any{
			"generation": gen,
			"count":      len(events),
		},
	})

	if len(events) == 0 {
		return
	}

	s.onDrain(ctx, path, events)
}
