// Package debounce defines the per-target debounce table contract (C3):
// buffering events by target path behind a sliding deadline, guarded by a
// generation counter so only one armed expiry task ever drains a given
// cycle. Concrete storage substrates (in-memory, KV-backed) live in the
// memstore and kvstore subpackages.
package debounce

import (
	"context"
	"time"

	"github.com/cbackas/hookbuffer/internal/event"
)

// Decision reports what Enqueue did to the entry for a path.
type Decision int

const (
	// Created indicates a new entry was inserted for a previously-unseen path.
	Created Decision = iota
	// Refreshed indicates an existing entry's deadline was pushed forward.
	Refreshed
)

// Window is the debounce window: how long a target path must be quiet
// before its buffer is eligible for draining.
const Window = 15 * time.Second

// Store is the contract a debounce substrate must satisfy. All three
// operations must appear atomic with respect to each other for a given
// path. The in-memory store serialises them with a single mutex; the
// KV-backed store takes no lock of its own and relies on the edge platform
// running one handler at a time per storage instance.
type Store interface {
	// Enqueue appends ev to the buffer for path, creating the entry if
	// necessary, and always sets the entry's deadline to now+Window.
	Enqueue(ctx context.Context, path string, ev event.Event) (Decision, error)

	// Arm increments the entry's generation and returns the new generation
	// together with its current deadline. ok is false if no entry exists
	// for path (e.g. it was already drained and not since refreshed).
	Arm(ctx context.Context, path string) (gen uint64, deadline time.Time, ok bool, err error)

	// TryDrain removes and returns the buffered events for path if the
	// entry's current generation equals expectedGen. A generation mismatch
	// means a newer arrival refreshed the entry after this caller's task
	// was armed, so ok is false and no events are returned.
	TryDrain(ctx context.Context, path string, expectedGen uint64) (events []event.Event, ok bool, err error)
}
