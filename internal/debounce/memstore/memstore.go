// Package memstore is the in-memory debounce.Store used by the long-lived
// server variant. It is the "coarse shared map + per-key generation"
// substrate: a single mutex guards the whole table, since hold time is
// O(buffer size) and never spans I/O.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/cbackas/hookbuffer/internal/debounce"
	"github.com/cbackas/hookbuffer/internal/event"
)

type entry struct {
	buffer     []event.Event
	deadline   time.Time
	generation uint64
}

// Store is a thread-safe, process-local implementation of debounce.Store.
// The zero value is not usable; construct with New.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Enqueue implements debounce.Store.
func (s *Store) Enqueue(_ context.Context, path string, ev event.Event) (debounce.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[path]
	if !exists {
		s.entries[path] = &entry{
			buffer:   []event.Event{ev},
			deadline: time.Now().Add(debounce.Window),
		}
		return debounce.Created, nil
	}

	e.buffer = append(e.buffer, ev)
	e.deadline = time.Now().Add(debounce.Window)
	return debounce.Refreshed, nil
}

// Arm implements debounce.Store.
func (s *Store) Arm(_ context.Context, path string) (uint64, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[path]
	if !exists {
		return 0, time.Time{}, false, nil
	}
	e.generation++
	return e.generation, e.deadline, true, nil
}

// TryDrain implements debounce.Store. On a successful drain, the entry
// stays in the table with an empty buffer rather than being removed — it
// is never swept, so a path that is never hit again leaks one small entry
// for the life of the process. Leaving it in place is simplest-correct:
// the generation check already prevents any spurious redraining, and a
// new Enqueue against the same path reuses the entry unchanged.
func (s *Store) TryDrain(_ context.Context, path string, expectedGen uint64) ([]event.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[path]
	if !exists || e.generation != expectedGen {
		return nil, false, nil
	}

	taken := e.buffer
	e.buffer = nil
	return taken, true, nil
}
