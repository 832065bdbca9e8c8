// Package kvstore implements the debounce.Store contract against a
// key-value substrate suitable for a serverless-edge runtime (Durable
// Object style storage, a platform KV, or similar), per spec.md's
// "Serverless-edge variant state layout": one persistent entry keyed
// `groupkey-<hash64(path)>` holding the pending buffer, deadline and
// generation, plus a `url` key recording the last target path seen by this
// storage instance.
//
// Unlike memstore, there is no goroutine racing an expiry task against a
// refreshed entry: a serverless-edge platform guarantees a single alarm
// handler invocation per storage instance, so the generation field exists
// only to keep the debounce.Store contract identical across substrates,
// not because kvstore needs it to resolve a race.
package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/cbackas/hookbuffer/internal/debounce"
	"github.com/cbackas/hookbuffer/internal/event"
)

// KV is the minimal key-value seam a real edge runtime implements. Get's
// second return reports whether the key existed.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
}

const urlKey = "url"

type record struct {
	Events     []event.Event `json:"events"`
	Deadline   time.Time     `json:"deadline"`
	Generation uint64        `json:"generation"`
}

// Store is a debounce.Store backed by a KV.
type Store struct {
	kv KV
}

// New returns a Store writing through kv.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// entryKey derives the storage key for path, matching spec.md's
// `groupkey-<hash64>` naming.
func entryKey(path string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(path))
	return fmt.Sprintf("groupkey-%d", h.Sum64())
}

func (s *Store) load(ctx context.Context, path string) (record, bool, error) {
	raw, ok, err := s.kv.Get(ctx, entryKey(path))
	if err != nil || !ok {
		return record{}, ok, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, false, fmt.Errorf("kvstore: decoding entry for %s: %w", path, err)
	}
	return rec, true, nil
}

func (s *Store) save(ctx context.Context, path string, rec record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kvstore: encoding entry for %s: %w", path, err)
	}
	if err := s.kv.Put(ctx, urlKey, []byte(path)); err != nil {
		return fmt.Errorf("kvstore: recording last path: %w", err)
	}
	return s.kv.Put(ctx, entryKey(path), raw)
}

// Enqueue implements debounce.Store.
func (s *Store) Enqueue(ctx context.Context, path string, ev event.Event) (debounce.Decision, error) {
	rec, ok, err := s.load(ctx, path)
	if err != nil {
		return 0, err
	}

	decision := debounce.Refreshed
	if !ok {
		decision = debounce.Created
	}

	rec.Events = append(rec.Events, ev)
	rec.Deadline = time.Now().Add(debounce.Window)

	if err := s.save(ctx, path, rec); err != nil {
		return 0, err
	}
	return decision, nil
}

// Arm implements debounce.Store. Since the platform owns alarm scheduling,
// Arm only bumps the generation stamp for contract parity with memstore; the
// caller (a platform alarm API, not a goroutine) is responsible for
// actually firing TryDrain at the deadline.
func (s *Store) Arm(ctx context.Context, path string) (uint64, time.Time, bool, error) {
	rec, ok, err := s.load(ctx, path)
	if err != nil || !ok {
		return 0, time.Time{}, false, err
	}
	rec.Generation++
	if err := s.save(ctx, path, rec); err != nil {
		return 0, time.Time{}, false, err
	}
	return rec.Generation, rec.Deadline, true, nil
}

// TryDrain implements debounce.Store: it returns the buffered events and
// deletes the entry only if expectedGen still matches the stored
// generation, then removes the entry entirely (unlike memstore, which
// leaves an empty entry behind for lazy GC — a KV entity should not linger
// once drained).
func (s *Store) TryDrain(ctx context.Context, path string, expectedGen uint64) ([]event.Event, bool, error) {
	rec, ok, err := s.load(ctx, path)
	if err != nil || !ok {
		return nil, false, err
	}
	if rec.Generation != expectedGen {
		return nil, false, nil
	}

	if err := s.kv.Delete(ctx, entryKey(path)); err != nil {
		return nil, false, fmt.Errorf("kvstore: deleting drained entry for %s: %w", path, err)
	}
	return rec.Events, true, nil
}

// RunAlarm is the entrypoint a platform alarm handler calls instead of
// spawning the goroutine expiry.Scheduler.Arm would: read the current
// generation, attempt the drain, and invoke onDrain with whatever was
// taken. It replaces expiry.Scheduler entirely for the edge variant.
func RunAlarm(ctx context.Context, store *Store, path string, onDrain func(ctx context.Context, path string, events []event.Event)) error {
	rec, ok, err := store.load(ctx, path)
	if err != nil || !ok {
		return err
	}

	events, drained, err := store.TryDrain(ctx, path, rec.Generation)
	if err != nil || !drained || len(events) == 0 {
		return err
	}

	onDrain(ctx, path, events)
	return nil
}
