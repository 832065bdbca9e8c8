package kvstore

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cbackas/hookbuffer/internal/debounce"
	"github.com/cbackas/hookbuffer/internal/event"
	"github.com/stretchr/testify/require"
)

// memKV is a trivial in-memory KV for testing, standing in for a real edge
// platform's key-value API.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) ListPrefix(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func grabEvent(title string) event.Event {
	return event.Event{
		Series:    event.Series{ID: 1, Title: title},
		Episodes:  []event.Episode{{SeasonNumber: 1, EpisodeNum: 1}},
		EventType: event.KindGrab,
	}
}

func TestEnqueueCreatedThenRefreshed(t *testing.T) {
	store := New(newMemKV())
	ctx := context.Background()

	decision, err := store.Enqueue(ctx, "/sonarr", grabEvent("A"))
	require.NoError(t, err)
	require.Equal(t, debounce.Created, decision)

	decision, err = store.Enqueue(ctx, "/sonarr", grabEvent("B"))
	require.NoError(t, err)
	require.Equal(t, debounce.Refreshed, decision)
}

func TestArmThenTryDrainRoundTrips(t *testing.T) {
	store := New(newMemKV())
	ctx := context.Background()

	_, err := store.Enqueue(ctx, "/sonarr", grabEvent("A"))
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, "/sonarr", grabEvent("B"))
	require.NoError(t, err)

	gen, _, ok, err := store.Arm(ctx, "/sonarr")
	require.NoError(t, err)
	require.True(t, ok)

	events, ok, err := store.TryDrain(ctx, "/sonarr", gen)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, events, 2)

	_, ok, err = store.TryDrain(ctx, "/sonarr", gen)
	require.NoError(t, err)
	require.False(t, ok, "entry should be gone after drain")
}

func TestTryDrainRejectsStaleGeneration(t *testing.T) {
	store := New(newMemKV())
	ctx := context.Background()

	_, err := store.Enqueue(ctx, "/sonarr", grabEvent("A"))
	require.NoError(t, err)

	gen, _, _, err := store.Arm(ctx, "/sonarr")
	require.NoError(t, err)

	_, ok, err := store.TryDrain(ctx, "/sonarr", gen+1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunAlarmDrainsAndInvokesCallback(t *testing.T) {
	store := New(newMemKV())
	ctx := context.Background()

	_, err := store.Enqueue(ctx, "/sonarr", grabEvent("A"))
	require.NoError(t, err)
	_, _, _, err = store.Arm(ctx, "/sonarr")
	require.NoError(t, err)

	var got []event.Event
	err = RunAlarm(ctx, store, "/sonarr", func(_ context.Context, _ string, events []event.Event) {
		got = events
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRunAlarmNoopWhenNoEntry(t *testing.T) {
	store := New(newMemKV())
	ctx := context.Background()

	called := false
	err := RunAlarm(ctx, store, "/unknown", func(context.Context, string, []event.Event) {
		called = true
	})
	require.NoError(t, err)
	require.False(t, called)
}

func TestEntryKeyMatchesHash64Naming(t *testing.T) {
	key := entryKey("/sonarr")
	require.True(t, strings.HasPrefix(key, "groupkey-"))
}
