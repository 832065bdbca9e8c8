package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cbackas/hookbuffer/internal/applog"
	"github.com/cbackas/hookbuffer/internal/config"
	"github.com/cbackas/hookbuffer/internal/message"
	"github.com/stretchr/testify/require"
)

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

type recordingQueue struct {
	mu     sync.Mutex
	pushed []message.BuiltMessage
}

func (q *recordingQueue) Push(_ context.Context, _ string, m message.BuiltMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed = append(q.pushed, m)
	return nil
}

const grabBody = `{"series":{"id":1,"title":"Show"},"episodes":[{"seasonNumber":1,"episodeNumber":1,"title":"Pilot"}],"eventType":"Grab"}`

func TestAppHandleRequestThenAlarmPushesToQueue(t *testing.T) {
	queue := &recordingQueue{}
	app := NewApp(newMemKV(), queue, &config.Config{DestinationURL: "https://chat.example/"}, applog.NewRecorder())

	req := httptest.NewRequest("POST", "/sonarr", strings.NewReader(grabBody))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	w := httptest.NewRecorder()
	app.HandleRequest(w, req)
	require.Equal(t, 200, w.Code)

	err := app.HandleAlarm(context.Background(), "/sonarr")
	require.NoError(t, err)
	require.Len(t, queue.pushed, 1)
}

func TestAppHandleAlarmNoopWithoutPriorRequest(t *testing.T) {
	queue := &recordingQueue{}
	app := NewApp(newMemKV(), queue, &config.Config{DestinationURL: "https://chat.example/"}, applog.NewRecorder())

	err := app.HandleAlarm(context.Background(), "/never-armed")
	require.NoError(t, err)
	require.Empty(t, queue.pushed)
}
