package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cbackas/hookbuffer/internal/applog"
	"github.com/cbackas/hookbuffer/internal/config"
	"github.com/cbackas/hookbuffer/internal/debounce"
	"github.com/cbackas/hookbuffer/internal/debounce/memstore"
	"github.com/stretchr/testify/require"
)

const validBody = `{"series":{"id":1,"title":"Show"},"episodes":[{"seasonNumber":1,"episodeNumber":1,"title":"Pilot"}],"eventType":"Grab"}`

type fakeArmer struct {
	armed []string
}

func (f *fakeArmer) Arm(_ context.Context, path string) {
	f.armed = append(f.armed, path)
}

type staticCreds struct {
	creds config.Credentials
}

func (s staticCreds) Current() config.Credentials { return s.creds }

func newTestServer(creds config.Credentials) (*Server, debounce.Store, *fakeArmer) {
	store := memstore.New()
	armer := &fakeArmer{}
	return &Server{
		Store:       store,
		Armer:       armer,
		Credentials: staticCreds{creds},
		Logger:      applog.NewRecorder(),
	}, store, armer
}

func TestHandleIngressAcceptsValidEvent(t *testing.T) {
	srv, store, armer := newTestServer(config.Credentials{})
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(validBody))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, armer.armed, 1)
	_ = store
}

func TestHandleIngressRejectsBadUserAgent(t *testing.T) {
	srv, _, _ := newTestServer(config.Credentials{})
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(validBody))
	req.Header.Set("User-Agent", "curl/8.0")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIngressRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(config.Credentials{})
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(`{"series":{}}`))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleIngressRejectsUnsupportedKind(t *testing.T) {
	srv, _, armer := newTestServer(config.Credentials{})
	body := `{"series":{"id":1,"title":"Show"},"episodes":[{"seasonNumber":1,"episodeNumber":1}],"eventType":"Rename"}`
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(body))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, armer.armed)
}

func TestHandleIngressRequiresAuthWhenConfigured(t *testing.T) {
	srv, _, _ := newTestServer(config.Credentials{User: "alice", Pass: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(validBody))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleIngressAcceptsCorrectAuth(t *testing.T) {
	srv, _, armer := newTestServer(config.Credentials{User: "alice", Pass: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(validBody))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	req.SetBasicAuth("alice", "secret")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, armer.armed, 1)
}

func TestHandleIngressRejectsWrongAuth(t *testing.T) {
	srv, _, _ := newTestServer(config.Credentials{User: "alice", Pass: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(validBody))
	req.Header.Set("User-Agent", "Sonarr/4.0")
	req.SetBasicAuth("alice", "wrong")
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthcheck(t *testing.T) {
	srv, _, _ := newTestServer(config.Credentials{})
	req := httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	w := httptest.NewRecorder()

	srv.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestHandleIngressRefreshesExistingEntry(t *testing.T) {
	srv, _, armer := newTestServer(config.Credentials{})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/sonarr", strings.NewReader(validBody))
		req.Header.Set("User-Agent", "Sonarr/4.0")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Len(t, armer.armed, 2)
}
