// Package httpapi implements the ingress HTTP surface (C7): a chi router
// that authenticates, validates producer identity, parses and accept-gates
// inbound webhook events, then enqueues and arms them in the debounce core.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cbackas/hookbuffer/internal/applog"
	"github.com/cbackas/hookbuffer/internal/config"
	"github.com/cbackas/hookbuffer/internal/debounce"
	"github.com/cbackas/hookbuffer/internal/event"
	"github.com/cbackas/hookbuffer/internal/groupkey"
	"github.com/cbackas/hookbuffer/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CredentialsSource supplies the presently active basic-auth credentials.
// *config.CredentialStore satisfies this.
type CredentialsSource interface {
	Current() config.Credentials
}

// Armer arms an expiry task for path after an Enqueue. *expiry.Scheduler
// satisfies this; declaring a narrow interface here keeps httpapi's tests
// independent of expiry's timers.
type Armer interface {
	Arm(ctx context.Context, path string)
}

// Server holds everything the ingress handlers need.
type Server struct {
	Store       debounce.Store
	Armer       Armer
	Credentials CredentialsSource
	Logger      applog.Logger
	Emit        telemetry.Emitter
}

func (s *Server) emitter() telemetry.Emitter {
	if s.Emit == nil {
		return telemetry.Noop()
	}
	return s.Emit
}

// Router builds the chi router: request-ID and panic-recovery middleware on
// every route, the debounce ingress on POST /{path...}, and a liveness
// check on GET /healthcheck.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", s.handleHealthcheck)
	r.Post("/*", s.handleIngress)

	return r
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleIngress implements spec.md's ingress pipeline: auth -> User-Agent ->
// parse (C1) -> normalise + accept-gate (C2) -> enqueue (C3) -> arm (C4).
func (s *Server) handleIngress(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if err := checkBasicAuth(r.Header, s.Credentials.Current()); err != nil {
		s.reject(w, path, err)
		return
	}
	if err := checkUserAgent(r.Header); err != nil {
		s.reject(w, path, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.reject(w, path, ErrMalformedEvent)
		return
	}

	ev, err := event.Parse(body)
	if err != nil {
		s.reject(w, path, ErrMalformedEvent)
		return
	}

	ev = groupkey.Normalise(ev)
	if !groupkey.Accept(ev.EventType) {
		s.reject(w, path, ErrUnsupportedKind)
		return
	}

	decision, err := s.Store.Enqueue(r.Context(), path, ev)
	if err != nil {
		s.Logger.Error("failed to enqueue event", "path", path, "error", err)
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	s.Armer.Arm(r.Context(), path)

	topic := telemetry.TopicEntryCreated
	if decision == debounce.Refreshed {
		topic = telemetry.TopicEntryRefreshed
	}
	s.emitter().Emit(telemetry.Event{Topic: topic, Path: path, At: time.Now()})

	s.Logger.Debug("event accepted", "path", path, "kind", ev.EventType, "decision", decision)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "buffered"})
}

func (s *Server) reject(w http.ResponseWriter, path string, err error) {
	code := statusCode(err)
	s.Logger.Warn("ingress rejected request", "path", path, "reason", err, "status", code)
	http.Error(w, `{"status":"`+err.Error()+`"}`, code)
}
