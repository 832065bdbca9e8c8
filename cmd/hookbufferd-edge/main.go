// Command hookbufferd-edge wires the same ingress and message-building core
// as hookbufferd, but over the kvstore substrate: state persists between
// invocations in a platform KV, and draining happens when the platform
// alarm handler calls RunAlarm instead of a spawned goroutine timer.
//
// This file documents the wiring a real edge runtime's request/alarm
// handlers would call into; the KV and platformqueue.Queue bindings here
// are the seams such a runtime provides (e.g. Durable Object storage and a
// platform queue), not a standalone server process.
package main

import (
	"context"
	"net/http"

	"github.com/cbackas/hookbuffer/internal/applog"
	"github.com/cbackas/hookbuffer/internal/config"
	"github.com/cbackas/hookbuffer/internal/debounce/kvstore"
	"github.com/cbackas/hookbuffer/internal/delivery"
	"github.com/cbackas/hookbuffer/internal/delivery/transport"
	"github.com/cbackas/hookbuffer/internal/event"
	"github.com/cbackas/hookbuffer/internal/httpapi"
	"github.com/cbackas/hookbuffer/internal/message"
	"github.com/cbackas/hookbuffer/internal/platformqueue"
	"github.com/cbackas/hookbuffer/internal/telemetry"
)

// edgeArmer satisfies httpapi.Armer but only bumps the stored generation;
// the actual drain happens later when the platform invokes HandleAlarm.
type edgeArmer struct {
	store *kvstore.Store
	log   applog.Logger
}

func (a edgeArmer) Arm(ctx context.Context, path string) {
	if _, _, _, err := a.store.Arm(ctx, path); err != nil {
		a.log.Error("failed to arm edge entry", "path", path, "error", err)
	}
}

// App bundles everything a request or alarm handler needs. A real
// deployment constructs one App per worker instance, backed by that
// platform's KV and queue bindings.
type App struct {
	Store  *kvstore.Store
	Queue  platformqueue.Queue
	Server *httpapi.Server
	Logger applog.Logger
	Emit   telemetry.Emitter
}

// NewApp wires the edge variant's core: kvstore instead of memstore, and a
// platformqueue.Queue push instead of a direct delivery.Loop call.
func NewApp(kv kvstore.KV, queue platformqueue.Queue, cfg *config.Config, logger applog.Logger) *App {
	store := kvstore.New(kv)
	bus := telemetry.NewBus()
	armer := edgeArmer{store: store, log: logger}

	server := &httpapi.Server{
		Store:       store,
		Armer:       armer,
		Credentials: staticCredentials{config.Credentials{User: cfg.User, Pass: cfg.Pass}},
		Logger:      logger,
		Emit:        bus,
	}

	return &App{Store: store, Queue: queue, Server: server, Logger: logger, Emit: bus}
}

// HandleRequest is the HTTP entrypoint a platform's fetch handler calls.
func (a *App) HandleRequest(w http.ResponseWriter, r *http.Request) {
	a.Server.Router().ServeHTTP(w, r)
}

// HandleAlarm is the entrypoint a platform's alarm handler calls in place
// of the long-lived variant's goroutine timer. It drains path's buffer (if
// the generation is still current) and pushes one built message per group
// onto the configured Queue, rather than sending directly.
func (a *App) HandleAlarm(ctx context.Context, path string) error {
	return kvstore.RunAlarm(ctx, a.Store, path, func(ctx context.Context, path string, events []event.Event) {
		a.Emit.Emit(telemetry.Event{Topic: telemetry.TopicExpiryDrained, Path: path})
		messages := message.Build(events)
		a.Emit.Emit(telemetry.Event{Topic: telemetry.TopicMessageBuilt, Path: path, Attributes: map[string]any{"count": len(messages)}})
		for _, m := range messages {
			if err := a.Queue.Push(ctx, path, m); err != nil {
				a.Logger.Error("failed to push drained message to platform queue", "path", path, "error", err)
			}
		}
	})
}

// ConsumeQueue builds the batch consumer a platform's queue handler calls
// with the batch of messages it delivered to it, sending each via the
// pooled HTTP client and reporting Acked/Failed per spec.md §4.2.
func ConsumeQueue(cfg *config.Config) *platformqueue.Consumer {
	client := transport.New(transport.Config{})
	sender := &delivery.HTTPSender{Client: client}
	return &platformqueue.Consumer{
		Deliver: func(ctx context.Context, path string, m message.BuiltMessage) error {
			url := delivery.JoinURL(cfg.DestinationURL, path)
			return delivery.DeliverOne(ctx, sender, url, m)
		},
	}
}

type staticCredentials struct {
	creds config.Credentials
}

func (s staticCredentials) Current() config.Credentials { return s.creds }

func main() {
	// A real deployment's entrypoint is the platform's own handler
	// registration (e.g. a Worker's fetch/alarm exports), not a standalone
	// process; this main exists so the module builds as a command and to
	// document how NewApp, HandleRequest, HandleAlarm and ConsumeQueue are
	// wired together by that platform glue.
	_ = applog.New()
}
