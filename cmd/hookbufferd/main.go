// Command hookbufferd runs the long-lived hookbufferd server: an in-memory
// debounce table, a goroutine-per-expiry scheduler, and a chi-based HTTP
// ingress, all held open for the life of the process.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cbackas/hookbuffer/internal/applog"
	"github.com/cbackas/hookbuffer/internal/config"
	"github.com/cbackas/hookbuffer/internal/debounce/memstore"
	"github.com/cbackas/hookbuffer/internal/delivery"
	"github.com/cbackas/hookbuffer/internal/delivery/transport"
	"github.com/cbackas/hookbuffer/internal/event"
	"github.com/cbackas/hookbuffer/internal/expiry"
	"github.com/cbackas/hookbuffer/internal/httpapi"
	"github.com/cbackas/hookbuffer/internal/message"
	"github.com/cbackas/hookbuffer/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := applog.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	for _, w := range cfg.Validate() {
		logger.Warn("configuration default applied", "field", w.Field, "problem", w.Problem)
	}

	credentials := credentialSource(cfg, logger)

	bus := telemetry.NewBus()
	logLifecycleEvents(bus, logger)

	store := memstore.New()
	client := transport.New(transport.Config{})
	sender := &delivery.HTTPSender{Client: client}

	onDrain := func(ctx context.Context, path string, events []event.Event) {
		messages := message.Build(events)
		bus.Emit(telemetry.Event{
			Topic:      telemetry.TopicMessageBuilt,
			Path:       path,
			At:         time.Now(),
			Attributes: map[string]any{"count": len(messages)},
		})
		url := delivery.JoinURL(cfg.DestinationURL, path)
		delivery.Loop(ctx, sender, bus, path, url, messages)
	}

	scheduler := expiry.New(store, bus, onDrain)

	server := &httpapi.Server{
		Store:       store,
		Armer:       scheduler,
		Credentials: credentials,
		Logger:      logger,
		Emit:        bus,
	}

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting hookbufferd", "port", cfg.Port, "destination", cfg.DestinationURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server stopped unexpectedly", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections", "timeout", shutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// credentialSource resolves the basic-auth credentials source: a
// file-backed, hot-reloading store when HOOKBUFFER_CREDENTIALS_FILE is set,
// otherwise a static pair taken directly from Config.
func credentialSource(cfg *config.Config, logger applog.Logger) httpapi.CredentialsSource {
	if cfg.CredentialsFile == "" {
		return staticCredentials{config.Credentials{User: cfg.User, Pass: cfg.Pass}}
	}

	store, _, err := config.WatchCredentialsFile(cfg.CredentialsFile, logger)
	if err != nil {
		logger.Error("failed to load credentials file, falling back to env credentials", "path", cfg.CredentialsFile, "error", err)
		return staticCredentials{config.Credentials{User: cfg.User, Pass: cfg.Pass}}
	}
	return store
}

type staticCredentials struct {
	creds config.Credentials
}

func (s staticCredentials) Current() config.Credentials { return s.creds }

// logLifecycleEvents subscribes a logging-only observer to every delivery
// lifecycle event, so an operator can trace a buffered webhook from
// acceptance through send without instrumenting each package directly.
func logLifecycleEvents(bus *telemetry.Bus, logger applog.Logger) {
	topics := []string{
		telemetry.TopicEntryCreated,
		telemetry.TopicEntryRefreshed,
		telemetry.TopicExpiryArmed,
		telemetry.TopicExpiryDrained,
		telemetry.TopicExpiryNoop,
		telemetry.TopicMessageBuilt,
		telemetry.TopicDeliveryAttempt,
		telemetry.TopicDeliverySuccess,
		telemetry.TopicDeliveryFailure,
	}
	for _, topic := range topics {
		ch, _ := bus.Subscribe(topic)
		go func(topic string, ch <-chan telemetry.Event) {
			for e := range ch {
				logger.Debug("lifecycle event", "topic", topic, "path", e.Path, "attributes", e.Attributes)
			}
		}(topic, ch)
	}
}
