// Package delivery implements the delivery loop (C6): posting each built
// message to its target's egress URL with exponential backoff on
// throttling, and pacing successive sends to stay under downstream rate
// limits.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cbackas/hookbuffer/internal/message"
	"github.com/cbackas/hookbuffer/internal/telemetry"
)

const (
	initialBackoff = 4 * time.Second
	backoffCap     = 128 * time.Second
	interSendPause = 1 * time.Second
)

// JoinURL composes a target's egress URL from a base (config.Config's
// DestinationURL, always normalised to end in "/") and the ingress path
// (always starting with "/"). Naively concatenating the two would double
// the slash, so the base's trailing slash is stripped first.
func JoinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + path
}

// sleep is overridable in tests so the backoff and inter-send pacing don't
// have to run in real time.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// wirePayload mirrors the external webhook schema from spec.md §6.
type wirePayload struct {
	Content string      `json:"content"`
	Embeds  []wireEmbed `json:"embeds"`
}

type wireEmbed struct {
	Title       string `json:"title"`
	Color       int    `json:"color"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Fields      []any  `json:"fields"`
}

func toWire(m message.BuiltMessage) wirePayload {
	embeds := make([]wireEmbed, 0, len(m.Embeds))
	for _, e := range m.Embeds {
		embeds = append(embeds, wireEmbed{
			Title:       e.Title,
			Color:       e.Color,
			Description: e.Description,
			Type:        e.Type,
			Fields:      []any{},
		})
	}
	return wirePayload{Content: m.Content, Embeds: embeds}
}

// Sender posts one BuiltMessage to a destination URL and classifies the
// response per the retry state machine. Tests substitute a fake Sender to
// exercise the retry loop without a real HTTP server.
type Sender interface {
	Send(ctx context.Context, url string, m message.BuiltMessage) error
}

// HTTPSender is the production Sender, posting JSON bodies with client.
type HTTPSender struct {
	Client *http.Client
}

// Send implements Sender.
func (s *HTTPSender) Send(ctx context.Context, url string, m message.BuiltMessage) error {
	body, err := json.Marshal(toWire(m))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return ErrTransport
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &throttledResponse{}
	}
	return &StatusError{Status: resp.StatusCode}
}

// throttledResponse is an internal marker distinguishing a 429 from other
// non-2xx statuses inside deliverOne's retry loop.
type throttledResponse struct{}

func (*throttledResponse) Error() string { return "throttled" }

// DeliverOne runs the single-send retry state machine against one message,
// for callers that drive delivery outside the Loop pacing model (the
// serverless-edge variant's queue consumer, which paces via the platform
// queue's own batching instead of an inter-send sleep).
func DeliverOne(ctx context.Context, sender Sender, url string, m message.BuiltMessage) error {
	return deliverOne(ctx, sender, url, m)
}

// deliverOne runs the single-send retry state machine from spec.md §4.6:
// Sending -> {Done, Retrying, Failed}. Initial backoff 4s, doubling, capped
// once the next backoff would exceed 128s.
func deliverOne(ctx context.Context, sender Sender, url string, m message.BuiltMessage) error {
	backoff := initialBackoff

	for {
		err := sender.Send(ctx, url, m)
		if err == nil {
			return nil
		}
		if _, throttled := err.(*throttledResponse); !throttled {
			return err
		}

		if sleepErr := sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}

		if backoff*2 > backoffCap {
			return ErrThrottled
		}
		backoff *= 2
	}
}

// Loop posts every message built for a single drained buffer, in order,
// pausing interSendPause after each message except the last, whether its
// send succeeded or failed. A failed send is
// logged via telemetry and the loop moves on to the next message: a
// failure on one group must not block delivery of independent groups.
func Loop(ctx context.Context, sender Sender, emit telemetry.Emitter, path, url string, messages []message.BuiltMessage) {
	if emit == nil {
		emit = telemetry.Noop()
	}

	for i, m := range messages {
		emit.Emit(telemetry.Event{Topic: telemetry.TopicDeliveryAttempt, Path: path, At: time.Now()})

		err := deliverOne(ctx, sender, url, m)
		if err != nil {
			emit.Emit(telemetry.Event{
				Topic:      telemetry.TopicDeliveryFailure,
				Path:       path,
				At:         time.Now(),
				Attributes: map[string]any{"error": err.Error()},
			})
		} else {
			emit.Emit(telemetry.Event{Topic: telemetry.TopicDeliverySuccess, Path: path, At: time.Now()})
		}

		if i < len(messages)-1 {
			if sleepErr := sleep(ctx, interSendPause); sleepErr != nil {
				return
			}
		}
	}
}
