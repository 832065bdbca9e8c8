// Package platformqueue abstracts the outbound queue a serverless-edge
// deployment pushes drained, built messages onto, per spec.md §4.2: "the
// delivery loop runs inside a batch-consumer that acks successful messages
// and requests redelivery for Failed ones." A long-lived deployment has no
// analogous step — delivery.Loop sends directly.
package platformqueue

import (
	"context"

	"github.com/cbackas/hookbuffer/internal/message"
)

// Queue is the seam a real edge platform's message queue implements
// (e.g. a Cloudflare Queue, SQS, or Pub/Sub binding).
type Queue interface {
	// Push enqueues one built message for path for later delivery.
	Push(ctx context.Context, path string, m message.BuiltMessage) error
}

// Outcome reports what happened to one queued message, fed back by the
// batch consumer driving the queue.
type Outcome int

const (
	// Acked means the message was delivered and should be removed from the queue.
	Acked Outcome = iota
	// Failed means delivery failed and the platform should redeliver it.
	Failed
)

// Consumer drains a batch of queued messages, attempting delivery via
// Deliver and returning each Outcome to its caller.
type Consumer struct {
	Deliver func(ctx context.Context, path string, m message.BuiltMessage) error
}

// Batch is one unit handed to the consumer by the platform's queue runtime:
// a path and its built message. It carries no ack handle; acking or
// retrying follows from the Outcome Consume returns for it.
type Batch struct {
	Path    string
	Message message.BuiltMessage
}

// Consume runs deliver against every item in batch and returns the Outcome
// for each, in order, so the caller can ack or request redelivery per the
// platform's queue API.
func (c *Consumer) Consume(ctx context.Context, batch []Batch) []Outcome {
	outcomes := make([]Outcome, len(batch))
	for i, item := range batch {
		if err := c.Deliver(ctx, item.Path, item.Message); err != nil {
			outcomes[i] = Failed
			continue
		}
		outcomes[i] = Acked
	}
	return outcomes
}
