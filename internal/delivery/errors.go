package delivery

import (
	"errors"
	"fmt"
)

// ErrTransport is returned when the egress request failed below the HTTP
// layer (DNS, connect, TLS, timeout). The core does not retry these — the
// downstream is assumed unreachable, and the outer infrastructure may retry
// at the batch layer.
var ErrTransport = errors.New("delivery transport error")

// ErrThrottled is returned when the egress endpoint kept responding 429
// past the backoff cap.
var ErrThrottled = errors.New("delivery throttled past backoff cap")

// StatusError wraps a non-2xx, non-429 egress response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("delivery failed with status %d", e.Status)
}
