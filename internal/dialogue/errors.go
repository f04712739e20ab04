package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedInput marks input handled locally (empty message, unparseable
// phone) that must never surface as a crash or raw error text.
var ErrMalformedInput = errors.New("dialogue: malformed input")

// TransientUpstreamError wraps a timeout or rate-limit from an external
// service call. Callers retry once with backoff, then degrade to a canned
// reply for the turn.
type TransientUpstreamError struct {
	Op  string
	Err error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("dialogue: transient upstream failure during %s: %v", e.Op, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error {
	return e.Err
}

// transient tags err as retryable for the named operation.
func transient(op string, err error) error {
	return &TransientUpstreamError{Op: op, Err: err}
}

// withRetry runs fn, retrying exactly once after a short backoff when the
// failure is transient. Non-transient errors pass straight through.
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	var te *TransientUpstreamError
	if !errors.As(err, &te) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(500 * time.Millisecond):
	}
	return fn()
}
