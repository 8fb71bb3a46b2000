package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// TransientError marks a broker failure worth retrying: timeouts, resets,
// rate limits, upstream 5xx. The executor retries these with backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient broker error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that retrying cannot fix, such as an
// order rejected by the broker or an unknown symbol.
type PermanentError struct {
	Op     string
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker rejected %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("broker rejected %s: %s", e.Op, e.Reason)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable.
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// NewPermanentError wraps err as non-retryable.
func NewPermanentError(op, reason string, err error) *PermanentError {
	return &PermanentError{Op: op, Reason: reason, Err: err}
}

// IsTransient reports whether err should be retried. Unclassified errors
// are inspected for the usual network failure shapes; anything explicitly
// permanent is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection reset", "connection refused", "temporarily unavailable", "rate limit", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
