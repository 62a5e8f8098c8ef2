package engine

import (
	"context"
	"time"

	"github.com/harrisonrobin/taskbridge/pkg/adapter"
)

const (
	defaultBaseBackoff = 500 * time.Millisecond
	maxBackoff         = 8 * time.Second
)

// withRetry runs op, retrying transient adapter failures with exponential
// backoff up to maxAttempts. Permanent failures and context cancellation
// return immediately.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, op func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if base <= 0 {
		base = defaultBaseBackoff
	}

	delay := base
	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil || !adapter.IsTransient(err) || attempt >= maxAttempts {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}
