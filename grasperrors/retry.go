package grasperrors

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy (§7): initial 200ms, factor 2, cap 8s, max 5 attempts, with jitter.
const (
	initialInterval = 200 * time.Millisecond
	maxInterval     = 8 * time.Second
	multiplier      = 2.0
	maxAttempts     = 5
)

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = maxInterval
	b.Multiplier = multiplier
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(maxAttempts-1))
}

// WithRetry runs op, retrying with exponential backoff and jitter when it
// returns a retriable-category Error. Non-retriable errors (user-actionable,
// fatal) are returned immediately on first failure.
func WithRetry(ctx context.Context, op func() error) error {
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(attempt, backoff.WithContext(newBackOff(), ctx))
}

// WithTimeout converts a context deadline exceeded into a typed timeout
// error, preserving context fields for upstream telemetry.
func WithTimeout(ctx context.Context, d time.Duration, label string, fields map[string]interface{}, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			return New(CodeOperationAborted, "operation aborted").WithContext(fields)
		}
		return Wrap(ctx.Err(), CodeTimeout, fmt.Sprintf("%s timed out after %s", label, d)).WithContext(fields)
	}
}
