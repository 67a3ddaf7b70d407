// Package retry runs an operation a bounded number of times with a fixed
// wait between attempts. Only errors wrapped with Retryable are retried;
// anything else stops the loop immediately.
package retry

import (
	"context"
	"errors"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int           // Attempts including the first; values below 1 mean 1
	Wait        time.Duration // Fixed wait between attempts
	// OnRetry is called before each wait with the failed attempt number.
	OnRetry func(attempt int, err error)
}

// RetryableError wraps an error that should be retried.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string {
	return e.Err.Error()
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error should be retried.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// Retryable wraps an error to mark it as retryable.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return RetryableError{Err: err}
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// attempts are exhausted. It returns the attempt count alongside the last
// error, with any RetryableError wrapper removed.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) (int, error) {
	attempts := max(cfg.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = unwrapRetryable(err)

		if !IsRetryable(err) || attempt == attempts {
			return attempt, lastErr
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}
		if err := wait(ctx, cfg.Wait); err != nil {
			return attempt, err
		}
	}
	return attempts, lastErr
}

func unwrapRetryable(err error) error {
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Err
	}
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
