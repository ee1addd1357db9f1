package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// permanentError stops retryOperation early; 4xx answers from collaborators use it.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// retryOperation runs operation up to attempts times with exponential backoff
// (initialBackoff, 2x, 4x, ...). It gives up early on permanent errors or when
// ctx is done.
func retryOperation[T any](ctx context.Context, attempts int, initialBackoff time.Duration, operation func(ctx context.Context) (T, error)) (T, error) {
	var lastErr error
	var zero T

	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(1<<uint(attempt-1))
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("gave up after %d attempt(s): %w", attempt, errors.Join(ctx.Err(), lastErr))
			case <-timer.C:
			}
		}

		result, err := operation(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("gave up after %d attempt(s): %w", attempt+1, errors.Join(ctx.Err(), lastErr))
		}
	}

	return zero, fmt.Errorf("operation failed after %d retries: %w", attempts, lastErr)
}
