package retry

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

// AttemptFunc is called once per attempt with a 1-based attempt number
type AttemptFunc func(attempt int) error

// Do runs fn until it succeeds, returns a non-retryable error, or the
// policy's attempt budget is spent. It never recurses and always terminates.
// The returned error wraps the last error seen.
func Do(ctx context.Context, policy Policy, fn AttemptFunc) error {
	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid retry policy: %w", err)
	}

	isRetryable := policy.RetryableFunc
	if isRetryable == nil {
		isRetryable = IsTemporaryError
	}

	backoff := NewBackoff(policy)
	maxAttempts := policy.MaxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled by context: %w", err)
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}

		if delay := backoff.Calculate(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry cancelled by context: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, maxAttempts, lastErr)
}

// IsTemporaryError is the default retry predicate
func IsTemporaryError(err error) bool {
	return apperrors.ShouldRetry(err)
}
