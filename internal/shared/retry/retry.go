// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures Do.
//
// The delay before attempt k (k >= 2) is BaseDelay * 2^(k-2); there is no jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Label identifies the operation in logs and in the exhausted error.
	Label string
	// Retryable decides whether a failure is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
	// OnRetry is called before each sleep with the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
// It unwraps to the last attempt's error so classification survives.
type ExhaustedError struct {
	Label    string
	Attempts []string
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %s", e.Label, len(e.Attempts), strings.Join(e.Attempts, "; "))
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxAttempts-1)), ctx)
}

// Do calls op until it succeeds, returns a non-retryable error, or MaxAttempts is reached.
// Non-retryable errors are returned unchanged after a single attempt.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result    T
		attempt   int
		attempts  []string
		permanent bool
	)

	operation := func() error {
		attempt++
		v, err := op(ctx)
		if err == nil {
			result = v
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		attempts = append(attempts, fmt.Sprintf("attempt %d: %v", attempt, err))
		return err
	}

	notify := func(err error, d time.Duration) {
		slog.Warn("retrying after failure",
			"label", p.Label, "attempt", attempt, "max_attempts", p.MaxAttempts, "delay", d, "error", err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, d)
		}
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), notify)
	if err == nil {
		return result, nil
	}

	var zero T
	if permanent || len(attempts) == 0 {
		return zero, err
	}
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return zero, err
	}
	return zero, &ExhaustedError{Label: p.Label, Attempts: attempts, Err: err}
}
