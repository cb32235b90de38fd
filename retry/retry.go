package retry

import (
	"context"
	"slices"
	"time"

	"github.com/Keksclan/goFuseSquirrel/breaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls the retry behaviour of [Do].
type Config struct {
	// MaxAttempts is the maximum number of times fn is called (including
	// the first attempt). Values ≤ 1 mean no retries.
	MaxAttempts int

	// BaseDelay is the delay before the first retry. Subsequent retries
	// use exponential back-off: BaseDelay * 2^attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed back-off delay.
	MaxDelay time.Duration

	// Jitter adds randomness to the delay. A value of 0.2 means ±20 % of
	// the computed delay. Zero disables jitter.
	Jitter float64

	// RetryCodes lists the gRPC status codes that are considered
	// retryable. An empty list means no status error is retried.
	RetryCodes []codes.Code

	// RetryOnOpen additionally treats circuit rejections as retryable:
	// breaker.ErrOpen and codes.Unavailable status errors. An open
	// circuit often closes again after a quiet interval, so waiting out
	// the back-off is frequently all the recovery a caller needs.
	RetryOnOpen bool
}

// Do calls fn up to cfg.MaxAttempts times, retrying only when the returned
// error is retryable under cfg. Between attempts an exponential back-off
// delay (with optional jitter) is applied.
//
// The context is checked before every retry; if ctx is done the function
// returns immediately with the context error.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(cfg.MaxAttempts, 1)

	for i := range attempts {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		// Last attempt — return immediately regardless of the error.
		if i == attempts-1 {
			return zero, err
		}

		if !retryable(cfg, err) {
			return zero, err
		}

		// Wait with back-off, but respect context cancellation.
		delay := backoff(cfg, i)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	// Unreachable, but keeps the compiler happy.
	return zero, nil
}

// retryable reports whether err should be retried under cfg.
func retryable(cfg Config, err error) bool {
	if cfg.RetryOnOpen {
		if breaker.IsOpen(err) {
			return true
		}
		if st, ok := status.FromError(err); ok && st.Code() == codes.Unavailable {
			return true
		}
	}
	st, ok := status.FromError(err)
	return ok && slices.Contains(cfg.RetryCodes, st.Code())
}
