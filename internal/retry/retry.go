// Package retry runs store and broker operations with bounded exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// Policy bounds a retried operation. MaxRetries of zero runs the operation once.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy returns the policy used for transient store failures.
func DefaultPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// IsRetryable reports whether err may succeed on a later attempt. Logical
// outcomes (not found, conflict, invalid input) and cancellation are final.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case apperrors.Is(err, context.Canceled), apperrors.Is(err, context.DeadlineExceeded):
		return false
	case apperrors.Is(err, apperrors.ErrNotFound),
		apperrors.Is(err, apperrors.ErrConflict),
		apperrors.Is(err, apperrors.ErrInvalidInput):
		return false
	default:
		return true
	}
}

// Stop marks err as final so Do returns it without further attempts.
func Stop(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts the
// policy or ctx is done. The last error is returned.
func Do(ctx context.Context, policy Policy, logger *slog.Logger, operation string, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}
	b.MaxElapsedTime = 0

	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := fn(ctx)
			if err != nil && !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		bo,
		func(err error, wait time.Duration) {
			if logger == nil {
				return
			}
			logger.Warn("retrying operation",
				slog.String("operation", operation),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err),
			)
		},
	)
	return err
}
