package broker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/allisson/mailqueue/internal/email/domain"
)

// BreakerPublisher rejects publishes while the broker keeps failing. A
// rejected publish returns domain.ErrBrokerCircuitOpen without touching the
// broker.
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerPublisher wraps next with a circuit breaker that opens after
// failures consecutive publish errors and probes again after openTimeout.
func NewBreakerPublisher(
	next Publisher,
	name string,
	failures int,
	openTimeout time.Duration,
	logger *slog.Logger,
) *BreakerPublisher {
	settings := gobreaker.Settings{
		Name:        "broker-" + name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about broker health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("broker circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &BreakerPublisher{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Publish forwards msg unless the circuit is open.
func (b *BreakerPublisher) Publish(ctx context.Context, msg domain.DispatchMessage) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.ErrBrokerCircuitOpen
	}
	return err
}

// State returns the current breaker state.
func (b *BreakerPublisher) State() gobreaker.State {
	return b.cb.State()
}

// Close closes the wrapped publisher.
func (b *BreakerPublisher) Close() error {
	return b.next.Close()
}
