// Package broker publishes dispatch messages to the message broker consumed by
// the external sender. NATS JetStream, AMQP and Kafka are supported.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// Supported drivers.
const (
	DriverNATS  = "nats"
	DriverAMQP  = "amqp"
	DriverKafka = "kafka"
)

// Config selects and configures a publisher.
type Config struct {
	Driver string
	URL    string
	// Addresses is the Kafka broker list.
	Addresses []string
	// Stream is the JetStream stream or the AMQP exchange. Empty disables provisioning.
	Stream   string
	Subject  string
	Encoding string
	// PublishTimeout bounds one publish including its acknowledgement.
	PublishTimeout time.Duration
	// BreakerFailures consecutive failures open the circuit. Zero disables it.
	BreakerFailures    int
	BreakerOpenTimeout time.Duration
}

// Publisher publishes dispatch messages and owns the broker connection.
type Publisher interface {
	Publish(ctx context.Context, msg domain.DispatchMessage) error
	Close() error
}

// New connects the publisher selected by cfg.Driver.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Publisher, error) {
	encoder, err := NewEncoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	var publisher Publisher
	switch cfg.Driver {
	case DriverNATS:
		publisher, err = NewNATSPublisher(ctx, cfg, encoder, logger)
	case DriverAMQP:
		publisher, err = NewAMQPPublisher(cfg, encoder, logger)
	case DriverKafka:
		publisher = NewKafkaPublisher(cfg, encoder)
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported broker driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, err
	}

	if cfg.BreakerFailures > 0 {
		publisher = NewBreakerPublisher(publisher, cfg.Driver, cfg.BreakerFailures, cfg.BreakerOpenTimeout, logger)
	}
	return publisher, nil
}

func withPublishTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
