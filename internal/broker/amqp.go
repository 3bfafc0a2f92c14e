package broker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes persistent messages on a confirm-mode channel and
// waits for the broker ack of each one.
type AMQPPublisher struct {
	conn     io.Closer
	ch       amqpChannel
	confirms <-chan amqp.Confirmation
	exchange string
	key      string
	encoder  *Encoder
	timeout  time.Duration

	mu  sync.Mutex
	tag uint64
}

// NewAMQPPublisher dials cfg.URL and declares a durable queue named
// cfg.Subject. When cfg.Stream is set it also declares that topic exchange and
// binds the queue to it with cfg.Subject as the routing key.
func NewAMQPPublisher(cfg Config, encoder *Encoder, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to amqp broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, apperrors.Wrap(err, "failed to open amqp channel")
	}

	fail := func(err error, message string) (*AMQPPublisher, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, apperrors.Wrap(err, message)
	}

	q, err := ch.QueueDeclare(cfg.Subject, true, false, false, false, nil)
	if err != nil {
		return fail(err, "failed to declare amqp queue")
	}
	if cfg.Stream != "" {
		if err := ch.ExchangeDeclare(cfg.Stream, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fail(err, "failed to declare amqp exchange")
		}
		if err := ch.QueueBind(q.Name, cfg.Subject, cfg.Stream, false, nil); err != nil {
			return fail(err, "failed to bind amqp queue")
		}
	}

	if err := ch.Confirm(false); err != nil {
		return fail(err, "failed to enable amqp publisher confirms")
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	if logger != nil {
		logger.Info("amqp publisher ready",
			slog.String("exchange", cfg.Stream),
			slog.String("queue", q.Name),
		)
	}

	return &AMQPPublisher{
		conn:     conn,
		ch:       ch,
		confirms: confirms,
		exchange: cfg.Stream,
		key:      cfg.Subject,
		encoder:  encoder,
		timeout:  cfg.PublishTimeout,
	}, nil
}

// Publish sends msg and waits for its confirmation. Publishes are serialized
// on the channel so confirmations can be matched by delivery tag.
func (p *AMQPPublisher) Publish(ctx context.Context, msg domain.DispatchMessage) error {
	data, err := p.encoder.Encode(msg)
	if err != nil {
		return err
	}

	ctx, cancel := withPublishTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(p.exchange, p.key, false, false, amqp.Publishing{
		ContentType:  p.encoder.ContentType(),
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.UUID,
		Timestamp:    time.Now().UTC(),
		Body:         data,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to publish to amqp broker")
	}
	p.tag++

	for {
		select {
		case confirm, ok := <-p.confirms:
			if !ok {
				return apperrors.Wrap(apperrors.ErrUnavailable, "amqp channel closed before confirmation")
			}
			// Late confirmations of publishes that timed out earlier.
			if confirm.DeliveryTag < p.tag {
				continue
			}
			if !confirm.Ack {
				return apperrors.Wrap(apperrors.ErrUnavailable, "amqp broker rejected the message")
			}
			return nil
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), "timed out waiting for amqp confirmation")
		}
	}
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return apperrors.Join(errs...)
}
