package broker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// Stream limits applied when the stream is provisioned.
const (
	streamMaxAge   = 24 * time.Hour
	streamMaxMsgs  = 1_000_000
	streamMaxBytes = 1 << 30
)

type jetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes to a JetStream subject and waits for the stream ack.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetStreamPublisher
	subject string
	encoder *Encoder
	timeout time.Duration
}

// NewNATSPublisher connects to cfg.URL and, when cfg.Stream is set, creates or
// updates the stream to capture cfg.Subject.
func NewNATSPublisher(ctx context.Context, cfg Config, encoder *Encoder, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("mailqueue"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if logger != nil && err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			if logger != nil {
				logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
			}
		}),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to nats")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrap(err, "failed to create jetstream context")
	}

	if cfg.Stream != "" {
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{cfg.Subject},
			Storage:  jetstream.FileStorage,
			MaxAge:   streamMaxAge,
			MaxMsgs:  streamMaxMsgs,
			MaxBytes: streamMaxBytes,
		})
		if err != nil {
			conn.Close()
			return nil, apperrors.Wrap(err, "failed to provision jetstream stream")
		}
		if logger != nil {
			logger.Info("jetstream stream ready",
				slog.String("stream", cfg.Stream),
				slog.String("subject", cfg.Subject),
			)
		}
	}

	return &NATSPublisher{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
		encoder: encoder,
		timeout: cfg.PublishTimeout,
	}, nil
}

// Publish sends msg with its request id as the JetStream message id, so a
// retried publish within the duplicate window is stored once.
func (p *NATSPublisher) Publish(ctx context.Context, msg domain.DispatchMessage) error {
	data, err := p.encoder.Encode(msg)
	if err != nil {
		return err
	}

	m := nats.NewMsg(p.subject)
	m.Data = data
	m.Header.Set("Content-Type", p.encoder.ContentType())

	ctx, cancel := withPublishTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.js.PublishMsg(ctx, m, jetstream.WithMsgID(msg.UUID)); err != nil {
		return apperrors.Wrap(err, "failed to publish to jetstream")
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
