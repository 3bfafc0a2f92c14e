package broker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes messages to a Kafka topic, keyed by request id, and
// waits for all in-sync replicas to acknowledge.
type KafkaPublisher struct {
	writer  kafkaWriter
	encoder *Encoder
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher writing to topic cfg.Subject on
// cfg.Addresses. Connections are opened lazily on the first write.
func NewKafkaPublisher(cfg Config, encoder *Encoder) *KafkaPublisher {
	writeTimeout := cfg.PublishTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Addresses...),
		Topic:                  cfg.Subject,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{writer: writer, encoder: encoder, timeout: cfg.PublishTimeout}
}

// Publish writes msg synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, msg domain.DispatchMessage) error {
	data, err := p.encoder.Encode(msg)
	if err != nil {
		return err
	}

	ctx, cancel := withPublishTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.UUID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(p.encoder.ContentType())},
		},
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to write to kafka")
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
