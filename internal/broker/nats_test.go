package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJetStream struct {
	msgs     []*nats.Msg
	optCount int
	deadline bool
	err      error
}

func (f *fakeJetStream) PublishMsg(
	ctx context.Context,
	msg *nats.Msg,
	opts ...jetstream.PublishOpt,
) (*jetstream.PubAck, error) {
	_, f.deadline = ctx.Deadline()
	f.optCount = len(opts)
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "messages", Sequence: uint64(len(f.msgs))}, nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	encoder, err := NewEncoder(EncodingJSON)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		js := &fakeJetStream{}
		p := &NATSPublisher{js: js, subject: "messages.email", encoder: encoder, timeout: time.Second}

		require.NoError(t, p.Publish(context.Background(), testMessage))

		require.Len(t, js.msgs, 1)
		assert.Equal(t, "messages.email", js.msgs[0].Subject)
		assert.Equal(t, "application/json", js.msgs[0].Header.Get("Content-Type"))
		assert.JSONEq(t, `{
			"uuid": "0190a5e4-7c2b-7d1e-9f3a-2b4c6d8e0f12",
			"email": "user@example.com",
			"subject": "Hello",
			"body": "<p>Hi</p>",
			"tracking_url": "https://mail.example.com/v1/events/open?requestId=0190a5e4-7c2b-7d1e-9f3a-2b4c6d8e0f12"
		}`, string(js.msgs[0].Data))
		assert.Equal(t, 1, js.optCount, "message id option is set")
		assert.True(t, js.deadline)
	})

	t.Run("Failure", func(t *testing.T) {
		publishErr := errors.New("nats: no response from stream")
		p := &NATSPublisher{js: &fakeJetStream{err: publishErr}, subject: "messages.email", encoder: encoder}

		err := p.Publish(context.Background(), testMessage)

		assert.ErrorIs(t, err, publishErr)
	})

	t.Run("CloseWithoutConnection", func(t *testing.T) {
		p := &NATSPublisher{}
		assert.NoError(t, p.Close())
	})
}
