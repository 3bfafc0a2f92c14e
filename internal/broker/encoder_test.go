package broker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

var testMessage = domain.DispatchMessage{
	UUID:        "0190a5e4-7c2b-7d1e-9f3a-2b4c6d8e0f12",
	Email:       "user@example.com",
	Subject:     "Hello",
	Body:        "<p>Hi</p>",
	TrackingURL: "https://mail.example.com/v1/events/open?requestId=0190a5e4-7c2b-7d1e-9f3a-2b4c6d8e0f12",
}

var wantFields = map[string]any{
	"uuid":         testMessage.UUID,
	"email":        testMessage.Email,
	"subject":      testMessage.Subject,
	"body":         testMessage.Body,
	"tracking_url": testMessage.TrackingURL,
}

func TestEncoder_Msgpack(t *testing.T) {
	encoder, err := NewEncoder(EncodingMsgpack)
	require.NoError(t, err)
	assert.Equal(t, "application/msgpack", encoder.ContentType())

	data, err := encoder.Encode(testMessage)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &fields))
	assert.Equal(t, wantFields, fields)
}

func TestEncoder_JSON(t *testing.T) {
	encoder, err := NewEncoder(EncodingJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", encoder.ContentType())

	data, err := encoder.Encode(testMessage)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, wantFields, fields)
}

func TestNewEncoder_Unsupported(t *testing.T) {
	_, err := NewEncoder("protobuf")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
