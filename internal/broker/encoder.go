package broker

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// Supported encodings.
const (
	EncodingMsgpack = "msgpack"
	EncodingJSON    = "json"
)

// Encoder serializes dispatch messages for the wire.
type Encoder struct {
	contentType string
	marshal     func(v any) ([]byte, error)
}

// NewEncoder returns the encoder for name.
func NewEncoder(name string) (*Encoder, error) {
	switch name {
	case EncodingMsgpack:
		return &Encoder{contentType: "application/msgpack", marshal: msgpack.Marshal}, nil
	case EncodingJSON:
		return &Encoder{contentType: "application/json", marshal: json.Marshal}, nil
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported broker encoding %q", name))
	}
}

// ContentType is the MIME type of encoded messages.
func (e *Encoder) ContentType() string {
	return e.contentType
}

// Encode serializes msg as a map keyed uuid, email, subject, body and tracking_url.
func (e *Encoder) Encode(msg domain.DispatchMessage) ([]byte, error) {
	data, err := e.marshal(msg)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode dispatch message")
	}
	return data, nil
}
