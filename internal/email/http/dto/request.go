// Package dto provides data transfer objects for the email HTTP API.
package dto

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/mailqueue/internal/email/domain"
	customValidation "github.com/allisson/mailqueue/internal/validation"
)

// Submission limits.
const (
	MaxMessagesPerRequest   = 100
	MaxRecipientsPerMessage = 1000
	MaxSubjectLength        = 255
	MaxContentLength        = 65535
	maxEmailLength          = 254
)

// offsetLayouts carry their own zone offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// naiveLayouts are interpreted in the default schedule time zone.
var naiveLayouts = []string{
	time.DateTime,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// CreateMessagesRequest is the body of POST /v1/messages.
type CreateMessagesRequest struct {
	Messages []MessageRequest `json:"messages"`
}

// MessageRequest is one message addressed to one or more recipients.
type MessageRequest struct {
	TopicID     string   `json:"topic_id"`
	Emails      []string `json:"emails"`
	Subject     string   `json:"subject"`
	Content     string   `json:"content"`
	ScheduledAt *string  `json:"scheduled_at"`
}

// Validate checks the request structure.
func (r *CreateMessagesRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Messages,
			validation.Required,
			validation.Length(1, MaxMessagesPerRequest),
		),
	)
}

// Validate checks one message.
func (m MessageRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.TopicID, customValidation.TopicID),
		validation.Field(&m.Emails,
			validation.Required,
			validation.Length(1, MaxRecipientsPerMessage),
			validation.Each(
				validation.By(func(value any) error {
					email, _ := value.(string)
					return validation.Validate(strings.TrimSpace(email),
						validation.Required,
						validation.RuneLength(1, maxEmailLength),
						customValidation.Email,
					)
				}),
			),
		),
		validation.Field(&m.Subject,
			validation.Required,
			validation.RuneLength(1, MaxSubjectLength),
		),
		validation.Field(&m.Content,
			validation.Required,
			validation.RuneLength(1, MaxContentLength),
		),
	)
}

// ToDomain converts the request into messages, resolving scheduled_at values
// without an offset in loc.
func (r *CreateMessagesRequest) ToDomain(loc *time.Location) ([]*domain.NewMessage, error) {
	messages := make([]*domain.NewMessage, 0, len(r.Messages))
	for i, m := range r.Messages {
		msg := &domain.NewMessage{
			TopicID: m.TopicID,
			Emails:  make([]string, 0, len(m.Emails)),
			Subject: m.Subject,
			Body:    m.Content,
		}
		for _, email := range m.Emails {
			msg.Emails = append(msg.Emails, strings.TrimSpace(email))
		}
		if m.ScheduledAt != nil && strings.TrimSpace(*m.ScheduledAt) != "" {
			at, err := ParseScheduledAt(*m.ScheduledAt, loc)
			if err != nil {
				return nil, fmt.Errorf("messages[%d].scheduled_at: %w", i, err)
			}
			msg.ScheduledAt = &at
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ParseScheduledAt parses an RFC 3339 timestamp, or a "YYYY-MM-DD HH:MM:SS"
// local time interpreted in loc. The result is in UTC.
func ParseScheduledAt(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime format %q", value)
}
