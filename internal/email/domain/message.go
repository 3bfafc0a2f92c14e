package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxSchedulePast is how far in the past a scheduled_at may lie at submission.
const MaxSchedulePast = time.Hour

// NewMessage is one submitted message: a shared content addressed to many recipients.
type NewMessage struct {
	TopicID     string
	Emails      []string
	Subject     string
	Body        string
	ScheduledAt *time.Time
}

// Requests expands the message into one Pending request per recipient, all
// referencing contentID. newID supplies request ids.
func (m *NewMessage) Requests(contentID int64, now time.Time, newID func() (uuid.UUID, error)) ([]*Request, error) {
	requests := make([]*Request, 0, len(m.Emails))
	for _, email := range m.Emails {
		id, err := newID()
		if err != nil {
			return nil, err
		}
		requests = append(requests, &Request{
			ID:             id,
			TopicID:        m.TopicID,
			RecipientEmail: email,
			ContentID:      contentID,
			ScheduledAt:    m.ScheduledAt,
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return requests, nil
}
