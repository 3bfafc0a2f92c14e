package domain

import (
	"cmp"
	"time"

	"github.com/google/uuid"
)

// Request is one email to one recipient.
type Request struct {
	ID             uuid.UUID
	TopicID        string
	RecipientEmail string
	ContentID      int64
	ScheduledAt    *time.Time
	Status         Status
	Error          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsDue reports whether the request may be dispatched at now. A request
// without ScheduledAt is due immediately.
func (r *Request) IsDue(now time.Time) bool {
	return r.ScheduledAt == nil || !now.Before(*r.ScheduledAt)
}

// ClaimedRequest is a request moved to Processing together with its content.
type ClaimedRequest struct {
	Request
	Subject string
	Body    string
}

// CompareDue orders requests earliest-due first: unscheduled before scheduled,
// then by ScheduledAt, then by CreatedAt. Ties break on ID for a stable order.
func CompareDue(a, b *Request) int {
	switch {
	case a.ScheduledAt == nil && b.ScheduledAt != nil:
		return -1
	case a.ScheduledAt != nil && b.ScheduledAt == nil:
		return 1
	case a.ScheduledAt != nil && b.ScheduledAt != nil:
		if c := a.ScheduledAt.Compare(*b.ScheduledAt); c != 0 {
			return c
		}
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}
