package domain

import (
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// RequestCounts counts requests by status.
type RequestCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
}

// Add accumulates n requests with status s. Unknown statuses are reported
// to the caller and not counted.
func (c *RequestCounts) Add(s Status, n int64) error {
	switch s {
	case StatusPending:
		c.Pending += n
	case StatusProcessing:
		c.Processing += n
	case StatusSent:
		c.Sent += n
	case StatusFailed:
		c.Failed += n
	default:
		return ErrUnknownStatus
	}
	c.Total += n
	return nil
}

// TopicStats is the rollup for one topic. Results counts distinct requests
// per outcome kind.
type TopicStats struct {
	TopicID  string                `json:"topic_id"`
	Requests RequestCounts         `json:"requests"`
	Results  map[OutcomeKind]int64 `json:"results"`
}

// WindowCounts are counts over the last Hours hours. Sent and Failed count
// requests by updated_at. Results count result rows by created_at.
type WindowCounts struct {
	Hours   int                   `json:"hours"`
	Sent    int64                 `json:"sent"`
	Failed  int64                 `json:"failed"`
	Results map[OutcomeKind]int64 `json:"results"`
}

// MaxWindowHours is the widest statistics window, one week.
const MaxWindowHours = 168

// ErrInvalidWindow indicates a statistics window outside [1, MaxWindowHours].
var ErrInvalidWindow = apperrors.Wrap(apperrors.ErrInvalidInput, "hours must be between 1 and 168")

// ValidateWindow checks that hours is a supported statistics window.
func ValidateWindow(hours int) error {
	if hours < 1 || hours > MaxWindowHours {
		return ErrInvalidWindow
	}
	return nil
}
