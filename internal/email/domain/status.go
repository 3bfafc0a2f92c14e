// Package domain defines the email dispatch entities, the request status lifecycle
// and the outcome classification used by the dispatch and reconciliation pipeline.
package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle state of a Request. It is stored as a SMALLINT.
type Status int16

// Request statuses. The numeric codes are part of the storage contract.
const (
	StatusPending    Status = 0
	StatusProcessing Status = 1
	StatusSent       Status = 2
	StatusFailed     Status = 3
)

// AllStatuses lists every status in code order.
var AllStatuses = []Status{StatusPending, StatusProcessing, StatusSent, StatusFailed}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// ParseStatus parses a status name as returned by String.
func ParseStatus(name string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pending":
		return StatusPending, nil
	case "processing":
		return StatusProcessing, nil
	case "sent":
		return StatusSent, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
}

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is Sent or Failed.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSent, StatusFailed:
		return true
	case StatusPending, StatusProcessing:
		return false
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is allowed:
// Pending->Processing, Processing->{Sent, Failed, Pending}.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusSent || next == StatusFailed || next == StatusPending
	case StatusSent, StatusFailed:
		return false
	default:
		return false
	}
}

// MarshalText encodes the status as its name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return int64(s), nil
}

// Scan implements sql.Scanner. Unknown codes are rejected.
func (s *Status) Scan(src any) error {
	var code int64
	switch v := src.(type) {
	case int64:
		code = v
	case int:
		code = int64(v)
	case int32:
		code = int64(v)
	case int16:
		code = int64(v)
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownStatus, v)
		}
		code = parsed
	case string:
		parsed, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrUnknownStatus, v)
		}
		code = parsed
	case nil:
		return fmt.Errorf("%w: NULL", ErrUnknownStatus)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrUnknownStatus, src)
	}

	status := Status(code)
	if int64(status) != code || !status.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownStatus, code)
	}
	*s = status
	return nil
}
