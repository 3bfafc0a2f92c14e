package domain

import "time"

// Content is the subject and body shared by every request of one submitted message.
type Content struct {
	ID        int64
	Subject   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
