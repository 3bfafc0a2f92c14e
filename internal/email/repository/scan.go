package repository

import (
	"strings"

	"github.com/allisson/mailqueue/internal/email/domain"
)

// insertChunkSize bounds the number of rows per multi-row INSERT.
const insertChunkSize = 500

type rowScanner interface {
	Scan(dest ...any) error
}

// requestColumns is the column list scanned by scanRequest, prefixed with alias.
func requestColumns(alias string) string {
	cols := []string{
		"id", "topic_id", "recipient_email", "content_id", "scheduled_at",
		"status", "error", "created_at", "updated_at",
	}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, col := range cols {
		cols[i] = alias + "." + col
	}
	return strings.Join(cols, ", ")
}

func scanRequest(row rowScanner, req *domain.Request, extra ...any) error {
	dest := []any{
		&req.ID,
		&req.TopicID,
		&req.RecipientEmail,
		&req.ContentID,
		&req.ScheduledAt,
		&req.Status,
		&req.Error,
		&req.CreatedAt,
		&req.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// placeholders returns "?, ?, ?" with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func chunk[T any](items []T, size int) [][]T {
	var chunks [][]T
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[:size])
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
