package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// PostgreSQLRequestRepository implements Request persistence for PostgreSQL.
type PostgreSQLRequestRepository struct {
	db *sql.DB
}

// CreateBatch inserts requests using multi-row INSERT statements.
func (p *PostgreSQLRequestRepository) CreateBatch(ctx context.Context, requests []*domain.Request) error {
	querier := database.GetTx(ctx, p.db)

	for _, batch := range chunk(requests, insertChunkSize) {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO email_requests (id, topic_id, recipient_email, content_id, scheduled_at, status, error, created_at, updated_at) VALUES `)

		args := make([]any, 0, len(batch)*9)
		for i, req := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			n := i * 9
			fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8, n+9)
			args = append(args,
				req.ID,
				req.TopicID,
				req.RecipientEmail,
				req.ContentID,
				req.ScheduledAt,
				req.Status,
				req.Error,
				req.CreatedAt,
				req.UpdatedAt,
			)
		}

		if _, err := querier.ExecContext(ctx, sb.String(), args...); err != nil {
			return apperrors.Wrap(err, "failed to create email requests")
		}
	}
	return nil
}

// ClaimDue moves up to limit due Pending requests to Processing in a single
// statement and returns them joined with their content. Rows locked by another
// transaction are skipped. The returned order is unspecified.
func (p *PostgreSQLRequestRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.ClaimedRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `WITH due AS (
				SELECT id FROM email_requests
				WHERE status = $1 AND (scheduled_at IS NULL OR scheduled_at <= $2)
				ORDER BY scheduled_at ASC NULLS FIRST, created_at ASC
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			  )
			  UPDATE email_requests r
			  SET status = $4, updated_at = $2
			  FROM due, email_contents c
			  WHERE r.id = due.id AND c.id = r.content_id
			  RETURNING ` + requestColumns("r") + `, c.subject, c.body`

	rows, err := querier.QueryContext(ctx, query, domain.StatusPending, now, limit, domain.StatusProcessing)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim due email requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	claimed := make([]*domain.ClaimedRequest, 0, limit)
	for rows.Next() {
		var c domain.ClaimedRequest
		if err := scanRequest(rows, &c.Request, &c.Subject, &c.Body); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan claimed email request")
		}
		claimed = append(claimed, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate claimed email requests")
	}
	return claimed, nil
}

// ReclaimStale returns up to limit Processing requests last updated before
// staleBefore to Pending and reports their ids. The UPDATE repeats the staleness
// condition so a row advanced concurrently is left alone.
func (p *PostgreSQLRequestRepository) ReclaimStale(
	ctx context.Context,
	staleBefore time.Time,
	limit int,
	now time.Time,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `WITH stale AS (
				SELECT id FROM email_requests
				WHERE status = $1 AND updated_at < $2
				ORDER BY updated_at ASC
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			  )
			  UPDATE email_requests r
			  SET status = $4, updated_at = $5
			  FROM stale
			  WHERE r.id = stale.id AND r.status = $1 AND r.updated_at < $2
			  RETURNING r.id`

	rows, err := querier.QueryContext(
		ctx,
		query,
		domain.StatusProcessing,
		staleBefore,
		limit,
		domain.StatusPending,
		now,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to reclaim stale email requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan reclaimed email request id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate reclaimed email requests")
	}
	return ids, nil
}

// GetForUpdate reads a request and locks its row until the surrounding
// transaction ends.
func (p *PostgreSQLRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + requestColumns("") + `
			  FROM email_requests
			  WHERE id = $1
			  FOR UPDATE`

	var req domain.Request
	if err := scanRequest(querier.QueryRowContext(ctx, query, id), &req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get email request")
	}
	return &req, nil
}

// Transition sets the status of a request only if it is currently in from.
// It reports whether the row was updated.
func (p *PostgreSQLRequestRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.Status,
	reason *string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE email_requests
			  SET status = $1, error = $2, updated_at = $3
			  WHERE id = $4 AND status = $5`

	result, err := querier.ExecContext(ctx, query, to, reason, now, id, from)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to transition email request")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected == 1, nil
}

// CountByTopic counts the requests of a topic grouped by status.
func (p *PostgreSQLRequestRepository) CountByTopic(ctx context.Context, topicID string) (domain.RequestCounts, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT status, COUNT(*)
			  FROM email_requests
			  WHERE topic_id = $1
			  GROUP BY status`

	return countRequests(ctx, querier, query, topicID)
}

// CountTerminalUpdatedSince counts Sent and Failed requests whose last update
// is after since.
func (p *PostgreSQLRequestRepository) CountTerminalUpdatedSince(
	ctx context.Context,
	since time.Time,
) (domain.RequestCounts, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT status, COUNT(*)
			  FROM email_requests
			  WHERE updated_at > $1 AND status IN ($2, $3)
			  GROUP BY status`

	return countRequests(ctx, querier, query, since, domain.StatusSent, domain.StatusFailed)
}

func countRequests(ctx context.Context, querier database.Querier, query string, args ...any) (domain.RequestCounts, error) {
	var counts domain.RequestCounts

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return counts, apperrors.Wrap(err, "failed to count email requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var status domain.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return counts, apperrors.Wrap(err, "failed to scan email request count")
		}
		if err := counts.Add(status, n); err != nil {
			return counts, err
		}
	}
	if err := rows.Err(); err != nil {
		return counts, apperrors.Wrap(err, "failed to iterate email request counts")
	}
	return counts, nil
}

// NewPostgreSQLRequestRepository creates a new PostgreSQL request repository.
func NewPostgreSQLRequestRepository(db *sql.DB) *PostgreSQLRequestRepository {
	return &PostgreSQLRequestRepository{db: db}
}
