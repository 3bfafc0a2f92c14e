package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// MySQLRequestRepository implements Request persistence for MySQL. Request ids
// are stored as BINARY(16).
type MySQLRequestRepository struct {
	db        *sql.DB
	txManager database.TxManager
}

// CreateBatch inserts requests using multi-row INSERT statements.
func (m *MySQLRequestRepository) CreateBatch(ctx context.Context, requests []*domain.Request) error {
	querier := database.GetTx(ctx, m.db)

	for _, batch := range chunk(requests, insertChunkSize) {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO email_requests (id, topic_id, recipient_email, content_id, scheduled_at, status, error, created_at, updated_at) VALUES `)

		args := make([]any, 0, len(batch)*9)
		for i, req := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(" + placeholders(9) + ")")

			id, err := req.ID.MarshalBinary()
			if err != nil {
				return apperrors.Wrap(err, "failed to marshal email request id")
			}
			args = append(args,
				id,
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

// ClaimDue locks up to limit due Pending requests with SKIP LOCKED, moves them
// to Processing and reads them back joined with their content. All three
// statements run in one transaction, joining the caller's when present.
func (m *MySQLRequestRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.ClaimedRequest, error) {
	var claimed []*domain.ClaimedRequest

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, m.db)

		selectQuery := `SELECT id FROM email_requests
						WHERE status = ? AND (scheduled_at IS NULL OR scheduled_at <= ?)
						ORDER BY scheduled_at ASC, created_at ASC
						LIMIT ?
						FOR UPDATE SKIP LOCKED`

		ids, err := selectIDs(ctx, querier, selectQuery, domain.StatusPending, now, limit)
		if err != nil {
			return apperrors.Wrap(err, "failed to select due email requests")
		}
		if len(ids) == 0 {
			return nil
		}

		updateQuery := `UPDATE email_requests SET status = ?, updated_at = ?
						WHERE status = ? AND id IN (` + placeholders(len(ids)) + `)`
		args := append([]any{domain.StatusProcessing, now, domain.StatusPending}, ids...)
		if _, err := querier.ExecContext(ctx, updateQuery, args...); err != nil {
			return apperrors.Wrap(err, "failed to claim due email requests")
		}

		readQuery := `SELECT ` + requestColumns("r") + `, c.subject, c.body
					  FROM email_requests r
					  JOIN email_contents c ON c.id = r.content_id
					  WHERE r.id IN (` + placeholders(len(ids)) + `)`
		rows, err := querier.QueryContext(ctx, readQuery, ids...)
		if err != nil {
			return apperrors.Wrap(err, "failed to read claimed email requests")
		}
		defer func() {
			_ = rows.Close()
		}()

		claimed = make([]*domain.ClaimedRequest, 0, len(ids))
		for rows.Next() {
			var c domain.ClaimedRequest
			if err := scanRequest(rows, &c.Request, &c.Subject, &c.Body); err != nil {
				return apperrors.Wrap(err, "failed to scan claimed email request")
			}
			claimed = append(claimed, &c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ReclaimStale returns up to limit stale Processing requests to Pending and
// reports their ids.
func (m *MySQLRequestRepository) ReclaimStale(
	ctx context.Context,
	staleBefore time.Time,
	limit int,
	now time.Time,
) ([]uuid.UUID, error) {
	var reclaimed []uuid.UUID

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, m.db)

		selectQuery := `SELECT id FROM email_requests
						WHERE status = ? AND updated_at < ?
						ORDER BY updated_at ASC
						LIMIT ?
						FOR UPDATE SKIP LOCKED`

		ids, err := selectIDs(ctx, querier, selectQuery, domain.StatusProcessing, staleBefore, limit)
		if err != nil {
			return apperrors.Wrap(err, "failed to select stale email requests")
		}
		if len(ids) == 0 {
			return nil
		}

		updateQuery := `UPDATE email_requests SET status = ?, updated_at = ?
						WHERE status = ? AND updated_at < ? AND id IN (` + placeholders(len(ids)) + `)`
		args := append([]any{domain.StatusPending, now, domain.StatusProcessing, staleBefore}, ids...)
		if _, err := querier.ExecContext(ctx, updateQuery, args...); err != nil {
			return apperrors.Wrap(err, "failed to reclaim stale email requests")
		}

		reclaimed = make([]uuid.UUID, 0, len(ids))
		for _, raw := range ids {
			id, err := uuid.FromBytes(raw.([]byte))
			if err != nil {
				return apperrors.Wrap(err, "failed to parse email request id")
			}
			reclaimed = append(reclaimed, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reclaimed, nil
}

// GetForUpdate reads a request and locks its row until the surrounding
// transaction ends.
func (m *MySQLRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal email request id")
	}

	query := `SELECT ` + requestColumns("") + `
			  FROM email_requests
			  WHERE id = ?
			  FOR UPDATE`

	var req domain.Request
	if err := scanRequest(querier.QueryRowContext(ctx, query, binID), &req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get email request")
	}
	return &req, nil
}

// Transition sets the status of a request only if it is currently in from.
// It reports whether the row was updated.
func (m *MySQLRequestRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.Status,
	reason *string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	binID, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal email request id")
	}

	query := `UPDATE email_requests
			  SET status = ?, error = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query, to, reason, now, binID, from)
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
func (m *MySQLRequestRepository) CountByTopic(ctx context.Context, topicID string) (domain.RequestCounts, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT status, COUNT(*)
			  FROM email_requests
			  WHERE topic_id = ?
			  GROUP BY status`

	return countRequests(ctx, querier, query, topicID)
}

// CountTerminalUpdatedSince counts Sent and Failed requests whose last update
// is after since.
func (m *MySQLRequestRepository) CountTerminalUpdatedSince(
	ctx context.Context,
	since time.Time,
) (domain.RequestCounts, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT status, COUNT(*)
			  FROM email_requests
			  WHERE updated_at > ? AND status IN (?, ?)
			  GROUP BY status`

	return countRequests(ctx, querier, query, since, domain.StatusSent, domain.StatusFailed)
}

// selectIDs runs a single-column id query and returns the raw BINARY(16) values.
func selectIDs(ctx context.Context, querier database.Querier, query string, args ...any) ([]any, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []any
	for rows.Next() {
		var id []byte
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NewMySQLRequestRepository creates a new MySQL request repository.
func NewMySQLRequestRepository(db *sql.DB, txManager database.TxManager) *MySQLRequestRepository {
	return &MySQLRequestRepository{db: db, txManager: txManager}
}
