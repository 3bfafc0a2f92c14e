package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// MySQLResultRepository implements Result persistence for MySQL.
type MySQLResultRepository struct {
	db *sql.DB
}

// Append inserts a result unconditionally. An Open result that already exists
// hits the unique key on open_request_id and is left untouched; every other
// error, including a missing request, is returned.
func (m *MySQLResultRepository) Append(ctx context.Context, result *domain.Result) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	requestID, err := result.RequestID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal email request id")
	}

	query := `INSERT INTO email_results (request_id, status, raw, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE id = id`

	res, err := querier.ExecContext(
		ctx,
		query,
		requestID,
		string(result.Kind),
		string(result.Raw),
		result.CreatedAt,
		result.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrRequestNotFound
		}
		return false, apperrors.Wrap(err, "failed to append email result")
	}
	return rowsInserted(res)
}

// AppendUnique inserts a result unless one of the same kind already exists for
// the request. It reports whether a row was inserted.
func (m *MySQLResultRepository) AppendUnique(ctx context.Context, result *domain.Result) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	requestID, err := result.RequestID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal email request id")
	}

	query := `INSERT INTO email_results (request_id, status, raw, created_at, updated_at)
			  SELECT ?, ?, ?, ?, ? FROM DUAL
			  WHERE NOT EXISTS (
				SELECT 1 FROM email_results WHERE request_id = ? AND status = ?
			  )
			  ON DUPLICATE KEY UPDATE email_results.id = email_results.id`

	res, err := querier.ExecContext(
		ctx,
		query,
		requestID,
		string(result.Kind),
		string(result.Raw),
		result.CreatedAt,
		result.UpdatedAt,
		requestID,
		string(result.Kind),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, domain.ErrRequestNotFound
		}
		return false, apperrors.Wrap(err, "failed to append email result")
	}
	return rowsInserted(res)
}

// CountDistinctByTopic counts, per outcome kind, the distinct requests of a
// topic that have at least one result of that kind.
func (m *MySQLResultRepository) CountDistinctByTopic(
	ctx context.Context,
	topicID string,
) (map[domain.OutcomeKind]int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT res.status, COUNT(DISTINCT res.request_id)
			  FROM email_results res
			  JOIN email_requests r ON r.id = res.request_id
			  WHERE r.topic_id = ?
			  GROUP BY res.status`

	return countResults(ctx, querier, query, topicID)
}

// CountCreatedSince counts result rows per outcome kind created after since.
func (m *MySQLResultRepository) CountCreatedSince(
	ctx context.Context,
	since time.Time,
) (map[domain.OutcomeKind]int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT status, COUNT(*)
			  FROM email_results
			  WHERE created_at > ?
			  GROUP BY status`

	return countResults(ctx, querier, query, since)
}

// NewMySQLResultRepository creates a new MySQL result repository.
func NewMySQLResultRepository(db *sql.DB) *MySQLResultRepository {
	return &MySQLResultRepository{db: db}
}
