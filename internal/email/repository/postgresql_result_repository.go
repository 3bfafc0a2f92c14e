package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// PostgreSQLResultRepository implements Result persistence for PostgreSQL.
type PostgreSQLResultRepository struct {
	db *sql.DB
}

// Append inserts a result unconditionally. An Open result that already exists
// is ignored by the partial unique index.
func (p *PostgreSQLResultRepository) Append(ctx context.Context, result *domain.Result) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO email_results (request_id, status, raw, created_at, updated_at)
			  VALUES ($1, $2, $3::jsonb, $4, $5)
			  ON CONFLICT DO NOTHING`

	res, err := querier.ExecContext(
		ctx,
		query,
		result.RequestID,
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
func (p *PostgreSQLResultRepository) AppendUnique(ctx context.Context, result *domain.Result) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO email_results (request_id, status, raw, created_at, updated_at)
			  SELECT $1::uuid, $2::varchar, $3::jsonb, $4::timestamptz, $5::timestamptz
			  WHERE NOT EXISTS (
				SELECT 1 FROM email_results WHERE request_id = $1::uuid AND status = $2::varchar
			  )
			  ON CONFLICT DO NOTHING`

	res, err := querier.ExecContext(
		ctx,
		query,
		result.RequestID,
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

// CountDistinctByTopic counts, per outcome kind, the distinct requests of a
// topic that have at least one result of that kind.
func (p *PostgreSQLResultRepository) CountDistinctByTopic(
	ctx context.Context,
	topicID string,
) (map[domain.OutcomeKind]int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT res.status, COUNT(DISTINCT res.request_id)
			  FROM email_results res
			  JOIN email_requests r ON r.id = res.request_id
			  WHERE r.topic_id = $1
			  GROUP BY res.status`

	return countResults(ctx, querier, query, topicID)
}

// CountCreatedSince counts result rows per outcome kind created after since.
func (p *PostgreSQLResultRepository) CountCreatedSince(
	ctx context.Context,
	since time.Time,
) (map[domain.OutcomeKind]int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT status, COUNT(*)
			  FROM email_results
			  WHERE created_at > $1
			  GROUP BY status`

	return countResults(ctx, querier, query, since)
}

func rowsInserted(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

func countResults(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) (map[domain.OutcomeKind]int64, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count email results")
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[domain.OutcomeKind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan email result count")
		}
		counts[domain.OutcomeKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate email result counts")
	}
	return counts, nil
}

// NewPostgreSQLResultRepository creates a new PostgreSQL result repository.
func NewPostgreSQLResultRepository(db *sql.DB) *PostgreSQLResultRepository {
	return &PostgreSQLResultRepository{db: db}
}
