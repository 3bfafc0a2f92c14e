// Package repository implements persistence for email contents, requests and
// results on PostgreSQL and MySQL. Claim and reclaim queries rely on row locks
// with SKIP LOCKED so concurrent workers never pick the same row.
package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// PostgreSQLContentRepository implements Content persistence for PostgreSQL.
type PostgreSQLContentRepository struct {
	db *sql.DB
}

// Create inserts content and sets its generated ID.
func (p *PostgreSQLContentRepository) Create(ctx context.Context, content *domain.Content) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO email_contents (subject, body, created_at, updated_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`

	err := querier.QueryRowContext(
		ctx,
		query,
		content.Subject,
		content.Body,
		content.CreatedAt,
		content.UpdatedAt,
	).Scan(&content.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to create email content")
	}
	return nil
}

// NewPostgreSQLContentRepository creates a new PostgreSQL content repository.
func NewPostgreSQLContentRepository(db *sql.DB) *PostgreSQLContentRepository {
	return &PostgreSQLContentRepository{db: db}
}
