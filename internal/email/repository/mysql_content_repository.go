package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// MySQLContentRepository implements Content persistence for MySQL.
type MySQLContentRepository struct {
	db *sql.DB
}

// Create inserts content and sets its generated ID.
func (m *MySQLContentRepository) Create(ctx context.Context, content *domain.Content) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO email_contents (subject, body, created_at, updated_at)
			  VALUES (?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		content.Subject,
		content.Body,
		content.CreatedAt,
		content.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create email content")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to read email content id")
	}
	content.ID = id
	return nil
}

// NewMySQLContentRepository creates a new MySQL content repository.
func NewMySQLContentRepository(db *sql.DB) *MySQLContentRepository {
	return &MySQLContentRepository{db: db}
}
