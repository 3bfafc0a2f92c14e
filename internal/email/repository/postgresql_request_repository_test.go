package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

func TestPostgreSQLRequestRepository_ClaimDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	idA := uuid.Must(uuid.NewV7())
	idB := uuid.Must(uuid.NewV7())
	scheduled := testNow.Add(-time.Hour)

	mock.ExpectQuery(`WITH due AS \(\s*SELECT id FROM email_requests\s*WHERE status = \$1 AND \(scheduled_at IS NULL OR scheduled_at <= \$2\)\s*ORDER BY scheduled_at ASC NULLS FIRST, created_at ASC\s*LIMIT \$3\s*FOR UPDATE SKIP LOCKED`).
		WithArgs(int64(0), testNow, 2, int64(1)).
		WillReturnRows(sqlmock.NewRows(claimedColumns).
			AddRow(idB.String(), "promo", "b@example.com", 7, scheduled, 1, nil, testNow, testNow, "Hi", "<p>B</p>").
			AddRow(idA.String(), "", "a@example.com", 8, nil, 1, nil, testNow, testNow, "Hello", "<p>A</p>"))

	claimed, err := repo.ClaimDue(context.Background(), testNow, 2)

	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, idB, claimed[0].ID)
	assert.Equal(t, domain.StatusProcessing, claimed[0].Status)
	assert.Equal(t, "promo", claimed[0].TopicID)
	require.NotNil(t, claimed[0].ScheduledAt)
	assert.True(t, scheduled.Equal(*claimed[0].ScheduledAt))
	assert.Equal(t, "Hi", claimed[0].Subject)
	assert.Nil(t, claimed[1].ScheduledAt)
	assert.Nil(t, claimed[1].Error)
	assert.Equal(t, "<p>A</p>", claimed[1].Body)
}

func TestPostgreSQLRequestRepository_ClaimDue_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	mock.ExpectQuery(`WITH due AS`).WillReturnRows(sqlmock.NewRows(claimedColumns))

	claimed, err := repo.ClaimDue(context.Background(), testNow, 10)

	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestPostgreSQLRequestRepository_ClaimDue_UnknownStatusIsRejected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	mock.ExpectQuery(`WITH due AS`).
		WillReturnRows(sqlmock.NewRows(claimedColumns).
			AddRow(uuid.NewString(), "", "a@example.com", 1, nil, 9, nil, testNow, testNow, "s", "b"))

	_, err := repo.ClaimDue(context.Background(), testNow, 10)

	assert.ErrorIs(t, err, domain.ErrUnknownStatus)
}

func TestPostgreSQLRequestRepository_ClaimDue_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	mock.ExpectQuery(`WITH due AS`).WillReturnError(assert.AnError)

	_, err := repo.ClaimDue(context.Background(), testNow, 10)

	assert.ErrorIs(t, err, assert.AnError)
}

func TestPostgreSQLRequestRepository_ReclaimStale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	staleBefore := testNow.Add(-30 * time.Minute)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(`WITH stale AS \(\s*SELECT id FROM email_requests\s*WHERE status = \$1 AND updated_at < \$2[\s\S]*FOR UPDATE SKIP LOCKED[\s\S]*WHERE r.id = stale.id AND r.status = \$1 AND r.updated_at < \$2\s*RETURNING r.id`).
		WithArgs(int64(1), staleBefore, 100, int64(0), testNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	ids, err := repo.ReclaimStale(context.Background(), staleBefore, 100, testNow)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)
}

func TestPostgreSQLRequestRepository_GetForUpdate(t *testing.T) {
	id := uuid.Must(uuid.NewV7())

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRequestRepository(db)
		reason := "boom"

		mock.ExpectQuery(`SELECT id, topic_id, recipient_email[\s\S]*WHERE id = \$1\s*FOR UPDATE`).
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows(claimedColumns[:9]).
				AddRow(id.String(), "t", "a@example.com", 1, nil, 3, reason, testNow, testNow))

		req, err := repo.GetForUpdate(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, req.Status)
		require.NotNil(t, req.Error)
		assert.Equal(t, "boom", *req.Error)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRequestRepository(db)

		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows(claimedColumns[:9]))

		_, err := repo.GetForUpdate(context.Background(), id)

		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLRequestRepository_Transition(t *testing.T) {
	id := uuid.Must(uuid.NewV7())
	reason := "Bounce: Permanent"

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "applied", affected: 1, want: true},
		{name: "status already moved", affected: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostgreSQLRequestRepository(db)

			mock.ExpectExec(regexp.QuoteMeta(`UPDATE email_requests
			  SET status = $1, error = $2, updated_at = $3
			  WHERE id = $4 AND status = $5`)).
				WithArgs(int64(3), reason, testNow, id.String(), int64(1)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.Transition(context.Background(), id, domain.StatusProcessing, domain.StatusFailed, &reason, testNow)

			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPostgreSQLRequestRepository_CreateBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	requests := make([]*domain.Request, insertChunkSize+1)
	for i := range requests {
		requests[i] = &domain.Request{
			ID:             uuid.Must(uuid.NewV7()),
			RecipientEmail: "user@example.com",
			ContentID:      1,
			Status:         domain.StatusPending,
			CreatedAt:      testNow,
			UpdatedAt:      testNow,
		}
	}

	mock.ExpectExec(`INSERT INTO email_requests .* VALUES \(\$1, \$2, .*\$4500\)$`).
		WillReturnResult(sqlmock.NewResult(0, insertChunkSize))
	mock.ExpectExec(`INSERT INTO email_requests .* VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)$`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateBatch(context.Background(), requests))
}

func TestPostgreSQLRequestRepository_CountByTopic(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\)\s*FROM email_requests\s*WHERE topic_id = \$1\s*GROUP BY status`).
		WithArgs("spring").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(0, 4).
			AddRow(1, 1).
			AddRow(2, 10).
			AddRow(3, 2))

	counts, err := repo.CountByTopic(context.Background(), "spring")

	require.NoError(t, err)
	assert.Equal(t, domain.RequestCounts{Total: 17, Pending: 4, Processing: 1, Sent: 10, Failed: 2}, counts)
}

func TestPostgreSQLRequestRepository_CountTerminalUpdatedSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRequestRepository(db)
	since := testNow.Add(-24 * time.Hour)

	mock.ExpectQuery(`WHERE updated_at > \$1 AND status IN \(\$2, \$3\)`).
		WithArgs(since, int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow(2, 42))

	counts, err := repo.CountTerminalUpdatedSince(context.Background(), since)

	require.NoError(t, err)
	assert.Equal(t, int64(42), counts.Sent)
	assert.Equal(t, int64(0), counts.Failed)
}
