package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	databaseMocks "github.com/allisson/mailqueue/internal/database/mocks"
	"github.com/allisson/mailqueue/internal/email/domain"
	"github.com/allisson/mailqueue/internal/email/usecase/mocks"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

func TestMessageUseCase_Submit(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*messageUseCase, *databaseMocks.TxManager, *mocks.MockContentRepository, *mocks.MockRequestRepository) {
		t.Helper()
		txManager := &databaseMocks.TxManager{}
		contentRepo := &mocks.MockContentRepository{}
		requestRepo := &mocks.MockRequestRepository{}
		uc := NewMessageUseCase(txManager, contentRepo, requestRepo).(*messageUseCase)
		uc.now = func() time.Time { return fixedNow }
		t.Cleanup(func() {
			contentRepo.AssertExpectations(t)
			requestRepo.AssertExpectations(t)
		})
		return uc, txManager, contentRepo, requestRepo
	}

	t.Run("Success_FansOutRecipients", func(t *testing.T) {
		uc, txManager, contentRepo, requestRepo := setup(t)
		scheduled := fixedNow.Add(-30 * time.Minute)
		messages := []*domain.NewMessage{
			{TopicID: "promo", Emails: []string{"a@example.com", "b@example.com"}, Subject: "s1", Body: "b1"},
			{Emails: []string{"c@example.com"}, Subject: "s2", Body: "b2", ScheduledAt: &scheduled},
		}

		var nextID int64
		contentRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Content")).
			Run(func(args mock.Arguments) {
				nextID++
				args.Get(1).(*domain.Content).ID = nextID
			}).
			Return(nil).
			Twice()
		requestRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(reqs []*domain.Request) bool {
			return len(reqs) == 2 && reqs[0].ContentID == 1 && reqs[0].TopicID == "promo" &&
				reqs[0].Status == domain.StatusPending && reqs[1].RecipientEmail == "b@example.com"
		})).Return(nil).Once()
		requestRepo.On("CreateBatch", mock.Anything, mock.MatchedBy(func(reqs []*domain.Request) bool {
			return len(reqs) == 1 && reqs[0].ContentID == 2 && reqs[0].ScheduledAt == &scheduled
		})).Return(nil).Once()

		count, err := uc.Submit(ctx, messages)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, 1, txManager.Calls())
	})

	t.Run("Failure_ScheduledTooFarInPast", func(t *testing.T) {
		uc, txManager, _, _ := setup(t)
		scheduled := fixedNow.Add(-2 * time.Hour)

		count, err := uc.Submit(ctx, []*domain.NewMessage{
			{Emails: []string{"a@example.com"}, Subject: "s", Body: "b", ScheduledAt: &scheduled},
		})

		assert.Zero(t, count)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "messages[0].scheduled_at")
		assert.Zero(t, txManager.Calls())
	})

	t.Run("Failure_RequestInsertRollsBack", func(t *testing.T) {
		uc, _, contentRepo, requestRepo := setup(t)
		insertErr := errors.New("unique violation")
		contentRepo.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		requestRepo.On("CreateBatch", mock.Anything, mock.Anything).Return(insertErr).Once()

		count, err := uc.Submit(ctx, []*domain.NewMessage{
			{Emails: []string{"a@example.com"}, Subject: "s", Body: "b"},
		})

		assert.Zero(t, count)
		assert.ErrorIs(t, err, insertErr)
	})
}
