package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/mailqueue/internal/email/domain"
	"github.com/allisson/mailqueue/internal/email/usecase/mocks"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

func newStatsUseCase(t *testing.T) (*statsUseCase, *mocks.MockRequestRepository, *mocks.MockResultRepository) {
	t.Helper()

	requestRepo := &mocks.MockRequestRepository{}
	resultRepo := &mocks.MockResultRepository{}
	uc := NewStatsUseCase(requestRepo, resultRepo).(*statsUseCase)
	uc.now = func() time.Time { return fixedNow }

	t.Cleanup(func() {
		requestRepo.AssertExpectations(t)
		resultRepo.AssertExpectations(t)
	})
	return uc, requestRepo, resultRepo
}

func TestStatsUseCase_TopicStats(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		uc, requestRepo, resultRepo := newStatsUseCase(t)
		counts := domain.RequestCounts{Total: 10, Pending: 2, Processing: 1, Sent: 6, Failed: 1}
		results := map[domain.OutcomeKind]int64{domain.OutcomeDelivery: 6, domain.OutcomeOpen: 3}
		requestRepo.On("CountByTopic", mock.Anything, "spring-sale").Return(counts, nil).Once()
		resultRepo.On("CountDistinctByTopic", mock.Anything, "spring-sale").Return(results, nil).Once()

		stats, err := uc.TopicStats(ctx, "spring-sale")

		require.NoError(t, err)
		assert.Equal(t, &domain.TopicStats{TopicID: "spring-sale", Requests: counts, Results: results}, stats)
	})

	t.Run("Success_UnknownTopicHasZeroCounts", func(t *testing.T) {
		uc, requestRepo, resultRepo := newStatsUseCase(t)
		requestRepo.On("CountByTopic", mock.Anything, "empty").Return(domain.RequestCounts{}, nil).Once()
		resultRepo.On("CountDistinctByTopic", mock.Anything, "empty").Return(nil, nil).Once()

		stats, err := uc.TopicStats(ctx, "empty")

		require.NoError(t, err)
		assert.Equal(t, domain.RequestCounts{}, stats.Requests)
		assert.NotNil(t, stats.Results)
		assert.Empty(t, stats.Results)
	})

	t.Run("Failure_InvalidTopicID", func(t *testing.T) {
		uc, _, _ := newStatsUseCase(t)

		stats, err := uc.TopicStats(ctx, "no spaces allowed")

		assert.Nil(t, stats)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Failure_RepositoryError", func(t *testing.T) {
		uc, requestRepo, _ := newStatsUseCase(t)
		storeErr := errors.New("timeout")
		requestRepo.On("CountByTopic", mock.Anything, "spring-sale").Return(domain.RequestCounts{}, storeErr).Once()

		stats, err := uc.TopicStats(ctx, "spring-sale")

		assert.Nil(t, stats)
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestStatsUseCase_SentCount(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		uc, requestRepo, _ := newStatsUseCase(t)
		requestRepo.On("CountTerminalUpdatedSince", mock.Anything, fixedNow.Add(-24*time.Hour)).
			Return(domain.RequestCounts{Total: 9, Sent: 7, Failed: 2}, nil).
			Once()

		sent, err := uc.SentCount(ctx, 24)

		require.NoError(t, err)
		assert.Equal(t, int64(7), sent)
	})

	t.Run("Failure_WindowOutOfRange", func(t *testing.T) {
		uc, _, _ := newStatsUseCase(t)

		for _, hours := range []int{0, 169} {
			_, err := uc.SentCount(ctx, hours)
			assert.ErrorIs(t, err, domain.ErrInvalidWindow)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		}
	})
}

func TestStatsUseCase_WindowCounts(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		uc, requestRepo, resultRepo := newStatsUseCase(t)
		since := fixedNow.Add(-2 * time.Hour)
		results := map[domain.OutcomeKind]int64{domain.OutcomeBounce: 1, domain.OutcomeDelivery: 4}
		requestRepo.On("CountTerminalUpdatedSince", mock.Anything, since).
			Return(domain.RequestCounts{Total: 5, Sent: 4, Failed: 1}, nil).
			Once()
		resultRepo.On("CountCreatedSince", mock.Anything, since).Return(results, nil).Once()

		counts, err := uc.WindowCounts(ctx, 2)

		require.NoError(t, err)
		assert.Equal(t, &domain.WindowCounts{Hours: 2, Sent: 4, Failed: 1, Results: results}, counts)
	})

	t.Run("Failure_ResultRepositoryError", func(t *testing.T) {
		uc, requestRepo, resultRepo := newStatsUseCase(t)
		since := fixedNow.Add(-24 * time.Hour)
		storeErr := errors.New("timeout")
		requestRepo.On("CountTerminalUpdatedSince", mock.Anything, since).Return(domain.RequestCounts{}, nil).Once()
		resultRepo.On("CountCreatedSince", mock.Anything, since).Return(nil, storeErr).Once()

		counts, err := uc.WindowCounts(ctx, 24)

		assert.Nil(t, counts)
		assert.ErrorIs(t, err, storeErr)
	})
}
