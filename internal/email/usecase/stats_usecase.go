package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/mailqueue/internal/email/domain"
	customValidation "github.com/allisson/mailqueue/internal/validation"
)

type statsUseCase struct {
	requestRepo RequestRepository
	resultRepo  ResultRepository
	now         func() time.Time
}

// TopicStats returns request counts by status and distinct-request result
// counts by kind for one topic. Unknown topics yield zero counts.
func (s *statsUseCase) TopicStats(ctx context.Context, topicID string) (*domain.TopicStats, error) {
	if err := validation.Validate(topicID, customValidation.TopicID); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	requests, err := s.requestRepo.CountByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	results, err := s.resultRepo.CountDistinctByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = map[domain.OutcomeKind]int64{}
	}

	return &domain.TopicStats{TopicID: topicID, Requests: requests, Results: results}, nil
}

// SentCount returns the number of requests that became Sent within the last hours.
func (s *statsUseCase) SentCount(ctx context.Context, hours int) (int64, error) {
	if err := domain.ValidateWindow(hours); err != nil {
		return 0, err
	}
	counts, err := s.requestRepo.CountTerminalUpdatedSince(ctx, s.since(hours))
	if err != nil {
		return 0, err
	}
	return counts.Sent, nil
}

// WindowCounts returns terminal request counts and result counts by kind
// within the last hours.
func (s *statsUseCase) WindowCounts(ctx context.Context, hours int) (*domain.WindowCounts, error) {
	if err := domain.ValidateWindow(hours); err != nil {
		return nil, err
	}
	since := s.since(hours)

	counts, err := s.requestRepo.CountTerminalUpdatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	results, err := s.resultRepo.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = map[domain.OutcomeKind]int64{}
	}

	return &domain.WindowCounts{
		Hours:   hours,
		Sent:    counts.Sent,
		Failed:  counts.Failed,
		Results: results,
	}, nil
}

func (s *statsUseCase) since(hours int) time.Time {
	return s.now().Add(-time.Duration(hours) * time.Hour)
}

// NewStatsUseCase creates a StatsUseCase.
func NewStatsUseCase(requestRepo RequestRepository, resultRepo ResultRepository) StatsUseCase {
	return &statsUseCase{
		requestRepo: requestRepo,
		resultRepo:  resultRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
