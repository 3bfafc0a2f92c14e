// Package mocks provides mock implementations of the email use case dependencies
// and use cases for testing.
package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/mailqueue/internal/email/domain"
)

// MockContentRepository is a mock implementation of ContentRepository.
type MockContentRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockContentRepository) Create(ctx context.Context, content *domain.Content) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

// MockRequestRepository is a mock implementation of RequestRepository.
type MockRequestRepository struct {
	mock.Mock
}

// CreateBatch mocks the CreateBatch method.
func (m *MockRequestRepository) CreateBatch(ctx context.Context, requests []*domain.Request) error {
	args := m.Called(ctx, requests)
	return args.Error(0)
}

// ClaimDue mocks the ClaimDue method.
func (m *MockRequestRepository) ClaimDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.ClaimedRequest, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ClaimedRequest), args.Error(1)
}

// ReclaimStale mocks the ReclaimStale method.
func (m *MockRequestRepository) ReclaimStale(
	ctx context.Context,
	staleBefore time.Time,
	limit int,
	now time.Time,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, staleBefore, limit, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// GetForUpdate mocks the GetForUpdate method.
func (m *MockRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

// Transition mocks the Transition method.
func (m *MockRequestRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from, to domain.Status,
	reason *string,
	now time.Time,
) (bool, error) {
	args := m.Called(ctx, id, from, to, reason, now)
	return args.Bool(0), args.Error(1)
}

// CountByTopic mocks the CountByTopic method.
func (m *MockRequestRepository) CountByTopic(ctx context.Context, topicID string) (domain.RequestCounts, error) {
	args := m.Called(ctx, topicID)
	return args.Get(0).(domain.RequestCounts), args.Error(1)
}

// CountTerminalUpdatedSince mocks the CountTerminalUpdatedSince method.
func (m *MockRequestRepository) CountTerminalUpdatedSince(
	ctx context.Context,
	since time.Time,
) (domain.RequestCounts, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.RequestCounts), args.Error(1)
}

// MockResultRepository is a mock implementation of ResultRepository.
type MockResultRepository struct {
	mock.Mock
}

// Append mocks the Append method.
func (m *MockResultRepository) Append(ctx context.Context, result *domain.Result) (bool, error) {
	args := m.Called(ctx, result)
	return args.Bool(0), args.Error(1)
}

// AppendUnique mocks the AppendUnique method.
func (m *MockResultRepository) AppendUnique(ctx context.Context, result *domain.Result) (bool, error) {
	args := m.Called(ctx, result)
	return args.Bool(0), args.Error(1)
}

// CountDistinctByTopic mocks the CountDistinctByTopic method.
func (m *MockResultRepository) CountDistinctByTopic(
	ctx context.Context,
	topicID string,
) (map[domain.OutcomeKind]int64, error) {
	args := m.Called(ctx, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.OutcomeKind]int64), args.Error(1)
}

// CountCreatedSince mocks the CountCreatedSince method.
func (m *MockResultRepository) CountCreatedSince(
	ctx context.Context,
	since time.Time,
) (map[domain.OutcomeKind]int64, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.OutcomeKind]int64), args.Error(1)
}

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

// Publish mocks the Publish method.
func (m *MockPublisher) Publish(ctx context.Context, msg domain.DispatchMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockTrackingLinks is a mock implementation of TrackingLinks.
type MockTrackingLinks struct {
	mock.Mock
}

// URL mocks the URL method.
func (m *MockTrackingLinks) URL(requestID uuid.UUID) string {
	args := m.Called(requestID)
	return args.String(0)
}

// MockDispatchUseCase is a mock implementation of DispatchUseCase.
type MockDispatchUseCase struct {
	mock.Mock
}

// RunOnce mocks the RunOnce method.
func (m *MockDispatchUseCase) RunOnce(ctx context.Context) (*domain.DispatchReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DispatchReport), args.Error(1)
}

// MockReclaimUseCase is a mock implementation of ReclaimUseCase.
type MockReclaimUseCase struct {
	mock.Mock
}

// RunOnce mocks the RunOnce method.
func (m *MockReclaimUseCase) RunOnce(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockIngestionUseCase is a mock implementation of IngestionUseCase.
type MockIngestionUseCase struct {
	mock.Mock
}

// Ingest mocks the Ingest method.
func (m *MockIngestionUseCase) Ingest(
	ctx context.Context,
	notification *domain.DeliveryNotification,
) (*domain.IngestOutcome, error) {
	args := m.Called(ctx, notification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestOutcome), args.Error(1)
}

// MockTrackingUseCase is a mock implementation of TrackingUseCase.
type MockTrackingUseCase struct {
	mock.Mock
}

// RecordOpen mocks the RecordOpen method.
func (m *MockTrackingUseCase) RecordOpen(ctx context.Context, requestID uuid.UUID, raw json.RawMessage) (bool, error) {
	args := m.Called(ctx, requestID, raw)
	return args.Bool(0), args.Error(1)
}

// MockStatsUseCase is a mock implementation of StatsUseCase.
type MockStatsUseCase struct {
	mock.Mock
}

// TopicStats mocks the TopicStats method.
func (m *MockStatsUseCase) TopicStats(ctx context.Context, topicID string) (*domain.TopicStats, error) {
	args := m.Called(ctx, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TopicStats), args.Error(1)
}

// SentCount mocks the SentCount method.
func (m *MockStatsUseCase) SentCount(ctx context.Context, hours int) (int64, error) {
	args := m.Called(ctx, hours)
	return args.Get(0).(int64), args.Error(1)
}

// WindowCounts mocks the WindowCounts method.
func (m *MockStatsUseCase) WindowCounts(ctx context.Context, hours int) (*domain.WindowCounts, error) {
	args := m.Called(ctx, hours)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WindowCounts), args.Error(1)
}

// MockMessageUseCase is a mock implementation of MessageUseCase.
type MockMessageUseCase struct {
	mock.Mock
}

// Submit mocks the Submit method.
func (m *MockMessageUseCase) Submit(ctx context.Context, messages []*domain.NewMessage) (int, error) {
	args := m.Called(ctx, messages)
	return args.Int(0), args.Error(1)
}
