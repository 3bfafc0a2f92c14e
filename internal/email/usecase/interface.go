// Package usecase implements the email dispatch and reconciliation logic: claiming
// due requests and publishing them, reclaiming stuck ones, ingesting provider
// results, recording opens and aggregating delivery statistics.
package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/email/domain"
)

// ContentRepository defines persistence of shared message bodies.
type ContentRepository interface {
	Create(ctx context.Context, content *domain.Content) error
}

// RequestRepository defines persistence and conditional state changes of requests.
type RequestRepository interface {
	CreateBatch(ctx context.Context, requests []*domain.Request) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.ClaimedRequest, error)
	ReclaimStale(ctx context.Context, staleBefore time.Time, limit int, now time.Time) ([]uuid.UUID, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	// Transition moves the request from one status to another. It reports false
	// when the stored status was no longer from.
	Transition(
		ctx context.Context,
		id uuid.UUID,
		from, to domain.Status,
		reason *string,
		now time.Time,
	) (bool, error)
	CountByTopic(ctx context.Context, topicID string) (domain.RequestCounts, error)
	CountTerminalUpdatedSince(ctx context.Context, since time.Time) (domain.RequestCounts, error)
}

// ResultRepository defines the append-only result log.
type ResultRepository interface {
	// Append inserts a result. Duplicates rejected by a unique index report false.
	Append(ctx context.Context, result *domain.Result) (bool, error)
	// AppendUnique inserts a result unless one of the same kind already exists for the request.
	AppendUnique(ctx context.Context, result *domain.Result) (bool, error)
	CountDistinctByTopic(ctx context.Context, topicID string) (map[domain.OutcomeKind]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (map[domain.OutcomeKind]int64, error)
}

// Publisher hands a dispatch message to the broker. A nil error means the broker
// accepted the message.
type Publisher interface {
	Publish(ctx context.Context, msg domain.DispatchMessage) error
}

// TrackingLinks builds tracking pixel URLs. An empty URL disables the pixel.
type TrackingLinks interface {
	URL(requestID uuid.UUID) string
}

// DispatchUseCase claims due requests and publishes them.
type DispatchUseCase interface {
	RunOnce(ctx context.Context) (*domain.DispatchReport, error)
}

// ReclaimUseCase returns stuck Processing requests to Pending.
type ReclaimUseCase interface {
	RunOnce(ctx context.Context) ([]uuid.UUID, error)
}

// IngestionUseCase applies provider notifications to requests.
type IngestionUseCase interface {
	Ingest(ctx context.Context, notification *domain.DeliveryNotification) (*domain.IngestOutcome, error)
}

// TrackingUseCase records pixel opens.
type TrackingUseCase interface {
	// RecordOpen stores an Open result. It reports false when the open was already recorded.
	RecordOpen(ctx context.Context, requestID uuid.UUID, raw json.RawMessage) (bool, error)
}

// StatsUseCase answers analytics queries.
type StatsUseCase interface {
	TopicStats(ctx context.Context, topicID string) (*domain.TopicStats, error)
	SentCount(ctx context.Context, hours int) (int64, error)
	WindowCounts(ctx context.Context, hours int) (*domain.WindowCounts, error)
}

// MessageUseCase accepts new messages and fans them out into requests.
type MessageUseCase interface {
	Submit(ctx context.Context, messages []*domain.NewMessage) (int, error)
}
