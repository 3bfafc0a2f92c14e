package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/email/domain"
	"github.com/allisson/mailqueue/internal/metrics"
)

const metricsDomain = "email"

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func record(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := statusOf(err)
	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// dispatchUseCaseWithMetrics decorates DispatchUseCase with metrics instrumentation.
type dispatchUseCaseWithMetrics struct {
	next    DispatchUseCase
	metrics metrics.BusinessMetrics
}

// NewDispatchUseCaseWithMetrics wraps a DispatchUseCase with metrics recording.
func NewDispatchUseCaseWithMetrics(useCase DispatchUseCase, m metrics.BusinessMetrics) DispatchUseCase {
	return &dispatchUseCaseWithMetrics{next: useCase, metrics: m}
}

// RunOnce records run metrics and per-outcome request counts.
func (d *dispatchUseCaseWithMetrics) RunOnce(ctx context.Context) (*domain.DispatchReport, error) {
	start := time.Now()
	report, err := d.next.RunOnce(ctx)
	record(ctx, d.metrics, "dispatch_run", start, err)

	if report != nil {
		d.metrics.RecordItems(ctx, metricsDomain, "dispatch", "claimed", int64(report.Claimed))
		d.metrics.RecordItems(ctx, metricsDomain, "dispatch", "published", int64(report.Published))
		d.metrics.RecordItems(ctx, metricsDomain, "dispatch", "publish_failed", int64(report.Failed))
		d.metrics.RecordItems(ctx, metricsDomain, "dispatch", "unresolved", int64(report.Unresolved))
	}
	return report, err
}

// reclaimUseCaseWithMetrics decorates ReclaimUseCase with metrics instrumentation.
type reclaimUseCaseWithMetrics struct {
	next    ReclaimUseCase
	metrics metrics.BusinessMetrics
}

// NewReclaimUseCaseWithMetrics wraps a ReclaimUseCase with metrics recording.
func NewReclaimUseCaseWithMetrics(useCase ReclaimUseCase, m metrics.BusinessMetrics) ReclaimUseCase {
	return &reclaimUseCaseWithMetrics{next: useCase, metrics: m}
}

// RunOnce records run metrics and the number of reclaimed requests.
func (r *reclaimUseCaseWithMetrics) RunOnce(ctx context.Context) ([]uuid.UUID, error) {
	start := time.Now()
	ids, err := r.next.RunOnce(ctx)
	record(ctx, r.metrics, "reclaim_run", start, err)
	r.metrics.RecordItems(ctx, metricsDomain, "reclaim", "reclaimed", int64(len(ids)))
	return ids, err
}

// ingestionUseCaseWithMetrics decorates IngestionUseCase with metrics instrumentation.
type ingestionUseCaseWithMetrics struct {
	next    IngestionUseCase
	metrics metrics.BusinessMetrics
}

// NewIngestionUseCaseWithMetrics wraps an IngestionUseCase with metrics recording.
func NewIngestionUseCaseWithMetrics(useCase IngestionUseCase, m metrics.BusinessMetrics) IngestionUseCase {
	return &ingestionUseCaseWithMetrics{next: useCase, metrics: m}
}

// Ingest records ingestion metrics labelled by what happened to the request.
func (i *ingestionUseCaseWithMetrics) Ingest(
	ctx context.Context,
	notification *domain.DeliveryNotification,
) (*domain.IngestOutcome, error) {
	start := time.Now()
	outcome, err := i.next.Ingest(ctx, notification)
	record(ctx, i.metrics, "result_ingest", start, err)

	if outcome != nil {
		i.metrics.RecordItems(ctx, metricsDomain, "result_ingest", string(outcome.Action), 1)
		if !outcome.ResultStored {
			i.metrics.RecordItems(ctx, metricsDomain, "result_ingest", "duplicate", 1)
		}
	}
	return outcome, err
}

// trackingUseCaseWithMetrics decorates TrackingUseCase with metrics instrumentation.
type trackingUseCaseWithMetrics struct {
	next    TrackingUseCase
	metrics metrics.BusinessMetrics
}

// NewTrackingUseCaseWithMetrics wraps a TrackingUseCase with metrics recording.
func NewTrackingUseCaseWithMetrics(useCase TrackingUseCase, m metrics.BusinessMetrics) TrackingUseCase {
	return &trackingUseCaseWithMetrics{next: useCase, metrics: m}
}

// RecordOpen records open tracking metrics.
func (t *trackingUseCaseWithMetrics) RecordOpen(
	ctx context.Context,
	requestID uuid.UUID,
	raw json.RawMessage,
) (bool, error) {
	start := time.Now()
	stored, err := t.next.RecordOpen(ctx, requestID, raw)
	record(ctx, t.metrics, "open_record", start, err)
	if err == nil && !stored {
		t.metrics.RecordItems(ctx, metricsDomain, "open_record", "duplicate", 1)
	}
	return stored, err
}

// statsUseCaseWithMetrics decorates StatsUseCase with metrics instrumentation.
type statsUseCaseWithMetrics struct {
	next    StatsUseCase
	metrics metrics.BusinessMetrics
}

// NewStatsUseCaseWithMetrics wraps a StatsUseCase with metrics recording.
func NewStatsUseCaseWithMetrics(useCase StatsUseCase, m metrics.BusinessMetrics) StatsUseCase {
	return &statsUseCaseWithMetrics{next: useCase, metrics: m}
}

// TopicStats records metrics for topic rollups.
func (s *statsUseCaseWithMetrics) TopicStats(ctx context.Context, topicID string) (*domain.TopicStats, error) {
	start := time.Now()
	stats, err := s.next.TopicStats(ctx, topicID)
	record(ctx, s.metrics, "stats_topic", start, err)
	return stats, err
}

// SentCount records metrics for windowed sent counts.
func (s *statsUseCaseWithMetrics) SentCount(ctx context.Context, hours int) (int64, error) {
	start := time.Now()
	sent, err := s.next.SentCount(ctx, hours)
	record(ctx, s.metrics, "stats_sent", start, err)
	return sent, err
}

// WindowCounts records metrics for windowed counts.
func (s *statsUseCaseWithMetrics) WindowCounts(ctx context.Context, hours int) (*domain.WindowCounts, error) {
	start := time.Now()
	counts, err := s.next.WindowCounts(ctx, hours)
	record(ctx, s.metrics, "stats_window", start, err)
	return counts, err
}

// messageUseCaseWithMetrics decorates MessageUseCase with metrics instrumentation.
type messageUseCaseWithMetrics struct {
	next    MessageUseCase
	metrics metrics.BusinessMetrics
}

// NewMessageUseCaseWithMetrics wraps a MessageUseCase with metrics recording.
func NewMessageUseCaseWithMetrics(useCase MessageUseCase, m metrics.BusinessMetrics) MessageUseCase {
	return &messageUseCaseWithMetrics{next: useCase, metrics: m}
}

// Submit records ingress metrics and the number of requests created.
func (m *messageUseCaseWithMetrics) Submit(ctx context.Context, messages []*domain.NewMessage) (int, error) {
	start := time.Now()
	count, err := m.next.Submit(ctx, messages)
	record(ctx, m.metrics, "message_submit", start, err)
	m.metrics.RecordItems(ctx, metricsDomain, "message_submit", "created", int64(count))
	return count, err
}
