package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/allisson/mailqueue/internal/email/domain"
)

type trackingUseCase struct {
	resultRepo ResultRepository
	now        func() time.Time
}

// RecordOpen appends an Open result. The request status is never changed.
func (t *trackingUseCase) RecordOpen(ctx context.Context, requestID uuid.UUID, raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	now := t.now()
	return t.resultRepo.Append(ctx, &domain.Result{
		RequestID: requestID,
		Kind:      domain.OutcomeOpen,
		Raw:       raw,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// NewTrackingUseCase creates a TrackingUseCase.
func NewTrackingUseCase(resultRepo ResultRepository) TrackingUseCase {
	return &trackingUseCase{
		resultRepo: resultRepo,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AsyncOpenRecorder records opens off the request path. At most maxInflight
// writes run at once; opens arriving beyond that are dropped.
type AsyncOpenRecorder struct {
	tracking     TrackingUseCase
	writeTimeout time.Duration
	sem          *semaphore.Weighted
	logger       *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncOpenRecorder creates an AsyncOpenRecorder.
func NewAsyncOpenRecorder(
	tracking TrackingUseCase,
	writeTimeout time.Duration,
	maxInflight int,
	logger *slog.Logger,
) *AsyncOpenRecorder {
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &AsyncOpenRecorder{
		tracking:     tracking,
		writeTimeout: writeTimeout,
		sem:          semaphore.NewWeighted(int64(maxInflight)),
		logger:       logger,
	}
}

// Record schedules an open write and reports whether it was accepted.
func (r *AsyncOpenRecorder) Record(requestID uuid.UUID, raw json.RawMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if !r.sem.TryAcquire(1) {
		r.logger.Warn("dropping open event, too many writes in flight",
			slog.String("request_id", requestID.String()),
		)
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		defer cancel()

		if _, err := r.tracking.RecordOpen(ctx, requestID, raw); err != nil {
			r.logger.Error("failed to record open event",
				slog.String("request_id", requestID.String()),
				slog.Any("error", err),
			)
		}
	}()
	return true
}

// Shutdown stops accepting opens and waits for in-flight writes until ctx is done.
func (r *AsyncOpenRecorder) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
