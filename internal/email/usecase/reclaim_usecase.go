package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/retry"
)

// ReclaimConfig holds reclaimer configuration.
type ReclaimConfig struct {
	// ProcessingTimeout is how long a request may stay Processing before it is reclaimed.
	ProcessingTimeout time.Duration
	BatchSize         int
	StoreRetry        retry.Policy
}

type reclaimUseCase struct {
	config      ReclaimConfig
	txManager   database.TxManager
	requestRepo RequestRepository
	logger      *slog.Logger
	now         func() time.Time
}

// RunOnce returns Processing requests not updated within ProcessingTimeout to
// Pending and reports their ids.
func (r *reclaimUseCase) RunOnce(ctx context.Context) ([]uuid.UUID, error) {
	now := r.now()
	staleBefore := now.Add(-r.config.ProcessingTimeout)

	var ids []uuid.UUID
	err := retry.Do(ctx, r.config.StoreRetry, r.logger, "reclaim_stale", func(ctx context.Context) error {
		return r.txManager.WithTx(ctx, func(ctx context.Context) error {
			var err error
			ids, err = r.requestRepo.ReclaimStale(ctx, staleBefore, r.config.BatchSize, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		r.logger.Warn("reclaimed stuck email requests",
			slog.Int("count", len(ids)),
			slog.Time("stale_before", staleBefore),
		)
		for _, id := range ids {
			r.logger.Debug("reclaimed email request", slog.String("request_id", id.String()))
		}
	}
	return ids, nil
}

// NewReclaimUseCase creates a ReclaimUseCase.
func NewReclaimUseCase(
	config ReclaimConfig,
	txManager database.TxManager,
	requestRepo RequestRepository,
	logger *slog.Logger,
) ReclaimUseCase {
	return &reclaimUseCase{
		config:      config,
		txManager:   txManager,
		requestRepo: requestRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
