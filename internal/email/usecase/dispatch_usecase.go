package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	validation "github.com/jellydator/validation"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	"github.com/allisson/mailqueue/internal/retry"
	customValidation "github.com/allisson/mailqueue/internal/validation"
)

// DispatchConfig holds scheduler configuration.
type DispatchConfig struct {
	BatchSize   int
	Concurrency int
	// TickTimeout bounds the claim and every publish of one run.
	TickTimeout  time.Duration
	PublishRetry retry.Policy
	StoreRetry   retry.Policy
}

const defaultTickTimeout = 2 * time.Minute

type dispatchUseCase struct {
	config      DispatchConfig
	txManager   database.TxManager
	requestRepo RequestRepository
	publisher   Publisher
	links       TrackingLinks
	logger      *slog.Logger
	now         func() time.Time
}

// RunOnce claims up to BatchSize due requests and publishes them. The claim
// commits before any publish. Published requests stay Processing until a
// delivery result arrives. Requests whose publish keeps failing are marked
// Failed, except while the broker circuit is open: those stay Processing for
// the reclaimer. Cancelling ctx does not interrupt a run that has started.
func (d *dispatchUseCase) RunOnce(ctx context.Context) (*domain.DispatchReport, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.config.TickTimeout)
	defer cancel()

	now := d.now()
	var claimed []*domain.ClaimedRequest
	err := retry.Do(ctx, d.config.StoreRetry, d.logger, "claim_due", func(ctx context.Context) error {
		return d.txManager.WithTx(ctx, func(ctx context.Context) error {
			var err error
			claimed, err = d.requestRepo.ClaimDue(ctx, now, d.config.BatchSize)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	report := &domain.DispatchReport{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return report, nil
	}

	slices.SortFunc(claimed, func(a, b *domain.ClaimedRequest) int {
		return domain.CompareDue(&a.Request, &b.Request)
	})

	var published, failed, unresolved atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.config.Concurrency)
	for _, c := range claimed {
		g.Go(func() error {
			switch d.dispatch(ctx, c) {
			case dispatchPublished:
				published.Add(1)
			case dispatchFailed:
				failed.Add(1)
			case dispatchUnresolved:
				unresolved.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Published = int(published.Load())
	report.Failed = int(failed.Load())
	report.Unresolved = int(unresolved.Load())

	d.logger.Info("dispatch run finished",
		slog.Int("claimed", report.Claimed),
		slog.Int("published", report.Published),
		slog.Int("failed", report.Failed),
		slog.Int("unresolved", report.Unresolved),
	)
	return report, nil
}

type dispatchResult int

const (
	dispatchPublished dispatchResult = iota
	dispatchFailed
	dispatchUnresolved
)

func (d *dispatchUseCase) dispatch(ctx context.Context, c *domain.ClaimedRequest) dispatchResult {
	if err := validation.Validate(c.RecipientEmail, validation.Required, customValidation.Email); err != nil {
		return d.markFailed(ctx, c, "invalid recipient email: "+err.Error())
	}

	msg := domain.NewDispatchMessage(c, d.links.URL(c.ID))
	err := retry.Do(ctx, d.config.PublishRetry, d.logger, "publish", func(ctx context.Context) error {
		err := d.publisher.Publish(ctx, msg)
		if errors.Is(err, domain.ErrBrokerCircuitOpen) {
			return retry.Stop(err)
		}
		return err
	})
	if err == nil {
		return dispatchPublished
	}
	if errors.Is(err, domain.ErrBrokerCircuitOpen) {
		// stays Processing; the reclaimer returns it to Pending
		d.logger.Warn("broker circuit open, email request left for reclaim",
			slog.String("request_id", c.ID.String()),
		)
		return dispatchUnresolved
	}

	d.logger.Error("failed to publish email request",
		slog.String("request_id", c.ID.String()),
		slog.Any("error", err),
	)
	return d.markFailed(ctx, c, "publish failed: "+err.Error())
}

func (d *dispatchUseCase) markFailed(ctx context.Context, c *domain.ClaimedRequest, reason string) dispatchResult {
	var moved bool
	err := retry.Do(ctx, d.config.StoreRetry, d.logger, "mark_failed", func(ctx context.Context) error {
		var err error
		moved, err = d.requestRepo.Transition(
			ctx, c.ID, domain.StatusProcessing, domain.StatusFailed, &reason, d.now(),
		)
		return err
	})
	if err != nil {
		d.logger.Error("failed to mark email request failed",
			slog.String("request_id", c.ID.String()),
			slog.Any("error", err),
		)
		return dispatchUnresolved
	}
	if !moved {
		d.logger.Warn("email request left processing before it could be marked failed",
			slog.String("request_id", c.ID.String()),
		)
	}
	return dispatchFailed
}

// NewDispatchUseCase creates a DispatchUseCase.
func NewDispatchUseCase(
	config DispatchConfig,
	txManager database.TxManager,
	requestRepo RequestRepository,
	publisher Publisher,
	links TrackingLinks,
	logger *slog.Logger,
) DispatchUseCase {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.TickTimeout <= 0 {
		config.TickTimeout = defaultTickTimeout
	}
	return &dispatchUseCase{
		config:      config,
		txManager:   txManager,
		requestRepo: requestRepo,
		publisher:   publisher,
		links:       links,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
