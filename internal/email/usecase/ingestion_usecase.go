package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	"github.com/allisson/mailqueue/internal/retry"
)

// IngestionConfig holds result ingestion configuration.
type IngestionConfig struct {
	// DedupAll stores at most one result per request and kind. Open results are
	// always deduplicated.
	DedupAll   bool
	StoreRetry retry.Policy
}

type ingestionUseCase struct {
	config      IngestionConfig
	txManager   database.TxManager
	requestRepo RequestRepository
	resultRepo  ResultRepository
	logger      *slog.Logger
	now         func() time.Time
}

// Ingest records the notification as a result and, for terminal outcomes, moves
// a Processing request to Sent or Failed. The request row stays locked while
// both happen, so concurrent notifications for one request serialize. Outcomes
// for already terminal requests are recorded without a transition.
func (i *ingestionUseCase) Ingest(
	ctx context.Context,
	n *domain.DeliveryNotification,
) (*domain.IngestOutcome, error) {
	if n.RequestID == uuid.Nil {
		return nil, domain.ErrMissingCorrelation
	}

	var outcome *domain.IngestOutcome
	err := retry.Do(ctx, i.config.StoreRetry, i.logger, "ingest_result", func(ctx context.Context) error {
		return i.txManager.WithTx(ctx, func(ctx context.Context) error {
			var err error
			outcome, err = i.apply(ctx, n)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	if outcome.Action == domain.IngestOutOfOrder {
		i.logger.Warn("terminal result for pending email request",
			slog.String("request_id", n.RequestID.String()),
			slog.String("kind", string(n.Kind)),
		)
	}
	i.logger.Debug("ingested email result",
		slog.String("request_id", n.RequestID.String()),
		slog.String("kind", string(n.Kind)),
		slog.String("action", string(outcome.Action)),
		slog.Bool("result_stored", outcome.ResultStored),
	)
	return outcome, nil
}

func (i *ingestionUseCase) apply(ctx context.Context, n *domain.DeliveryNotification) (*domain.IngestOutcome, error) {
	req, err := i.requestRepo.GetForUpdate(ctx, n.RequestID)
	if err != nil {
		return nil, err
	}

	now := i.now()
	raw := n.Raw
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	result := &domain.Result{
		RequestID: n.RequestID,
		Kind:      n.Kind,
		Raw:       raw,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var stored bool
	if n.Kind == domain.OutcomeOpen || i.config.DedupAll {
		stored, err = i.resultRepo.AppendUnique(ctx, result)
	} else {
		stored, err = i.resultRepo.Append(ctx, result)
	}
	if err != nil {
		return nil, err
	}

	outcome := &domain.IngestOutcome{
		RequestID:      n.RequestID,
		Kind:           n.Kind,
		Action:         domain.IngestRecorded,
		ResultStored:   stored,
		PreviousStatus: req.Status,
		Status:         req.Status,
	}

	target, terminal := n.TargetStatus()
	if !terminal {
		return outcome, nil
	}

	switch req.Status {
	case domain.StatusProcessing:
		var reason *string
		if target == domain.StatusFailed {
			r := n.Reason
			if r == "" {
				r = string(n.Kind)
			}
			reason = &r
		}
		moved, err := i.requestRepo.Transition(ctx, n.RequestID, domain.StatusProcessing, target, reason, now)
		if err != nil {
			return nil, err
		}
		if moved {
			outcome.Action = domain.IngestTransitioned
			outcome.Status = target
		}
	case domain.StatusSent, domain.StatusFailed:
		outcome.Action = domain.IngestAlreadyTerminal
	case domain.StatusPending:
		outcome.Action = domain.IngestOutOfOrder
	default:
		return nil, domain.ErrUnknownStatus
	}
	return outcome, nil
}

// NewIngestionUseCase creates an IngestionUseCase.
func NewIngestionUseCase(
	config IngestionConfig,
	txManager database.TxManager,
	requestRepo RequestRepository,
	resultRepo ResultRepository,
	logger *slog.Logger,
) IngestionUseCase {
	return &ingestionUseCase{
		config:      config,
		txManager:   txManager,
		requestRepo: requestRepo,
		resultRepo:  resultRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
