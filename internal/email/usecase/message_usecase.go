package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/database"
	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

type messageUseCase struct {
	txManager   database.TxManager
	contentRepo ContentRepository
	requestRepo RequestRepository
	now         func() time.Time
}

// Submit stores one content row per message and one Pending request per
// recipient in a single transaction and returns the number of requests created.
// Messages scheduled more than an hour in the past are rejected.
func (m *messageUseCase) Submit(ctx context.Context, messages []*domain.NewMessage) (int, error) {
	now := m.now()
	for i, msg := range messages {
		if msg.ScheduledAt != nil && msg.ScheduledAt.Before(now.Add(-domain.MaxSchedulePast)) {
			return 0, apperrors.Wrap(
				apperrors.ErrInvalidInput,
				fmt.Sprintf("messages[%d].scheduled_at: must not be more than 1 hour in the past", i),
			)
		}
	}

	count := 0
	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, msg := range messages {
			content := &domain.Content{
				Subject:   msg.Subject,
				Body:      msg.Body,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := m.contentRepo.Create(ctx, content); err != nil {
				return err
			}

			requests, err := msg.Requests(content.ID, now, uuid.NewV7)
			if err != nil {
				return err
			}
			if err := m.requestRepo.CreateBatch(ctx, requests); err != nil {
				return err
			}
			count += len(requests)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// NewMessageUseCase creates a MessageUseCase.
func NewMessageUseCase(
	txManager database.TxManager,
	contentRepo ContentRepository,
	requestRepo RequestRepository,
) MessageUseCase {
	return &messageUseCase{
		txManager:   txManager,
		contentRepo: contentRepo,
		requestRepo: requestRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}
