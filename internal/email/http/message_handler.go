// Package http provides the gin handlers of the email API: message ingress,
// delivery statistics, the tracking pixel and the provider results webhook.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/mailqueue/internal/email/http/dto"
	emailUseCase "github.com/allisson/mailqueue/internal/email/usecase"
	"github.com/allisson/mailqueue/internal/httputil"
	customValidation "github.com/allisson/mailqueue/internal/validation"
)

// MessageHandler accepts new messages.
type MessageHandler struct {
	messageUseCase emailUseCase.MessageUseCase
	location       *time.Location
	logger         *slog.Logger
}

// NewMessageHandler creates a MessageHandler. Naive scheduled_at values are
// interpreted in location.
func NewMessageHandler(
	messageUseCase emailUseCase.MessageUseCase,
	location *time.Location,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
		location:       location,
		logger:         logger,
	}
}

// CreateHandler stores messages as Pending requests, one per recipient.
// POST /v1/messages
// Returns 201 Created with the number of requests created.
func (h *MessageHandler) CreateHandler(c *gin.Context) {
	start := time.Now()

	var req dto.CreateMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	messages, err := req.ToDomain(h.location)
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	count, err := h.messageUseCase.Submit(c.Request.Context(), messages)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("messages accepted",
		slog.Int("messages", len(messages)),
		slog.Int("requests", count),
	)
	c.JSON(http.StatusCreated, dto.NewCreateMessagesResponse(count, time.Since(start)))
}
