package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/email/domain"
	"github.com/allisson/mailqueue/internal/email/http/dto"
	"github.com/allisson/mailqueue/internal/email/service"
	emailUseCase "github.com/allisson/mailqueue/internal/email/usecase"
	apperrors "github.com/allisson/mailqueue/internal/errors"
	"github.com/allisson/mailqueue/internal/httputil"
)

// maxNotificationBytes bounds the body accepted by the results webhook.
const maxNotificationBytes = 256 << 10

// trackingPixel is a 1x1 transparent PNG.
var trackingPixel = encodePixel()

func encodePixel() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.NRGBA{})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// OpenRecorder accepts open events without blocking the caller.
type OpenRecorder interface {
	Record(requestID uuid.UUID, raw json.RawMessage) bool
}

// LinkVerifier checks tracking link signatures.
type LinkVerifier interface {
	Verify(requestID uuid.UUID, sig string) bool
}

// SubscriptionConfirmer confirms SNS subscriptions.
type SubscriptionConfirmer interface {
	Confirm(ctx context.Context, subscribeURL string) error
}

// EventHandler receives delivery events: tracking pixel hits and provider
// notifications delivered through SNS.
type EventHandler struct {
	ingestionUseCase emailUseCase.IngestionUseCase
	opens            OpenRecorder
	links            LinkVerifier
	confirmer        SubscriptionConfirmer
	logger           *slog.Logger
}

// NewEventHandler creates an EventHandler. A nil confirmer leaves SNS
// subscriptions for manual confirmation.
func NewEventHandler(
	ingestionUseCase emailUseCase.IngestionUseCase,
	opens OpenRecorder,
	links LinkVerifier,
	confirmer SubscriptionConfirmer,
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		ingestionUseCase: ingestionUseCase,
		opens:            opens,
		links:            links,
		confirmer:        confirmer,
		logger:           logger,
	}
}

// OpenHandler serves the tracking pixel and records an open for the request.
// GET /v1/events/open?requestId=<uuid>&sig=<hex>
// The pixel is returned regardless of whether the open was recorded.
func (h *EventHandler) OpenHandler(c *gin.Context) {
	if requestID, err := uuid.Parse(c.Query("requestId")); err == nil {
		if h.links.Verify(requestID, c.Query("sig")) {
			raw, _ := json.Marshal(map[string]string{
				"user_agent": c.Request.UserAgent(),
				"ip":         c.ClientIP(),
			})
			if !h.opens.Record(requestID, raw) {
				h.logger.Warn("open event dropped", slog.String("request_id", requestID.String()))
			}
		} else {
			h.logger.Debug("open event with invalid signature", slog.String("request_id", requestID.String()))
		}
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/png", trackingPixel)
}

// ResultsHandler ingests SES notifications delivered by SNS.
// POST /v1/events/results
func (h *EventHandler) ResultsHandler(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxNotificationBytes))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	msg, err := service.ParseSNSMessage(body)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	switch msg.Type {
	case service.SNSTypeSubscriptionConfirmation:
		h.handleSubscription(c, msg)
	case service.SNSTypeNotification:
		h.handleNotification(c, msg)
	default:
		h.logger.Info("SNS message ignored",
			slog.String("type", msg.Type),
			slog.String("topic_arn", msg.TopicArn),
		)
		c.JSON(http.StatusOK, dto.MessageResponse{Message: "Other message type received"})
	}
}

func (h *EventHandler) handleSubscription(c *gin.Context, msg *service.SNSMessage) {
	if h.confirmer == nil {
		h.logger.Info("SNS subscription confirmation required",
			slog.String("topic_arn", msg.TopicArn),
			slog.String("subscribe_url", msg.SubscribeURL),
		)
		c.JSON(http.StatusOK, dto.MessageResponse{Message: "Subscription confirmation required"})
		return
	}

	if err := h.confirmer.Confirm(c.Request.Context(), msg.SubscribeURL); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	h.logger.Info("SNS subscription confirmed", slog.String("topic_arn", msg.TopicArn))
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Subscription confirmed"})
}

func (h *EventHandler) handleNotification(c *gin.Context, msg *service.SNSMessage) {
	notification, err := service.ParseSESNotification(msg.Message)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if _, err := h.ingestionUseCase.Ingest(c.Request.Context(), notification); err != nil {
		// An unknown request id is a bad payload, not a missing resource.
		if apperrors.Is(err, domain.ErrRequestNotFound) {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "OK"})
}
