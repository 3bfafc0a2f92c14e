package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/mailqueue/internal/email/http/dto"
	emailUseCase "github.com/allisson/mailqueue/internal/email/usecase"
	"github.com/allisson/mailqueue/internal/httputil"
)

// StatsHandler serves delivery statistics.
type StatsHandler struct {
	statsUseCase emailUseCase.StatsUseCase
	logger       *slog.Logger
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(statsUseCase emailUseCase.StatsUseCase, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{statsUseCase: statsUseCase, logger: logger}
}

// TopicHandler returns request and result counts for a topic.
// GET /v1/topics/:topic_id
func (h *StatsHandler) TopicHandler(c *gin.Context) {
	stats, err := h.statsUseCase.TopicStats(c.Request.Context(), c.Param("topic_id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapTopicStatsToResponse(stats))
}

// SentCountHandler returns how many requests became Sent in the window.
// GET /v1/events/counts/sent?hours=N
func (h *StatsHandler) SentCountHandler(c *gin.Context) {
	hours, err := httputil.ParseWindowHours(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	count, err := h.statsUseCase.SentCount(c.Request.Context(), hours)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.SentCountResponse{Count: count})
}

// CountsHandler returns terminal request counts and result counts by kind in the window.
// GET /v1/events/counts?hours=N
func (h *StatsHandler) CountsHandler(c *gin.Context) {
	hours, err := httputil.ParseWindowHours(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	counts, err := h.statsUseCase.WindowCounts(c.Request.Context(), hours)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, counts)
}
