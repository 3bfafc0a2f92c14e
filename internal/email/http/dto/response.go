package dto

import (
	"time"

	"github.com/allisson/mailqueue/internal/email/domain"
)

// CreateMessagesResponse reports how many requests were created.
type CreateMessagesResponse struct {
	Count   int    `json:"count"`
	Elapsed string `json:"elapsed"`
}

// NewCreateMessagesResponse builds the ingress response.
func NewCreateMessagesResponse(count int, elapsed time.Duration) CreateMessagesResponse {
	return CreateMessagesResponse{Count: count, Elapsed: elapsed.String()}
}

// TopicStatsResponse is the rollup returned by GET /v1/topics/:topic_id.
type TopicStatsResponse struct {
	TopicID string               `json:"topic_id"`
	Request domain.RequestCounts `json:"request"`
	Result  ResultCounts         `json:"result"`
}

// ResultCounts counts distinct requests per outcome kind.
type ResultCounts struct {
	Statuses map[domain.OutcomeKind]int64 `json:"statuses"`
}

// MapTopicStatsToResponse converts topic stats to their response shape.
func MapTopicStatsToResponse(stats *domain.TopicStats) TopicStatsResponse {
	statuses := stats.Results
	if statuses == nil {
		statuses = map[domain.OutcomeKind]int64{}
	}
	return TopicStatsResponse{
		TopicID: stats.TopicID,
		Request: stats.Requests,
		Result:  ResultCounts{Statuses: statuses},
	}
}

// SentCountResponse is returned by GET /v1/events/counts/sent.
type SentCountResponse struct {
	Count int64 `json:"count"`
}

// MessageResponse is a short acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
