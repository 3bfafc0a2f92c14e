package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/mailqueue/internal/email/domain"
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// SNS message types.
const (
	SNSTypeNotification             = "Notification"
	SNSTypeSubscriptionConfirmation = "SubscriptionConfirmation"
	SNSTypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
)

// requestIDTag is the SES message tag carrying the request id.
const requestIDTag = "request_id"

// requestIDHeader is the mail header consulted when the tag is absent.
const requestIDHeader = "X-Request-Id"

// SNSMessage is the SNS HTTP delivery envelope.
type SNSMessage struct {
	Type         string `json:"Type"`
	MessageID    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
	Message      string `json:"Message"`
	Timestamp    string `json:"Timestamp"`
	SubscribeURL string `json:"SubscribeURL"`
	Token        string `json:"Token"`
}

// sesEvent covers both SES event publishing (eventType) and SES feedback
// notifications (notificationType).
type sesEvent struct {
	EventType        string `json:"eventType"`
	NotificationType string `json:"notificationType"`
	Mail             struct {
		MessageID string              `json:"messageId"`
		Tags      map[string][]string `json:"tags"`
		Headers   []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
	} `json:"mail"`
	Bounce *struct {
		BounceType    string `json:"bounceType"`
		BounceSubType string `json:"bounceSubType"`
	} `json:"bounce"`
	Complaint *struct {
		ComplaintFeedbackType string `json:"complaintFeedbackType"`
	} `json:"complaint"`
	Reject *struct {
		Reason string `json:"reason"`
	} `json:"reject"`
	Failure *struct {
		ErrorMessage string `json:"errorMessage"`
	} `json:"failure"`
}

// ParseSNSMessage decodes an SNS envelope.
func ParseSNSMessage(body []byte) (*SNSMessage, error) {
	var msg SNSMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed SNS message")
	}
	if msg.Type == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "SNS message type is missing")
	}
	return &msg, nil
}

// ParseSESNotification decodes the SES payload of an SNS Notification into a
// DeliveryNotification. The SES payload is kept verbatim as Raw.
func ParseSESNotification(message string) (*domain.DeliveryNotification, error) {
	var event sesEvent
	if err := json.Unmarshal([]byte(message), &event); err != nil {
		return nil, domain.ErrUnsupportedNotification
	}

	kind := event.EventType
	if kind == "" {
		kind = event.NotificationType
	}
	if kind == "" {
		return nil, domain.ErrUnsupportedNotification
	}

	rawID := requestIDFromMail(&event)
	if rawID == "" {
		return nil, domain.ErrMissingCorrelation
	}
	requestID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid request id %q", rawID))
	}

	n := &domain.DeliveryNotification{
		RequestID: requestID,
		Kind:      domain.OutcomeKind(kind),
		Raw:       json.RawMessage(message),
	}

	var detail string
	switch {
	case event.Bounce != nil:
		n.BounceType = event.Bounce.BounceType
		detail = strings.Trim(event.Bounce.BounceType+"/"+event.Bounce.BounceSubType, "/")
	case event.Complaint != nil:
		detail = event.Complaint.ComplaintFeedbackType
	case event.Reject != nil:
		detail = event.Reject.Reason
	case event.Failure != nil:
		detail = event.Failure.ErrorMessage
	}
	n.Reason = kind
	if detail != "" {
		n.Reason = kind + ": " + detail
	}
	return n, nil
}

func requestIDFromMail(event *sesEvent) string {
	if values := event.Mail.Tags[requestIDTag]; len(values) > 0 && values[0] != "" {
		return values[0]
	}
	for _, h := range event.Mail.Headers {
		if strings.EqualFold(h.Name, requestIDHeader) {
			return strings.TrimSpace(h.Value)
		}
	}
	return ""
}
