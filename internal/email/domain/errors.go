package domain

import (
	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// Email domain errors.
var (
	// ErrRequestNotFound indicates no request exists with the given id.
	ErrRequestNotFound = apperrors.Wrap(apperrors.ErrNotFound, "email request not found")

	// ErrUnknownStatus indicates a status code or name outside the closed set.
	ErrUnknownStatus = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown request status")

	// ErrInvalidTransition indicates a status change outside the transition table.
	ErrInvalidTransition = apperrors.Wrap(apperrors.ErrConflict, "invalid status transition")

	// ErrMissingCorrelation indicates a notification without a request id.
	ErrMissingCorrelation = apperrors.Wrap(apperrors.ErrInvalidInput, "notification carries no request id")

	// ErrUnsupportedNotification indicates a payload that is not an SES event.
	ErrUnsupportedNotification = apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported notification payload")

	// ErrBrokerCircuitOpen indicates publishes are being rejected without reaching the broker.
	ErrBrokerCircuitOpen = apperrors.Wrap(apperrors.ErrUnavailable, "broker circuit open")

	// ErrInvalidSignature indicates a tracking link whose signature does not match.
	ErrInvalidSignature = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid tracking signature")
)
