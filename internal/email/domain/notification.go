package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DeliveryNotification is a provider-reported outcome correlated to a request.
type DeliveryNotification struct {
	RequestID  uuid.UUID
	Kind       OutcomeKind
	BounceType string
	// Reason is a short description stored on the request when the outcome fails it.
	Reason string
	Raw    json.RawMessage
}

// TargetStatus returns the terminal status this notification drives the
// request to. The boolean is false for informational outcomes.
func (n *DeliveryNotification) TargetStatus() (Status, bool) {
	switch n.Kind {
	case OutcomeDelivery:
		return StatusSent, true
	case OutcomeBounce:
		if n.BounceType == BounceTypeTransient {
			return 0, false
		}
		return StatusFailed, true
	case OutcomeComplaint, OutcomeReject, OutcomeRenderingFailure:
		return StatusFailed, true
	case OutcomeSend, OutcomeDeliveryDelay, OutcomeOpen, OutcomeClick, OutcomeSubscription:
		return 0, false
	default:
		return 0, false
	}
}

// IngestAction describes what ingestion did with a notification.
type IngestAction string

// Ingest actions.
const (
	// IngestTransitioned means the request moved to a terminal status.
	IngestTransitioned IngestAction = "transitioned"
	// IngestRecorded means only a result row was appended.
	IngestRecorded IngestAction = "recorded"
	// IngestAlreadyTerminal means the request was already Sent or Failed.
	IngestAlreadyTerminal IngestAction = "already_terminal"
	// IngestOutOfOrder means a terminal outcome arrived while the request was Pending.
	IngestOutOfOrder IngestAction = "out_of_order"
)

// IngestOutcome reports the effect of ingesting one notification.
type IngestOutcome struct {
	RequestID      uuid.UUID
	Kind           OutcomeKind
	Action         IngestAction
	ResultStored   bool
	PreviousStatus Status
	Status         Status
}
