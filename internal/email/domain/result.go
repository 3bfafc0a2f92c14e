package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutcomeKind classifies a delivery result. Values match the provider event
// type names and are stored verbatim.
type OutcomeKind string

// Known outcome kinds.
const (
	OutcomeSend             OutcomeKind = "Send"
	OutcomeDelivery         OutcomeKind = "Delivery"
	OutcomeBounce           OutcomeKind = "Bounce"
	OutcomeComplaint        OutcomeKind = "Complaint"
	OutcomeReject           OutcomeKind = "Reject"
	OutcomeRenderingFailure OutcomeKind = "Rendering Failure"
	OutcomeDeliveryDelay    OutcomeKind = "DeliveryDelay"
	OutcomeOpen             OutcomeKind = "Open"
	OutcomeClick            OutcomeKind = "Click"
	OutcomeSubscription     OutcomeKind = "Subscription"
)

// Bounce types reported with Bounce outcomes.
const (
	BounceTypePermanent    = "Permanent"
	BounceTypeTransient    = "Transient"
	BounceTypeUndetermined = "Undetermined"
)

// Result is an appended delivery outcome for a request.
type Result struct {
	ID        int64
	RequestID uuid.UUID
	Kind      OutcomeKind
	Raw       json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
