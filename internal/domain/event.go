package domain

import (
	"encoding/json"
	"time"
)

// EventKind is the enumerated tag of a classified gateway notification.
type EventKind string

const (
	KindIntentSucceeded   EventKind = "intent_succeeded"
	KindIntentFailed      EventKind = "intent_failed"
	KindIntentCanceled    EventKind = "intent_canceled"
	KindCheckoutCompleted EventKind = "checkout_completed"

	// KindUnhandled marks event types the engine does not act on. They still
	// classify successfully so the gateway gets an acknowledgment and stops
	// retrying.
	KindUnhandled EventKind = "unhandled"
)

// TargetStatus returns the terminal transaction status this event kind drives
// a transaction toward, or empty when it drives none.
func (k EventKind) TargetStatus() TransactionStatus {
	switch k {
	case KindIntentSucceeded, KindCheckoutCompleted:
		return StatusCompleted
	case KindIntentFailed:
		return StatusFailed
	case KindIntentCanceled:
		return StatusCanceled
	default:
		return ""
	}
}

// GatewayEvent is a verified, classified gateway notification. It is ephemeral:
// never persisted verbatim except as the raw payload snapshot on the transaction
// it affects, or as an unmatched-event journal row.
type GatewayEvent struct {
	ID   string
	Kind EventKind

	// ObjectID is the external entity the event concerns (payment intent id for
	// intent events, session id for checkout events).
	ObjectID string

	// PaymentIntentID resolves the local transaction. For intent events this is
	// ObjectID; for checkout events it is the session's payment_intent reference.
	PaymentIntentID string

	// OrderID is carried in the gateway object's metadata, when present.
	OrderID string

	// FailureMessage is the provider's failure description on intent_failed events.
	FailureMessage string

	OccurredAt time.Time
	Raw        json.RawMessage
}
