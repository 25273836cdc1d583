package postgres

import (
	"encoding/json"
	"time"
)

// TransactionModel mirrors the payment_transactions table. The amount column is
// a major-unit NUMERIC rendered as a string; the domain works in minor units.
type TransactionModel struct {
	ID                 string
	OrderID            string
	PaymentIntentID    string
	Amount             string
	Currency           string
	Status             string
	Gateway            string
	FailureReason      *string
	RawGatewayPayload  []byte
	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaymentConfirmedAt *time.Time
}

// UnmatchedEventModel mirrors the unmatched_events journal: verified events
// that could not be applied, kept for out-of-band reconciliation.
type UnmatchedEventModel struct {
	ID              string
	EventID         string
	EventKind       string
	PaymentIntentID string
	OrderID         string
	Payload         json.RawMessage
	Reason          string
	ReceivedAt      time.Time
}
