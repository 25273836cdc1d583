// Package domain defines the domain models for the payment mediation service.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionStatus represents the current state of a payment attempt in its lifecycle
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCanceled  TransactionStatus = "canceled"
)

// OrderPaymentStatus is the payment-state vocabulary of the order record. It is a
// distinct enumeration from TransactionStatus: orders become "paid", transactions
// become "completed".
type OrderPaymentStatus string

const (
	OrderPaymentPending  OrderPaymentStatus = "pending"
	OrderPaymentPaid     OrderPaymentStatus = "paid"
	OrderPaymentFailed   OrderPaymentStatus = "failed"
	OrderPaymentCanceled OrderPaymentStatus = "canceled"
)

// GatewayStripe tags transactions issued by the Stripe gateway.
const GatewayStripe = "stripe"

// Transaction represents one payment attempt against an order. It is created in
// pending state when the payment intent is provisioned and mutated only by the
// reconciliation engine in response to verified gateway events.
type Transaction struct {
	ID              uuid.UUID
	OrderID         string
	PaymentIntentID string
	AmountCents     int64
	Currency        string

	Status        TransactionStatus
	Gateway       string
	FailureReason *string

	// RawGatewayPayload is an opaque snapshot of the last event applied.
	RawGatewayPayload json.RawMessage

	CreatedAt          time.Time
	UpdatedAt          time.Time
	PaymentConfirmedAt *time.Time
}

// NewPendingTransaction builds the pending record persisted at intent-creation time.
func NewPendingTransaction(orderID, paymentIntentID string, amountCents int64, currency string) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, NewInvalidAmountError(amountCents)
	}
	if orderID == "" {
		return nil, NewMissingFieldError("order_id")
	}
	if paymentIntentID == "" {
		return nil, NewMissingFieldError("payment_intent_id")
	}
	now := time.Now().UTC()
	return &Transaction{
		ID:              uuid.New(),
		OrderID:         orderID,
		PaymentIntentID: paymentIntentID,
		AmountCents:     amountCents,
		Currency:        NormalizeCurrency(currency),
		Status:          StatusPending,
		Gateway:         GatewayStripe,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsTerminal reports whether no further transition may be applied.
// Once terminal, the first-applied status wins.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// NormalizeCurrency uppercases an ISO currency code, defaulting to USD.
func NormalizeCurrency(currency string) string {
	if currency == "" {
		return "USD"
	}
	return strings.ToUpper(currency)
}

// PaymentSession is the provisioned credential bundle handed back to the client so it
// can collect payment directly against the gateway.
type PaymentSession struct {
	PaymentIntentID    string
	ClientSecret       string
	CustomerID         string
	EphemeralKeySecret string
	PublishableKey     string
}
