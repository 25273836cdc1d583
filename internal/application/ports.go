package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

// Customer is the gateway's representation of a billing customer.
type Customer struct {
	ID string
}

// PaymentIntent is the gateway's representation of a single attempted charge.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// EphemeralKey is a short-lived secret scoped to one customer, handed to the
// client so it can talk to the gateway without the long-lived secret key.
type EphemeralKey struct {
	ID     string
	Secret string
}

// GatewayClient is the port for the external payment gateway.
type GatewayClient interface {
	CreateCustomer(ctx context.Context) (*Customer, error)
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency, orderID string) (*PaymentIntent, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (*EphemeralKey, error)
}

// TransactionPatch carries the fields a reconciliation transition writes. Nil
// pointers are left untouched.
type TransactionPatch struct {
	Status             domain.TransactionStatus
	FailureReason      *string
	RawGatewayPayload  json.RawMessage
	PaymentConfirmedAt *time.Time
}

// TransactionRepository is the port for transaction persistence.
type TransactionRepository interface {
	Insert(ctx context.Context, tx *domain.Transaction) error
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Transaction, error)

	// UpdateIfPending applies the patch only while the row is still pending,
	// so concurrent terminal writes cannot race into a mixed state. It returns
	// the number of rows updated: zero means another delivery won.
	UpdateIfPending(ctx context.Context, paymentIntentID string, patch TransactionPatch) (int64, error)

	// UpdateIfPendingForOrder is the checkout variant, matching on both the
	// payment intent and the order it belongs to.
	UpdateIfPendingForOrder(ctx context.Context, paymentIntentID, orderID string, patch TransactionPatch) (int64, error)
}

// OrderRepository is the port into the order subsystem's store. Only the
// payment-related fields are ever touched from here.
type OrderRepository interface {
	// SetPaymentState patches payment_status, transaction_id (when non-empty)
	// and updated_at. The write is a plain idempotent SET.
	SetPaymentState(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error
}

// EventJournal records verified events that could not be applied, so an
// out-of-band sweep can reconcile them later instead of losing them.
type EventJournal interface {
	RecordUnmatched(ctx context.Context, event domain.GatewayEvent, reason string) error
}
