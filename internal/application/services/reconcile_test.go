package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/application/services"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingTransaction(t *testing.T) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewPendingTransaction("order-42", "pi_123", 5000, "usd")
	require.NoError(t, err)
	return tx
}

func intentEvent(kind domain.EventKind) domain.GatewayEvent {
	event := domain.GatewayEvent{
		ID:              "evt_1",
		Kind:            kind,
		ObjectID:        "pi_123",
		PaymentIntentID: "pi_123",
		OccurredAt:      time.Now(),
		Raw:             []byte(`{"id":"evt_1"}`),
	}
	if kind == domain.KindIntentFailed {
		event.FailureMessage = "Your card was declined."
	}
	return event
}

func newReconcileFixture(t *testing.T) (*services.ReconcileService, *services.MockTransactionRepository, *services.MockOrderRepository, *services.MockEventJournal) {
	t.Helper()
	txRepo := services.NewMockTransactionRepository()
	orderRepo := services.NewMockOrderRepository()
	journal := &services.MockEventJournal{}
	svc := services.NewReconcileService(txRepo, orderRepo, journal, discardLogger())
	return svc, txRepo, orderRepo, journal
}

func Test_Apply_IntentSucceeded_CompletesTransactionAndOrder(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.NoError(t, err)

	tx := txRepo.Get("pi_123")
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.NotNil(t, tx.PaymentConfirmedAt)
	assert.NotEmpty(t, tx.RawGatewayPayload)

	assert.Equal(t, domain.OrderPaymentPaid, orderRepo.States["order-42"])
}

func Test_Apply_IntentFailed_RecordsFailureReason(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	err := svc.Apply(ctx, intentEvent(domain.KindIntentFailed))
	require.NoError(t, err)

	tx := txRepo.Get("pi_123")
	assert.Equal(t, domain.StatusFailed, tx.Status)
	require.NotNil(t, tx.FailureReason)
	assert.Equal(t, "Your card was declined.", *tx.FailureReason)
	assert.Nil(t, tx.PaymentConfirmedAt)

	// Failure does not drive the order record.
	assert.Zero(t, orderRepo.Calls)
}

func Test_Apply_IntentCanceled_CancelsTransaction(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, _, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	err := svc.Apply(ctx, intentEvent(domain.KindIntentCanceled))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, txRepo.Get("pi_123").Status)
}

// Redelivery of the same terminal event acknowledges without re-doing the
// transaction write; the idempotent order SET is re-applied harmlessly.
func Test_Apply_DuplicateTerminalEvent_NoOp(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	require.NoError(t, svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded)))

	confirmedAt := txRepo.Get("pi_123").PaymentConfirmedAt

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, txRepo.Get("pi_123").Status)
	assert.Equal(t, confirmedAt, txRepo.Get("pi_123").PaymentConfirmedAt)
	assert.Equal(t, 1, txRepo.UpdateCalls, "duplicate must not re-run the transaction write")
	assert.Equal(t, domain.OrderPaymentPaid, orderRepo.States["order-42"])
}

// A half-applied delivery (transaction write landed, order write failed) must
// be completable by a retried identical delivery.
func Test_Apply_RetriedDelivery_CompletesMissingOrderHalf(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	orderRepo.SetPaymentStateFn = func(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error {
		return errors.New("orders table unavailable")
	}

	require.NoError(t, svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded)))
	assert.Equal(t, domain.StatusCompleted, txRepo.Get("pi_123").Status)
	assert.Empty(t, orderRepo.States["order-42"])

	orderRepo.SetPaymentStateFn = nil
	confirmedAt := txRepo.Get("pi_123").PaymentConfirmedAt

	require.NoError(t, svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded)))

	assert.Equal(t, domain.OrderPaymentPaid, orderRepo.States["order-42"],
		"retried delivery must complete the missing order half")
	assert.Equal(t, confirmedAt, txRepo.Get("pi_123").PaymentConfirmedAt,
		"already-applied transaction half must not be re-done")
}

// Conflicting terminal events after a terminal state: first write wins.
func Test_Apply_ConflictingTerminalEvent_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, _, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	require.NoError(t, svc.Apply(ctx, intentEvent(domain.KindIntentFailed)))

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.NoError(t, err)

	tx := txRepo.Get("pi_123")
	assert.Equal(t, domain.StatusFailed, tx.Status)
	assert.Nil(t, tx.PaymentConfirmedAt)
}

// A concurrent delivery that wins the conditional write leaves zero rows for
// the loser; the loser re-reads and stands down.
func Test_Apply_LostConditionalWrite_ResolvesAsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, _, _ := newReconcileFixture(t)

	tx := pendingTransaction(t)
	txRepo.Put(tx)

	raced := false
	txRepo.UpdateIfPendingFn = func(ctx context.Context, paymentIntentID string, patch application.TransactionPatch) (int64, error) {
		if !raced {
			// Simulate the concurrent writer landing between read and write.
			raced = true
			tx.Status = domain.StatusCompleted
			return 0, nil
		}
		return 0, nil
	}

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, txRepo.Get("pi_123").Status)
}

func Test_Apply_UnknownIntent_JournaledAndAcknowledged(t *testing.T) {
	ctx := context.Background()
	svc, _, _, journal := newReconcileFixture(t)

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodeResolution))
	assert.Contains(t, journal.Recorded, "evt_1")
}

func Test_Apply_TransactionUpdateFailure_JournaledAsPersistenceError(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, _, journal := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))
	txRepo.UpdateIfPendingFn = func(ctx context.Context, paymentIntentID string, patch application.TransactionPatch) (int64, error) {
		return 0, errors.New("connection reset")
	}

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodePersistence))
	assert.Contains(t, journal.Recorded, "evt_1")
}

// The order write is decoupled: its failure never rolls back the transaction.
func Test_Apply_OrderUpdateFailure_NonFatal(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))
	orderRepo.SetPaymentStateFn = func(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error {
		return errors.New("orders table unavailable")
	}

	err := svc.Apply(ctx, intentEvent(domain.KindIntentSucceeded))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, txRepo.Get("pi_123").Status)
}

func Test_Apply_Unhandled_NoStateChange(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, journal := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	err := svc.Apply(ctx, domain.GatewayEvent{ID: "evt_x", Kind: domain.KindUnhandled})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, txRepo.Get("pi_123").Status)
	assert.Zero(t, orderRepo.Calls)
	assert.Empty(t, journal.Recorded)
}

func Test_Apply_CheckoutCompleted_UpdatesOrderAndTransaction(t *testing.T) {
	ctx := context.Background()
	svc, txRepo, orderRepo, _ := newReconcileFixture(t)
	txRepo.Put(pendingTransaction(t))

	event := domain.GatewayEvent{
		ID:              "evt_9",
		Kind:            domain.KindCheckoutCompleted,
		ObjectID:        "cs_test_1",
		PaymentIntentID: "pi_123",
		OrderID:         "order-42",
		Raw:             []byte(`{"id":"evt_9"}`),
	}

	err := svc.Apply(ctx, event)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPaymentPaid, orderRepo.States["order-42"])
	assert.Equal(t, "pi_123", orderRepo.TransactionIDs["order-42"])

	tx := txRepo.Get("pi_123")
	assert.Equal(t, domain.StatusCompleted, tx.Status)
	assert.NotNil(t, tx.PaymentConfirmedAt)
}

func Test_Apply_CheckoutCompleted_MissingOrderID_Rejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newReconcileFixture(t)

	event := domain.GatewayEvent{
		ID:              "evt_10",
		Kind:            domain.KindCheckoutCompleted,
		PaymentIntentID: "pi_123",
	}

	err := svc.Apply(ctx, event)
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodeClassification))
}

func Test_Apply_CheckoutCompleted_OrderUpdateFailure_Journaled(t *testing.T) {
	ctx := context.Background()
	svc, _, orderRepo, journal := newReconcileFixture(t)
	orderRepo.SetPaymentStateFn = func(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error {
		return errors.New("order order-42 not found")
	}

	event := domain.GatewayEvent{
		ID:              "evt_11",
		Kind:            domain.KindCheckoutCompleted,
		PaymentIntentID: "pi_123",
		OrderID:         "order-42",
	}

	err := svc.Apply(ctx, event)
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodePersistence))
	assert.Contains(t, journal.Recorded, "evt_11")
}

// The checkout's transaction leg is best-effort: a session minted outside
// local bookkeeping journals the gap but still succeeds.
func Test_Apply_CheckoutCompleted_UnknownTransaction_JournalsGap(t *testing.T) {
	ctx := context.Background()
	svc, _, orderRepo, journal := newReconcileFixture(t)

	event := domain.GatewayEvent{
		ID:              "evt_12",
		Kind:            domain.KindCheckoutCompleted,
		PaymentIntentID: "pi_unknown",
		OrderID:         "order-42",
	}

	err := svc.Apply(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaymentPaid, orderRepo.States["order-42"])
	assert.Contains(t, journal.Recorded, "evt_12")
}
