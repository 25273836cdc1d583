package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
	"github.com/mhmdzlt/auto-shop2/internal/infrastructure/persistence/postgres"
	"github.com/mhmdzlt/auto-shop2/internal/metrics"
)

// ReconcileService applies verified, classified gateway events to transaction
// and order records. All consistency comes from idempotent conditional writes:
// no locks are held across calls, and concurrent deliveries of the same event
// converge on the first terminal state written.
type ReconcileService struct {
	txRepo    application.TransactionRepository
	orderRepo application.OrderRepository
	journal   application.EventJournal
	logger    *slog.Logger
}

func NewReconcileService(
	txRepo application.TransactionRepository,
	orderRepo application.OrderRepository,
	journal application.EventJournal,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		txRepo:    txRepo,
		orderRepo: orderRepo,
		journal:   journal,
		logger:    logger,
	}
}

// Apply computes and applies the state transition for one event.
//
// Returned errors are typed: a ResolutionError or PersistenceError means the
// event was verified but could not be (fully) applied — callers acknowledge
// the delivery anyway, because the event is journaled and retrying would not
// make it applicable.
func (s *ReconcileService) Apply(ctx context.Context, event domain.GatewayEvent) error {
	switch event.Kind {
	case domain.KindIntentSucceeded, domain.KindIntentFailed, domain.KindIntentCanceled:
		err := s.applyIntentEvent(ctx, event)
		s.observe(event, err)
		return err
	case domain.KindCheckoutCompleted:
		err := s.applyCheckoutCompleted(ctx, event)
		s.observe(event, err)
		return err
	case domain.KindUnhandled:
		// Acknowledged so the gateway stops retrying; no state change.
		s.logger.Debug("ignoring unhandled event type", "event_id", event.ID)
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Kind), "ignored").Inc()
		return nil
	default:
		return application.NewInternalError(fmt.Errorf("unknown event kind %q", event.Kind))
	}
}

// applyIntentEvent drives the transaction row (the primary target of
// payment_intent.* events) to the terminal status the event names, then
// best-effort patches the order.
func (s *ReconcileService) applyIntentEvent(ctx context.Context, event domain.GatewayEvent) error {
	target := event.Kind.TargetStatus()

	tx, err := s.txRepo.FindByPaymentIntentID(ctx, event.PaymentIntentID)
	if err != nil {
		if errors.Is(err, postgres.ErrTransactionNotFound) {
			return s.recordUnmatched(ctx, event, "no matching transaction")
		}
		return application.NewPersistenceError(err)
	}

	if tx.IsTerminal() {
		s.noteTerminal(event, tx.Status, target)
		// A redelivery may be completing a half-applied earlier delivery: the
		// transaction write landed but the order write did not. Re-apply the
		// idempotent order update so the retry can finish the missing half.
		if tx.Status == target && event.Kind == domain.KindIntentSucceeded {
			s.completeOrder(ctx, event, tx.OrderID)
		}
		return nil
	}

	patch := application.TransactionPatch{
		Status:            target,
		RawGatewayPayload: event.Raw,
	}
	switch event.Kind {
	case domain.KindIntentSucceeded:
		now := time.Now().UTC()
		patch.PaymentConfirmedAt = &now
	case domain.KindIntentFailed:
		reason := event.FailureMessage
		patch.FailureReason = &reason
	}

	rows, err := s.txRepo.UpdateIfPending(ctx, event.PaymentIntentID, patch)
	if err != nil {
		// The event is verified and applicable; journal it so the missing
		// write can be reconciled out of band, then acknowledge.
		if jErr := s.journal.RecordUnmatched(ctx, event, "transaction update failed"); jErr != nil {
			s.logger.Error("failed to journal event after update failure", "event_id", event.ID, "error", jErr)
		}
		return application.NewPersistenceError(err)
	}

	if rows == 0 {
		// A concurrent delivery won the conditional write. Re-read to tell a
		// duplicate from a conflict; either way the earlier writer stands.
		if current, readErr := s.txRepo.FindByPaymentIntentID(ctx, event.PaymentIntentID); readErr == nil {
			s.noteTerminal(event, current.Status, target)
			if current.Status == target && event.Kind == domain.KindIntentSucceeded {
				s.completeOrder(ctx, event, current.OrderID)
			}
		} else {
			s.logger.Warn("conditional update matched no rows", "payment_intent_id", event.PaymentIntentID, "error", readErr)
		}
		return nil
	}

	s.logger.Info("transaction reconciled",
		"event_id", event.ID,
		"payment_intent_id", event.PaymentIntentID,
		"status", string(target),
	)

	// Secondary target: the order update is decoupled so a datastore hiccup
	// here cannot undo the already-applied transaction write. A retried
	// delivery completes the missing half via the idempotent SET.
	if event.Kind == domain.KindIntentSucceeded {
		s.completeOrder(ctx, event, tx.OrderID)
	}

	return nil
}

// completeOrder marks the order paid after a successful intent. The write is an
// idempotent SET, so redeliveries re-apply it harmlessly; failure is logged and
// left for the next delivery to finish.
func (s *ReconcileService) completeOrder(ctx context.Context, event domain.GatewayEvent, orderID string) {
	if err := s.orderRepo.SetPaymentState(ctx, orderID, domain.OrderPaymentPaid, ""); err != nil {
		s.logger.Warn("order update failed after transaction completion",
			"order_id", orderID,
			"payment_intent_id", event.PaymentIntentID,
			"error", err,
		)
	}
}

// applyCheckoutCompleted treats the order row as the primary target, matching
// the checkout flow where the session carries the order reference.
func (s *ReconcileService) applyCheckoutCompleted(ctx context.Context, event domain.GatewayEvent) error {
	if event.OrderID == "" {
		return application.NewClassificationError(fmt.Errorf("checkout event %s missing order id in metadata", event.ID))
	}

	if err := s.orderRepo.SetPaymentState(ctx, event.OrderID, domain.OrderPaymentPaid, event.PaymentIntentID); err != nil {
		if jErr := s.journal.RecordUnmatched(ctx, event, "order update failed"); jErr != nil {
			s.logger.Error("failed to journal event after order update failure", "event_id", event.ID, "error", jErr)
		}
		return application.NewPersistenceError(err)
	}

	s.logger.Info("order reconciled from checkout session",
		"event_id", event.ID,
		"order_id", event.OrderID,
		"payment_intent_id", event.PaymentIntentID,
	)

	// Secondary: close out the pending transaction, matched on both
	// identifiers. Best-effort — the session may predate local bookkeeping.
	if event.PaymentIntentID == "" {
		return nil
	}

	now := time.Now().UTC()
	patch := application.TransactionPatch{
		Status:             domain.StatusCompleted,
		RawGatewayPayload:  event.Raw,
		PaymentConfirmedAt: &now,
	}

	rows, err := s.txRepo.UpdateIfPendingForOrder(ctx, event.PaymentIntentID, event.OrderID, patch)
	if err != nil {
		s.logger.Warn("transaction update failed after order completion",
			"order_id", event.OrderID,
			"payment_intent_id", event.PaymentIntentID,
			"error", err,
		)
		return nil
	}

	if rows == 0 {
		if _, findErr := s.txRepo.FindByPaymentIntentID(ctx, event.PaymentIntentID); errors.Is(findErr, postgres.ErrTransactionNotFound) {
			// The pending insert never landed; leave a reconciliation-needed
			// record instead of losing the event.
			if jErr := s.journal.RecordUnmatched(ctx, event, "no matching transaction"); jErr != nil {
				s.logger.Error("failed to journal checkout event", "event_id", event.ID, "error", jErr)
			}
			metrics.UnmatchedEventsTotal.Inc()
			s.logger.Warn("checkout session references unknown transaction",
				"order_id", event.OrderID,
				"payment_intent_id", event.PaymentIntentID,
			)
		}
	}

	return nil
}

// recordUnmatched journals an event that resolved to no local record and
// returns the ResolutionError callers acknowledge. Never silently dropped:
// the journal row plus a WARN log are the integrity trail.
func (s *ReconcileService) recordUnmatched(ctx context.Context, event domain.GatewayEvent, reason string) error {
	if err := s.journal.RecordUnmatched(ctx, event, reason); err != nil {
		s.logger.Error("failed to journal unmatched event", "event_id", event.ID, "error", err)
	}

	metrics.UnmatchedEventsTotal.Inc()
	s.logger.Warn("event matched no local record",
		"event_id", event.ID,
		"kind", string(event.Kind),
		"payment_intent_id", event.PaymentIntentID,
		"reason", reason,
	)

	return application.NewResolutionError(domain.NewTransactionNotFoundError(event.PaymentIntentID))
}

// noteTerminal records the outcome of an event arriving after the transaction
// already reached a terminal state.
func (s *ReconcileService) noteTerminal(event domain.GatewayEvent, current, target domain.TransactionStatus) {
	if current == target {
		metrics.DuplicateEventsTotal.Inc()
		s.logger.Debug("duplicate terminal event, no-op",
			"event_id", event.ID,
			"payment_intent_id", event.PaymentIntentID,
			"status", string(current),
		)
		return
	}

	conflict := domain.NewTerminalConflictError(current, target)
	metrics.TerminalConflictsTotal.Inc()
	s.logger.Warn("conflicting terminal event ignored, first write wins",
		"event_id", event.ID,
		"payment_intent_id", event.PaymentIntentID,
		"conflict", conflict.Error(),
	)
}

func (s *ReconcileService) observe(event domain.GatewayEvent, err error) {
	outcome := "applied"
	if err != nil {
		outcome = "error"
		if application.IsErrorCode(err, application.ErrCodeResolution) {
			outcome = "unmatched"
		}
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(event.Kind), outcome).Inc()
}
