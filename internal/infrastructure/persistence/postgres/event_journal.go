package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

// EventJournal persists verified events that could not be applied so they are
// never silently dropped. The unique constraint on event_id makes retried
// deliveries of the same orphan a no-op.
type EventJournal struct {
	exec Executor
}

func NewEventJournal(db *DB) *EventJournal {
	return &EventJournal{exec: db.Pool}
}

var _ application.EventJournal = (*EventJournal)(nil)

func (j *EventJournal) RecordUnmatched(ctx context.Context, event domain.GatewayEvent, reason string) error {
	query := `
		INSERT INTO unmatched_events (
			id, event_id, event_kind, payment_intent_id, order_id, payload, reason, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := j.exec.Exec(ctx, query,
		uuid.New().String(),
		event.ID,
		string(event.Kind),
		event.PaymentIntentID,
		event.OrderID,
		[]byte(event.Raw),
		reason,
		time.Now().UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to journal unmatched event %s: %w", event.ID, err)
	}

	return nil
}
