package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

// OrderRepository touches only the payment-related columns of the orders table;
// the order subsystem owns everything else.
type OrderRepository struct {
	exec Executor
}

func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{exec: db.Pool}
}

var _ application.OrderRepository = (*OrderRepository)(nil)

// SetPaymentState is a plain SET and therefore idempotent: a retried delivery
// that re-applies the same state is harmless.
func (r *OrderRepository) SetPaymentState(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error {
	query := `
		UPDATE orders
		SET payment_status = $2,
		    transaction_id = COALESCE(NULLIF($3, ''), transaction_id),
		    updated_at = $4
		WHERE id = $1
	`

	tag, err := r.exec.Exec(ctx, query, orderID, string(status), transactionID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", orderID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}

	return nil
}
