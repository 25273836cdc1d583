package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

var ErrTransactionNotFound = errors.New("transaction not found")

const transactionColumns = `
	id, order_id, payment_intent_id, amount::text, currency, status, gateway,
	failure_reason, raw_gateway_payload, created_at, updated_at, payment_confirmed_at`

type TransactionRepository struct {
	exec Executor
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{exec: db.Pool}
}

var _ application.TransactionRepository = (*TransactionRepository)(nil)

func (r *TransactionRepository) Insert(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO payment_transactions (
			id, order_id, payment_intent_id, amount, currency, status, gateway,
			failure_reason, raw_gateway_payload, created_at, updated_at, payment_confirmed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	m := toDBModel(t)
	_, err := r.exec.Exec(ctx, query,
		m.ID,
		m.OrderID,
		m.PaymentIntentID,
		m.Amount,
		m.Currency,
		m.Status,
		m.Gateway,
		m.FailureReason,
		m.RawGatewayPayload,
		m.CreatedAt,
		m.UpdatedAt,
		m.PaymentConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// FindByPaymentIntentID retrieves the transaction tied to an external intent.
func (r *TransactionRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		FROM payment_transactions WHERE payment_intent_id = $1`

	row := r.exec.QueryRow(ctx, query, paymentIntentID)
	return scanTransaction(row)
}

// UpdateIfPending applies the patch with a conditional predicate so a terminal
// status can only be written once: concurrent deliveries race on the predicate,
// not on the final state.
func (r *TransactionRepository) UpdateIfPending(ctx context.Context, paymentIntentID string, patch application.TransactionPatch) (int64, error) {
	query := `
		UPDATE payment_transactions
		SET status = $2,
		    failure_reason = COALESCE($3, failure_reason),
		    raw_gateway_payload = COALESCE($4, raw_gateway_payload),
		    payment_confirmed_at = COALESCE($5, payment_confirmed_at),
		    updated_at = $6
		WHERE payment_intent_id = $1
		  AND status = 'pending'
	`

	tag, err := r.exec.Exec(ctx, query,
		paymentIntentID,
		string(patch.Status),
		patch.FailureReason,
		[]byte(patch.RawGatewayPayload),
		patch.PaymentConfirmedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update transaction %s: %w", paymentIntentID, err)
	}

	return tag.RowsAffected(), nil
}

// UpdateIfPendingForOrder matches on both identifiers, the lookup checkout
// events require.
func (r *TransactionRepository) UpdateIfPendingForOrder(ctx context.Context, paymentIntentID, orderID string, patch application.TransactionPatch) (int64, error) {
	query := `
		UPDATE payment_transactions
		SET status = $3,
		    raw_gateway_payload = COALESCE($4, raw_gateway_payload),
		    payment_confirmed_at = COALESCE($5, payment_confirmed_at),
		    updated_at = $6
		WHERE payment_intent_id = $1
		  AND order_id = $2
		  AND status = 'pending'
	`

	tag, err := r.exec.Exec(ctx, query,
		paymentIntentID,
		orderID,
		string(patch.Status),
		[]byte(patch.RawGatewayPayload),
		patch.PaymentConfirmedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update transaction %s for order %s: %w", paymentIntentID, orderID, err)
	}

	return tag.RowsAffected(), nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var m TransactionModel
	err := row.Scan(
		&m.ID,
		&m.OrderID,
		&m.PaymentIntentID,
		&m.Amount,
		&m.Currency,
		&m.Status,
		&m.Gateway,
		&m.FailureReason,
		&m.RawGatewayPayload,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.PaymentConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	return toDomainModel(m)
}
