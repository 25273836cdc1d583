package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

// toDomainModel: maps db model to domain entity
func toDomainModel(m TransactionModel) (*domain.Transaction, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id %q: %w", m.ID, err)
	}

	cents, err := majorToCents(m.Amount)
	if err != nil {
		return nil, err
	}

	return &domain.Transaction{
		ID:                 id,
		OrderID:            m.OrderID,
		PaymentIntentID:    m.PaymentIntentID,
		AmountCents:        cents,
		Currency:           m.Currency,
		Status:             domain.TransactionStatus(m.Status),
		Gateway:            m.Gateway,
		FailureReason:      m.FailureReason,
		RawGatewayPayload:  m.RawGatewayPayload,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		PaymentConfirmedAt: m.PaymentConfirmedAt,
	}, nil
}

// toDBModel: maps domain entity to db model
func toDBModel(t *domain.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:                 t.ID.String(),
		OrderID:            t.OrderID,
		PaymentIntentID:    t.PaymentIntentID,
		Amount:             centsToMajor(t.AmountCents),
		Currency:           t.Currency,
		Status:             string(t.Status),
		Gateway:            t.Gateway,
		FailureReason:      t.FailureReason,
		RawGatewayPayload:  t.RawGatewayPayload,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		PaymentConfirmedAt: t.PaymentConfirmedAt,
	}
}

// centsToMajor renders a minor-unit amount as the major-unit decimal string
// stored in the NUMERIC column, e.g. 5000 -> "50.00".
func centsToMajor(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func majorToCents(amount string) (int64, error) {
	whole, frac, _ := strings.Cut(amount, ".")

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	var f int64
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
	}

	if strings.HasPrefix(amount, "-") {
		return w*100 - f, nil
	}
	return w*100 + f, nil
}
