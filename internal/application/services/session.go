package services

import (
	"context"
	"log/slog"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
	"github.com/mhmdzlt/auto-shop2/internal/metrics"
)

// CreateSessionCommand carries the validated client input for provisioning a
// payment session.
type CreateSessionCommand struct {
	AmountCents int64
	Currency    string
	OrderID     string
}

// SessionService drives the three-call provisioning sequence against the
// gateway (customer, payment intent, ephemeral key) and records the pending
// transaction. Each step depends on the previous one succeeding; gateway
// resources created before a failing step are abandoned rather than rolled
// back, since they are cheap and inert without a confirmed payment.
type SessionService struct {
	gateway        application.GatewayClient
	txRepo         application.TransactionRepository
	publishableKey string
	logger         *slog.Logger
}

func NewSessionService(
	gateway application.GatewayClient,
	txRepo application.TransactionRepository,
	publishableKey string,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		gateway:        gateway,
		txRepo:         txRepo,
		publishableKey: publishableKey,
		logger:         logger,
	}
}

// CreatePaymentSession provisions everything a client needs to collect payment.
//
// Nothing is persisted until the full gateway sequence succeeds, so a request
// that never got a payment intent leaves no orphaned pending record. The final
// bookkeeping insert is best-effort: the session is still usable if it fails,
// and the reconciliation engine journals the eventually-arriving webhook as
// unmatched so the gap is visible.
func (s *SessionService) CreatePaymentSession(ctx context.Context, cmd CreateSessionCommand) (*domain.PaymentSession, error) {
	if cmd.AmountCents <= 0 {
		return nil, application.NewValidationError(domain.NewInvalidAmountError(cmd.AmountCents))
	}
	if cmd.OrderID == "" {
		return nil, application.NewValidationError(domain.NewMissingFieldError("order_id"))
	}

	currency := cmd.Currency
	if currency == "" {
		currency = "usd"
	}

	customer, err := s.gateway.CreateCustomer(ctx)
	if err != nil {
		return nil, application.NewGatewayError(err)
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, cmd.AmountCents, currency, cmd.OrderID)
	if err != nil {
		return nil, application.NewGatewayError(err)
	}

	ephemeralKey, err := s.gateway.CreateEphemeralKey(ctx, customer.ID)
	if err != nil {
		return nil, application.NewGatewayError(err)
	}

	tx, err := domain.NewPendingTransaction(cmd.OrderID, intent.ID, cmd.AmountCents, currency)
	if err != nil {
		s.logger.Error("failed to build pending transaction", "order_id", cmd.OrderID, "error", err)
	} else if err := s.txRepo.Insert(ctx, tx); err != nil {
		s.logger.Warn("failed to record pending transaction, session still usable",
			"order_id", cmd.OrderID,
			"payment_intent_id", intent.ID,
			"error", err,
		)
	}

	metrics.SessionsCreatedTotal.Inc()
	s.logger.Info("payment session created",
		"order_id", cmd.OrderID,
		"payment_intent_id", intent.ID,
		"customer_id", customer.ID,
	)

	return &domain.PaymentSession{
		PaymentIntentID:    intent.ID,
		ClientSecret:       intent.ClientSecret,
		CustomerID:         customer.ID,
		EphemeralKeySecret: ephemeralKey.Secret,
		PublishableKey:     s.publishableKey,
	}, nil
}
