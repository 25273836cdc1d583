package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/application/services"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
)

func newSessionFixture(t *testing.T) (*services.SessionService, *services.MockGatewayClient, *services.MockTransactionRepository) {
	t.Helper()
	gateway := &services.MockGatewayClient{}
	txRepo := services.NewMockTransactionRepository()
	svc := services.NewSessionService(gateway, txRepo, "pk_test_123", discardLogger())
	return svc, gateway, txRepo
}

func Test_CreatePaymentSession_Success(t *testing.T) {
	ctx := context.Background()
	svc, gateway, txRepo := newSessionFixture(t)

	session, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{
		AmountCents: 5000,
		Currency:    "usd",
		OrderID:     "order-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_mock", session.PaymentIntentID)
	assert.Equal(t, "pi_mock_secret", session.ClientSecret)
	assert.Equal(t, "cus_mock", session.CustomerID)
	assert.Equal(t, "ek_mock_secret", session.EphemeralKeySecret)
	assert.Equal(t, "pk_test_123", session.PublishableKey)

	assert.Equal(t, 1, gateway.CustomerCalls)
	assert.Equal(t, 1, gateway.IntentCalls)
	assert.Equal(t, 1, gateway.EphemeralKeyCalls)

	tx := txRepo.Get("pi_mock")
	require.NotNil(t, tx)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, "order-42", tx.OrderID)
	assert.Equal(t, int64(5000), tx.AmountCents)
	assert.Equal(t, domain.GatewayStripe, tx.Gateway)
}

// Validation rejects before any gateway traffic.
func Test_CreatePaymentSession_InvalidAmount_NoGatewayCalls(t *testing.T) {
	ctx := context.Background()
	svc, gateway, txRepo := newSessionFixture(t)

	for _, amount := range []int64{0, -100} {
		_, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{
			AmountCents: amount,
			OrderID:     "order-42",
		})
		require.Error(t, err)
		assert.True(t, application.IsErrorCode(err, application.ErrCodeValidation))
	}

	assert.Zero(t, gateway.CustomerCalls)
	assert.Zero(t, gateway.IntentCalls)
	assert.Zero(t, txRepo.InsertCalls)
}

func Test_CreatePaymentSession_MissingOrderID_Rejected(t *testing.T) {
	ctx := context.Background()
	svc, gateway, _ := newSessionFixture(t)

	_, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{AmountCents: 5000})
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodeValidation))
	assert.Zero(t, gateway.CustomerCalls)
}

func Test_CreatePaymentSession_CustomerFailure_NothingPersisted(t *testing.T) {
	ctx := context.Background()
	svc, gateway, txRepo := newSessionFixture(t)
	gateway.CreateCustomerFn = func(ctx context.Context) (*application.Customer, error) {
		return nil, errors.New("stripe unavailable")
	}

	_, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{
		AmountCents: 5000,
		OrderID:     "order-42",
	})
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodeGateway))

	assert.Zero(t, gateway.IntentCalls, "sequence stops at the failing step")
	assert.Zero(t, txRepo.InsertCalls)
}

func Test_CreatePaymentSession_IntentFailure_NothingPersisted(t *testing.T) {
	ctx := context.Background()
	svc, gateway, txRepo := newSessionFixture(t)
	gateway.CreatePaymentIntentFn = func(ctx context.Context, amountCents int64, currency, orderID string) (*application.PaymentIntent, error) {
		return nil, errors.New("stripe unavailable")
	}

	_, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{
		AmountCents: 5000,
		OrderID:     "order-42",
	})
	require.Error(t, err)
	assert.True(t, application.IsErrorCode(err, application.ErrCodeGateway))
	assert.Zero(t, gateway.EphemeralKeyCalls)
	assert.Zero(t, txRepo.InsertCalls)
}

// The pending insert is bookkeeping, not a gate: the session is returned even
// when it fails, and the webhook path will surface the gap.
func Test_CreatePaymentSession_InsertFailure_SessionStillReturned(t *testing.T) {
	ctx := context.Background()
	svc, _, txRepo := newSessionFixture(t)
	txRepo.InsertFn = func(ctx context.Context, tx *domain.Transaction) error {
		return errors.New("connection refused")
	}

	session, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{
		AmountCents: 5000,
		OrderID:     "order-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_mock", session.PaymentIntentID)
}

func Test_CreatePaymentSession_DefaultsCurrency(t *testing.T) {
	ctx := context.Background()
	svc, gateway, _ := newSessionFixture(t)

	var gotCurrency string
	gateway.CreatePaymentIntentFn = func(ctx context.Context, amountCents int64, currency, orderID string) (*application.PaymentIntent, error) {
		gotCurrency = currency
		return &application.PaymentIntent{ID: "pi_mock", ClientSecret: "pi_mock_secret", Amount: amountCents, Currency: currency}, nil
	}

	_, err := svc.CreatePaymentSession(ctx, services.CreateSessionCommand{
		AmountCents: 5000,
		OrderID:     "order-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "usd", gotCurrency)
}
