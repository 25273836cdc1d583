package services

import (
	"context"
	"sync"

	"github.com/mhmdzlt/auto-shop2/internal/application"
	"github.com/mhmdzlt/auto-shop2/internal/domain"
	"github.com/mhmdzlt/auto-shop2/internal/infrastructure/persistence/postgres"
)

// MockGatewayClient
type MockGatewayClient struct {
	mu sync.Mutex

	CreateCustomerFn      func(ctx context.Context) (*application.Customer, error)
	CreatePaymentIntentFn func(ctx context.Context, amountCents int64, currency, orderID string) (*application.PaymentIntent, error)
	CreateEphemeralKeyFn  func(ctx context.Context, customerID string) (*application.EphemeralKey, error)

	CustomerCalls     int
	IntentCalls       int
	EphemeralKeyCalls int
}

func (m *MockGatewayClient) CreateCustomer(ctx context.Context) (*application.Customer, error) {
	m.mu.Lock()
	m.CustomerCalls++
	m.mu.Unlock()
	if m.CreateCustomerFn != nil {
		return m.CreateCustomerFn(ctx)
	}
	return &application.Customer{ID: "cus_mock"}, nil
}

func (m *MockGatewayClient) CreatePaymentIntent(ctx context.Context, amountCents int64, currency, orderID string) (*application.PaymentIntent, error) {
	m.mu.Lock()
	m.IntentCalls++
	m.mu.Unlock()
	if m.CreatePaymentIntentFn != nil {
		return m.CreatePaymentIntentFn(ctx, amountCents, currency, orderID)
	}
	return &application.PaymentIntent{
		ID:           "pi_mock",
		ClientSecret: "pi_mock_secret",
		Amount:       amountCents,
		Currency:     currency,
	}, nil
}

func (m *MockGatewayClient) CreateEphemeralKey(ctx context.Context, customerID string) (*application.EphemeralKey, error) {
	m.mu.Lock()
	m.EphemeralKeyCalls++
	m.mu.Unlock()
	if m.CreateEphemeralKeyFn != nil {
		return m.CreateEphemeralKeyFn(ctx, customerID)
	}
	return &application.EphemeralKey{ID: "ek_mock", Secret: "ek_mock_secret"}, nil
}

// MockTransactionRepository keeps transactions in memory keyed by payment
// intent id and honors the conditional-update contract of the real repository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	InsertFn                  func(ctx context.Context, tx *domain.Transaction) error
	FindByPaymentIntentIDFn   func(ctx context.Context, paymentIntentID string) (*domain.Transaction, error)
	UpdateIfPendingFn         func(ctx context.Context, paymentIntentID string, patch application.TransactionPatch) (int64, error)
	UpdateIfPendingForOrderFn func(ctx context.Context, paymentIntentID, orderID string, patch application.TransactionPatch) (int64, error)

	InsertCalls int
	UpdateCalls int
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
	}
}

func (m *MockTransactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertFn != nil {
		return m.InsertFn(ctx, tx)
	}
	m.transactions[tx.PaymentIntentID] = tx
	return nil
}

func (m *MockTransactionRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FindByPaymentIntentIDFn != nil {
		return m.FindByPaymentIntentIDFn(ctx, paymentIntentID)
	}
	if tx, ok := m.transactions[paymentIntentID]; ok {
		copied := *tx
		return &copied, nil
	}
	return nil, postgres.ErrTransactionNotFound
}

func (m *MockTransactionRepository) UpdateIfPending(ctx context.Context, paymentIntentID string, patch application.TransactionPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateIfPendingFn != nil {
		return m.UpdateIfPendingFn(ctx, paymentIntentID, patch)
	}
	return m.applyPatch(paymentIntentID, "", patch), nil
}

func (m *MockTransactionRepository) UpdateIfPendingForOrder(ctx context.Context, paymentIntentID, orderID string, patch application.TransactionPatch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateIfPendingForOrderFn != nil {
		return m.UpdateIfPendingForOrderFn(ctx, paymentIntentID, orderID, patch)
	}
	return m.applyPatch(paymentIntentID, orderID, patch), nil
}

func (m *MockTransactionRepository) applyPatch(paymentIntentID, orderID string, patch application.TransactionPatch) int64 {
	tx, ok := m.transactions[paymentIntentID]
	if !ok || tx.Status != domain.StatusPending {
		return 0
	}
	if orderID != "" && tx.OrderID != orderID {
		return 0
	}

	tx.Status = patch.Status
	if patch.FailureReason != nil {
		tx.FailureReason = patch.FailureReason
	}
	if patch.RawGatewayPayload != nil {
		tx.RawGatewayPayload = patch.RawGatewayPayload
	}
	if patch.PaymentConfirmedAt != nil {
		tx.PaymentConfirmedAt = patch.PaymentConfirmedAt
	}
	return 1
}

// Get returns the stored transaction for assertions.
func (m *MockTransactionRepository) Get(paymentIntentID string) *domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transactions[paymentIntentID]
}

// Put seeds a transaction.
func (m *MockTransactionRepository) Put(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.PaymentIntentID] = tx
}

// MockOrderRepository
type MockOrderRepository struct {
	mu sync.Mutex

	SetPaymentStateFn func(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error

	States         map[string]domain.OrderPaymentStatus
	TransactionIDs map[string]string
	Calls          int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		States:         make(map[string]domain.OrderPaymentStatus),
		TransactionIDs: make(map[string]string),
	}
}

func (m *MockOrderRepository) SetPaymentState(ctx context.Context, orderID string, status domain.OrderPaymentStatus, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.SetPaymentStateFn != nil {
		return m.SetPaymentStateFn(ctx, orderID, status, transactionID)
	}
	m.States[orderID] = status
	if transactionID != "" {
		m.TransactionIDs[orderID] = transactionID
	}
	return nil
}

// MockEventJournal
type MockEventJournal struct {
	mu sync.Mutex

	RecordUnmatchedFn func(ctx context.Context, event domain.GatewayEvent, reason string) error

	Recorded []string
}

func (m *MockEventJournal) RecordUnmatched(ctx context.Context, event domain.GatewayEvent, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordUnmatchedFn != nil {
		return m.RecordUnmatchedFn(ctx, event, reason)
	}
	m.Recorded = append(m.Recorded, event.ID)
	return nil
}
