package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Domain validation errors
const (
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeMissingField        = "MISSING_REQUIRED_FIELD"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeTerminalConflict    = "TERMINAL_CONFLICT"
)

func NewInvalidAmountError(amountCents int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("amount must be a positive minor-unit integer, got %d", amountCents),
	}
}

func NewMissingFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewTransactionNotFoundError(paymentIntentID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionNotFound,
		Message: fmt.Sprintf("no transaction found for payment intent %s", paymentIntentID),
	}
}

// NewTerminalConflictError reports a conflicting terminal event arriving after
// another terminal state was already recorded. The earlier state wins; callers
// log this as an anomaly rather than failing the delivery.
func NewTerminalConflictError(current, attempted TransactionStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeTerminalConflict,
		Message: fmt.Sprintf("transaction already terminal in %s, ignoring transition to %s", current, attempted),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
