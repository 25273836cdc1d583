package application

import (
	"errors"
	"fmt"
	"net/http"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeGateway        = "GATEWAY_ERROR"
	ErrCodeVerification   = "VERIFICATION_ERROR"
	ErrCodeStaleEvent     = "STALE_EVENT"
	ErrCodeClassification = "CLASSIFICATION_ERROR"
	ErrCodeResolution     = "RESOLUTION_ERROR"
	ErrCodePersistence    = "PERSISTENCE_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

func NewValidationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    "invalid request",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewGatewayError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGateway,
		Message:    "payment gateway request failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewVerificationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeVerification,
		Message:    "webhook signature verification failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewStaleEventError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeStaleEvent,
		Message:    "webhook event timestamp outside tolerance window",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewClassificationError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeClassification,
		Message:    "malformed gateway event payload",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

// NewResolutionError marks a verified event that matches no local record. The
// webhook endpoint still acknowledges it so the gateway stops retrying; the
// event is journaled for out-of-band reconciliation.
func NewResolutionError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeResolution,
		Message:    "event could not be matched to a local record",
		HTTPStatus: http.StatusOK,
		Err:        err,
	}
}

func NewPersistenceError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodePersistence,
		Message:    "datastore operation failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewConfigurationError(key string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeConfiguration,
		Message:    fmt.Sprintf("missing required configuration: %s", key),
		HTTPStatus: http.StatusInternalServerError,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "an internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// IsErrorCode reports whether err is a ServiceError carrying the given code.
func IsErrorCode(err error, code string) bool {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code == code
	}
	return false
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	return http.StatusInternalServerError
}

// ToErrorCode returns a stable error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	return ErrCodeInternal
}
