package stripe

import (
	"errors"
	"fmt"
)

// GatewayError carries the provider's status text for a non-2xx response.
type GatewayError struct {
	Code       string
	Message    string
	StatusCode int
}

// APIErrorResponse is the error envelope Stripe returns on non-2xx responses.
type APIErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("stripe error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode >= 500
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

// Signature verification failures. These must short-circuit all downstream
// processing; nothing is mutated on their account.
var (
	ErrMalformedSignatureHeader = errors.New("malformed signature header")
	ErrSignatureMismatch        = errors.New("signature mismatch")
	ErrStaleEvent               = errors.New("event timestamp outside tolerance window")
)
