// Package apperr defines the error taxonomy shared by the marketplace
// packages and maps it onto HTTP statuses and metric labels.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrStaleReference = errors.New("stale payment reference")
	ErrSettlementBusy = errors.New("settlement capacity exhausted")
)

// ValidationError reports bad caller input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var (
	ErrEmptyCart      = NewValidationError("cart", "cart is empty")
	ErrInvalidAddress = NewValidationError("address_id", "address does not belong to buyer")
)

// TransactionError wraps a storage failure raised while materializing
// orders for a payment.
type TransactionError struct {
	PaymentID string
	Err       error
}

func (e *TransactionError) Error() string {
	return "materialize orders for " + e.PaymentID + ": " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func Kind(err error) string {
	var txErr *TransactionError

	switch {
	case err == nil:
		return ""

	case IsValidation(err):
		return "validation"

	case errors.Is(err, ErrNotFound):
		return "not_found"

	case errors.Is(err, ErrForbidden):
		return "forbidden"

	case errors.Is(err, ErrStaleReference):
		return "stale_reference"

	case errors.Is(err, ErrSettlementBusy):
		return "settlement_busy"

	case errors.As(err, &txErr):
		return "transaction"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case IsValidation(err):
		return http.StatusBadRequest

	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, ErrSettlementBusy):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
