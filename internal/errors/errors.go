package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput      ErrorCode = "invalid_input"
	InvalidAmount     ErrorCode = "invalid_amount"
	InsufficientFunds ErrorCode = "insufficient_funds"
	UnknownHold       ErrorCode = "unknown_hold"
	ShuttingDown      ErrorCode = "shutting_down"
	InternalError     ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error code to the wire status the transaction protocol
// fixes: 402 for a failed authorization, 404 for commit/release of a hold
// that no longer exists, 503 while the gate is shutting down.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput, InvalidAmount:
		return http.StatusBadRequest
	case InsufficientFunds:
		return http.StatusPaymentRequired
	case UnknownHold:
		return http.StatusNotFound
	case ShuttingDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrInvalidAmount     = NewAppError(InvalidAmount, "amount must be positive")
	ErrInsufficientFunds = NewAppError(InsufficientFunds, "insufficient funds to authorize withdrawal")
	ErrUnknownHold       = NewAppError(UnknownHold, "hold does not exist or was already resolved")
	ErrShuttingDown      = NewAppError(ShuttingDown, "service is shutting down")
)
