package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the storefront error taxonomy.
//
// Persistence failures are deliberately absent: cart sync degrades to
// local-only on a failed write and never surfaces the error to callers,
// so there is no sentinel for handlers to branch on.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInternal         = errors.New("internal error")
	ErrIntegrity        = errors.New("integrity error")
	ErrPaymentDeclined  = errors.New("payment declined")
	ErrPaymentTransient = errors.New("payment processor unavailable")
)

// AppError is a structured application error carrying a stable machine code,
// a user-facing message, and an HTTP status mapping.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Validation creates a 400 error carrying per-field messages. It is used by
// the checkout flow to report shipping-form errors as a unit.
func Validation(fields map[string]string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed",
		Fields:  fields,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Integrity creates an error for malformed stored data. Callers are expected
// to discard the offending record and continue; the constructor exists so the
// drop can be logged with a classified cause.
func Integrity(message string) *AppError {
	return &AppError{
		Code:    "INTEGRITY_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     ErrIntegrity,
	}
}

// PaymentDeclined creates a 402 error for a processor decline. Retryable only
// with a different payment method.
func PaymentDeclined(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_DECLINED",
		Message: message,
		Status:  http.StatusPaymentRequired,
		Err:     ErrPaymentDeclined,
	}
}

// PaymentUnavailable creates a 503 error for a transient processor failure.
// Safe to retry with the same payment intent.
func PaymentUnavailable(message string) *AppError {
	return &AppError{
		Code:    "PAYMENT_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrPaymentTransient,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrPaymentTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
