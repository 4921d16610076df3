package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	base := errors.New("boom")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "an internal error occurred", Status: http.StatusInternalServerError, Err: base}

	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "boom")
	assert.ErrorIs(t, appErr, base)
}

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		status   int
		sentinel error
	}{
		{"not found", NotFound("cart", "acct:42"), http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("quantity must be at least 1"), http.StatusBadRequest, ErrInvalidInput},
		{"conflict", Conflict("cart changed"), http.StatusConflict, ErrConflict},
		{"unauthorized", Unauthorized("login required"), http.StatusUnauthorized, ErrUnauthorized},
		{"declined", PaymentDeclined("card declined"), http.StatusPaymentRequired, ErrPaymentDeclined},
		{"transient", PaymentUnavailable("processor timeout"), http.StatusServiceUnavailable, ErrPaymentTransient},
		{"integrity", Integrity("malformed cart record"), http.StatusInternalServerError, ErrIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestValidation_CarriesFields(t *testing.T) {
	err := Validation(map[string]string{"postal_code": "must match the regional format"})

	assert.Equal(t, "VALIDATION_ERROR", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "must match the regional format", err.Fields["postal_code"])
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHTTPStatus_WrappedSentinels(t *testing.T) {
	wrapped := fmt.Errorf("confirm intent: %w", ErrPaymentTransient)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(wrapped))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unclassified")))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load account cart")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "load account cart")
}
