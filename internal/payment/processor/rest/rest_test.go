package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/payment/processor"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

func newTestProcessor(t *testing.T, handler http.Handler) *Processor {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewProcessor(Config{
		BaseURL: server.URL,
		APIKey:  "sk_test_123",
		Timeout: 2 * time.Second,
	}, logger)
}

func TestProcessor_CreateIntent_Success(t *testing.T) {
	var gotAuth string
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3955), body["amount"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "pi_123",
			"amount":        3955,
			"currency":      "USD",
			"status":        "created",
			"client_secret": "pi_123_secret",
		})
	}))

	intent, err := p.CreateIntent(context.Background(), &processor.CreateIntentInput{
		Amount:   3955,
		Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.Equal(t, domain.IntentStatusCreated, intent.Status)
	assert.Equal(t, "Bearer sk_test_123", gotAuth)
}

func TestProcessor_CreateIntent_RejectsNonPositiveAmountLocally(t *testing.T) {
	var calls atomic.Int32
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	_, err := p.CreateIntent(context.Background(), &processor.CreateIntentInput{Amount: 0, Currency: "USD"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, int32(0), calls.Load())
}

func TestProcessor_CreateIntent_BadRequest(t *testing.T) {
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "invalid_currency", "message": "unsupported currency"},
		})
	}))

	_, err := p.CreateIntent(context.Background(), &processor.CreateIntentInput{Amount: 100, Currency: "XXX"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "unsupported currency")
}

func TestProcessor_ConfirmIntent_Succeeded(t *testing.T) {
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents/pi_123/confirm", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "pi_123",
			"amount":   3955,
			"currency": "USD",
			"status":   "succeeded",
		})
	}))

	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{
		IntentID:      "pi_123",
		ClientSecret:  "pi_123_secret",
		PaymentMethod: "pm_card_visa",
	})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeSucceeded, outcome.Kind)
	assert.Equal(t, domain.IntentStatusSucceeded, outcome.Intent.Status)
}

func TestProcessor_ConfirmIntent_RequiresAction(t *testing.T) {
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":              "pi_123",
			"status":          "requires_action",
			"next_action_url": "https://processor.example.com/3ds/pi_123",
		})
	}))

	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{IntentID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeRequiresAction, outcome.Kind)
	assert.Equal(t, "https://processor.example.com/3ds/pi_123", outcome.ActionURL)
}

func TestProcessor_ConfirmIntent_Declined(t *testing.T) {
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "card_declined", "message": "insufficient funds"},
		})
	}))

	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{IntentID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeDeclined, outcome.Kind)
	assert.Equal(t, "insufficient funds", outcome.Reason)
}

func TestProcessor_ConfirmIntent_ValidationError(t *testing.T) {
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": "not_found", "message": "no such intent"},
		})
	}))

	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{IntentID: "pi_nope"})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeValidationError, outcome.Kind)
}

func TestProcessor_ConfirmIntent_ServerErrorIsTransientAndNeverRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestProcessor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{IntentID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeTransientError, outcome.Kind)

	// One confirmation attempt means exactly one request, whatever the answer.
	assert.Equal(t, int32(1), calls.Load())
}

func TestProcessor_ConfirmIntent_UnreachableIsTransient(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	p := NewProcessor(Config{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}, logger)

	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{IntentID: "pi_123"})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeTransientError, outcome.Kind)
}
