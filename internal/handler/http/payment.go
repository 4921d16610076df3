package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quickplate/storefront/internal/payment/processor"
	"github.com/quickplate/storefront/pkg/httputil"
	"github.com/quickplate/storefront/pkg/validator"
)

// PaymentHandler exposes direct intent creation for clients that drive the
// processor's browser SDK themselves.
type PaymentHandler struct {
	proc   processor.Processor
	logger *slog.Logger
}

// NewPaymentHandler creates a payment HTTP handler.
func NewPaymentHandler(proc processor.Processor, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{proc: proc, logger: logger}
}

// CreateIntentRequest is the JSON request body for creating an intent.
// Amount is in minor units.
type CreateIntentRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Description string `json:"description"`
}

// CreateIntent handles POST /api/v1/payment-intents
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	intent, err := h.proc.CreateIntent(r.Context(), &processor.CreateIntentInput{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: intent})
}
