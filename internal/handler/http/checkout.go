package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickplate/storefront/internal/checkout"
	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/payment/processor"
	"github.com/quickplate/storefront/pkg/httputil"
	"github.com/quickplate/storefront/pkg/validator"
)

// CheckoutHandler handles HTTP requests for the checkout flow.
type CheckoutHandler struct {
	manager *checkout.Manager
	logger  *slog.Logger
}

// NewCheckoutHandler creates a checkout HTTP handler.
func NewCheckoutHandler(manager *checkout.Manager, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{manager: manager, logger: logger}
}

// ShippingRequest is the JSON request body for the shipping step.
type ShippingRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	DeliveryMethod string `json:"delivery_method"`
	DeliveryTime   string `json:"delivery_time"`
}

// PayRequest is the JSON request body for a payment attempt.
type PayRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// sessionView is the JSON shape of a checkout session.
type sessionView struct {
	ID            string               `json:"id"`
	State         domain.CheckoutState `json:"state"`
	Shipping      *domain.ShippingInfo `json:"shipping,omitempty"`
	Quote         any                  `json:"quote,omitempty"`
	IntentID      string               `json:"intent_id,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	ActionURL     string               `json:"action_url,omitempty"`
}

func viewOf(s *checkout.Session) sessionView {
	view := sessionView{
		ID:            s.ID,
		State:         s.State,
		Shipping:      s.Shipping,
		FailureReason: s.FailureReason,
	}
	if s.Quote != nil {
		view.Quote = s.Quote
	}
	if s.Intent != nil {
		view.IntentID = s.Intent.ID
	}
	return view
}

// Start handles POST /api/v1/checkout
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Start(r.Context(), DeviceID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: viewOf(session)})
}

// Get handles GET /api/v1/checkout/{checkoutID}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Get(chi.URLParam(r, "checkoutID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(session)})
}

// SubmitShipping handles POST /api/v1/checkout/{checkoutID}/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var req ShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	shipping := domain.ShippingInfo{
		Name:           req.Name,
		Email:          req.Email,
		Address:        req.Address,
		City:           req.City,
		PostalCode:     req.PostalCode,
		DeliveryMethod: req.DeliveryMethod,
		DeliveryTime:   req.DeliveryTime,
	}

	session, err := h.manager.SubmitShipping(r.Context(), chi.URLParam(r, "checkoutID"), shipping)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(session)})
}

// Back handles POST /api/v1/checkout/{checkoutID}/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Back(chi.URLParam(r, "checkoutID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(session)})
}

// Pay handles POST /api/v1/checkout/{checkoutID}/pay
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	session, outcome, err := h.manager.Pay(r.Context(), chi.URLParam(r, "checkoutID"), req.PaymentMethod)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view := viewOf(session)
	view.ActionURL = outcome.ActionURL

	switch outcome.Kind {
	case processor.OutcomeSucceeded:
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
	case processor.OutcomeRequiresAction:
		httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: view})
	case processor.OutcomeDeclined:
		httputil.WriteJSON(w, http.StatusPaymentRequired, httputil.Response{
			Data: view,
			Error: &httputil.ErrorResponse{
				Code:    "PAYMENT_DECLINED",
				Message: outcome.Reason,
			},
		})
	case processor.OutcomeValidationError:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Data: view,
			Error: &httputil.ErrorResponse{
				Code:    "INVALID_INPUT",
				Message: outcome.Reason,
			},
		})
	default:
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.Response{
			Data: view,
			Error: &httputil.ErrorResponse{
				Code:    "PAYMENT_UNAVAILABLE",
				Message: outcome.Reason,
			},
		})
	}
}
