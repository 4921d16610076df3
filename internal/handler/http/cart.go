package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickplate/storefront/internal/cartsync"
	"github.com/quickplate/storefront/internal/event"
	"github.com/quickplate/storefront/internal/menu"
	"github.com/quickplate/storefront/pkg/httputil"
	"github.com/quickplate/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	carts  *cartsync.Service
	events *event.Producer
	logger *slog.Logger
}

// NewCartHandler creates a cart HTTP handler.
func NewCartHandler(carts *cartsync.Service, events *event.Producer, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, events: events, logger: logger}
}

// AddItemRequest is the JSON request body for adding an item. The item
// fields use the upstream meal-record shape so the frontend can forward
// catalog records untouched.
type AddItemRequest struct {
	IDMeal       string `json:"idMeal" validate:"required"`
	StrMeal      string `json:"strMeal"`
	StrMealThumb string `json:"strMealThumb"`
	Price        string `json:"price" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,gte=1"`
}

// UpdateQuantityRequest is the JSON request body for updating a quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// LoginRequest is the JSON request body for binding the device to an account.
type LoginRequest struct {
	AccountID string `json:"account_id" validate:"required"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart := h.carts.Cart(r.Context(), DeviceID(r.Context()))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	item, err := menu.ToCartItem(menu.MealRecord{
		IDMeal:       req.IDMeal,
		StrMeal:      req.StrMeal,
		StrMealThumb: req.StrMealThumb,
		Price:        req.Price,
	}, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart := h.carts.AddItem(r.Context(), DeviceID(r.Context()), item, req.Quantity)
	h.events.PublishCartUpdated(r.Context(), cart)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productID}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	productID := chi.URLParam(r, "productID")
	cart, err := h.carts.SetQuantity(r.Context(), DeviceID(r.Context()), productID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.events.PublishCartUpdated(r.Context(), cart)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	cart := h.carts.RemoveItem(r.Context(), DeviceID(r.Context()), productID)
	h.events.PublishCartUpdated(r.Context(), cart)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	deviceID := DeviceID(r.Context())
	cart := h.carts.Clear(r.Context(), deviceID)
	h.events.PublishCartCleared(r.Context(), h.carts.Owner(deviceID))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// Login handles POST /api/v1/cart/login
func (h *CartHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.carts.Login(r.Context(), DeviceID(r.Context()), req.AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.events.PublishCartUpdated(r.Context(), cart)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

// Logout handles POST /api/v1/cart/logout
func (h *CartHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Logout(r.Context(), DeviceID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
