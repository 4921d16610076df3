package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickplate/storefront/internal/domain"
)

type checkoutView struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason"`
	ActionURL     string `json:"action_url"`
	IntentID      string `json:"intent_id"`
	Quote         *struct {
		Subtotal   string `json:"subtotal"`
		Tax        string `json:"tax"`
		Total      string `json:"total"`
		TotalMinor int64  `json:"total_minor"`
	} `json:"quote"`
	Shipping *struct {
		Name       string `json:"name"`
		PostalCode string `json:"postal_code"`
	} `json:"shipping"`
}

func decodeCheckout(t *testing.T, rec *httptest.ResponseRecorder) checkoutView {
	t.Helper()
	env := decodeEnvelope(t, rec)
	var view checkoutView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	return view
}

func shippingBody() map[string]any {
	return map[string]any{
		"name":            "Ada Lovelace",
		"email":           "ada@example.com",
		"address":         "100 Queen St W",
		"city":            "Toronto",
		"postal_code":     "M5H 2N2",
		"delivery_method": "delivery",
		"delivery_time":   "18:30",
	}
}

// startCheckout seeds the cart so its taxed total's last two digits drive
// the mock processor, then opens a checkout.
func startCheckout(t *testing.T, server http.Handler, price string) checkoutView {
	t.Helper()
	rec := doRequest(t, server, http.MethodPost, "/api/v1/cart/items", "dev-1", addItemBody("52772", price, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout", "dev-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeCheckout(t, rec)
}

func TestCheckout_StartPricesCart(t *testing.T) {
	server := setupServer(t)

	doRequest(t, server, http.MethodPost, "/api/v1/cart/items", "dev-1", addItemBody("52772", "10.00", 2))
	doRequest(t, server, http.MethodPost, "/api/v1/cart/items", "dev-1", addItemBody("52804", "15.00", 1))

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout", "dev-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	view := decodeCheckout(t, rec)
	assert.Equal(t, string(domain.StateShippingDetails), view.State)
	require.NotNil(t, view.Quote)
	assert.Equal(t, "35", view.Quote.Subtotal)
	assert.Equal(t, "4.55", view.Quote.Tax)
	assert.Equal(t, "39.55", view.Quote.Total)
	assert.Equal(t, int64(3955), view.Quote.TotalMinor)
}

func TestCheckout_StartWithEmptyCart(t *testing.T) {
	server := setupServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout", "dev-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_ShippingValidationBlocksPayment(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "10.00")

	body := shippingBody()
	body["postal_code"] = ""

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "postal_code")

	// The session has not moved.
	current := decodeCheckout(t, doRequest(t, server, http.MethodGet, "/api/v1/checkout/"+view.ID, "dev-1", nil))
	assert.Equal(t, string(domain.StateShippingDetails), current.State)
}

func TestCheckout_ShippingRejectsBadPostalFormat(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "10.00")

	body := shippingBody()
	body["postal_code"] = "90210"

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Error.Fields, "postal_code")
}

func TestCheckout_FullFlowSucceeds(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "10.00") // total 11.30, suffix 30

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", shippingBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.StatePayment), decodeCheckout(t, rec).State)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/pay", "dev-1", map[string]any{
		"payment_method": "pm_card_visa",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decodeCheckout(t, rec)
	assert.Equal(t, string(domain.StateConfirmed), paid.State)
	assert.NotEmpty(t, paid.IntentID)

	// Confirming the order cleared the cart.
	cart := decodeCart(t, doRequest(t, server, http.MethodGet, "/api/v1/cart", "dev-1", nil))
	assert.Empty(t, cart.Items)
}

func TestCheckout_DeclineThenRetry(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "0.90") // total 1.02, suffix 02 declines

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", shippingBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/pay", "dev-1", map[string]any{
		"payment_method": "pm_card_visa",
	})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	failed := decodeCheckout(t, rec)
	assert.Equal(t, string(domain.StateFailed), failed.State)
	assert.NotEmpty(t, failed.FailureReason)

	// Cart is untouched after a decline.
	cart := decodeCart(t, doRequest(t, server, http.MethodGet, "/api/v1/cart", "dev-1", nil))
	require.Len(t, cart.Items, 1)

	// Adding an item changes the total to a clean suffix; the retry pays
	// without touching the shipping step again.
	doRequest(t, server, http.MethodPost, "/api/v1/cart/items", "dev-1", addItemBody("52804", "9.10", 1))

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/pay", "dev-1", map[string]any{
		"payment_method": "pm_card_mastercard",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(domain.StateConfirmed), decodeCheckout(t, rec).State)
}

func TestCheckout_TransientKeepsPaymentState(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "0.92") // total 1.04, suffix 04 transient

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", shippingBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/pay", "dev-1", map[string]any{
		"payment_method": "pm_card_visa",
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	current := decodeCheckout(t, rec)
	assert.Equal(t, string(domain.StatePayment), current.State)

	cart := decodeCart(t, doRequest(t, server, http.MethodGet, "/api/v1/cart", "dev-1", nil))
	require.Len(t, cart.Items, 1)
}

func TestCheckout_RequiresActionReturnsChallenge(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "0.91") // total 1.03, suffix 03 challenges

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", shippingBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/pay", "dev-1", map[string]any{
		"payment_method": "pm_card_visa",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	current := decodeCheckout(t, rec)
	assert.Equal(t, string(domain.StatePayment), current.State)
	assert.NotEmpty(t, current.ActionURL)
}

func TestCheckout_BackKeepsShipping(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "10.00")

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/shipping", "dev-1", shippingBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/back", "dev-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	back := decodeCheckout(t, rec)
	assert.Equal(t, string(domain.StateShippingDetails), back.State)
	require.NotNil(t, back.Shipping)
	assert.Equal(t, "Ada Lovelace", back.Shipping.Name)
}

func TestCheckout_GetUnknown(t *testing.T) {
	server := setupServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/checkout/nope", "dev-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_PayBeforeShipping(t *testing.T) {
	server := setupServer(t)
	view := startCheckout(t, server, "10.00")

	rec := doRequest(t, server, http.MethodPost, "/api/v1/checkout/"+view.ID+"/pay", "dev-1", map[string]any{
		"payment_method": "pm_card_visa",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
