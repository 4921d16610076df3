// Package checkout drives the checkout flow as an explicit state machine.
// Forward moves pass gates, backward moves always succeed and keep entered
// data, and the cart is cleared exactly once when an order confirms.
package checkout

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/event"
	"github.com/quickplate/storefront/internal/payment/processor"
	"github.com/quickplate/storefront/internal/pricing"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

// Carts is the slice of the cart layer checkout needs.
type Carts interface {
	Cart(ctx context.Context, deviceID string) *domain.Cart
	Clear(ctx context.Context, deviceID string) *domain.Cart
	Owner(deviceID string) string
}

// Payments is the slice of the payment layer checkout needs.
type Payments interface {
	IntentFor(ctx context.Context, attemptID string, amount int64, currency, description string) (*domain.PaymentIntent, error)
	Confirm(ctx context.Context, attemptID, paymentMethod string) (*processor.Outcome, error)
	Release(attemptID string)
}

// Events is the slice of the event layer checkout needs.
type Events interface {
	PublishOrderConfirmed(ctx context.Context, data event.OrderConfirmedData)
	PublishCartCleared(ctx context.Context, ownerKey string)
}

// Session is one checkout flow in progress.
type Session struct {
	ID            string
	DeviceID      string
	State         domain.CheckoutState
	Shipping      *domain.ShippingInfo
	Quote         *pricing.Quote
	Intent        *domain.PaymentIntent
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	cleared bool
}

func (s *Session) clone() *Session {
	cp := *s
	if s.Shipping != nil {
		shipping := *s.Shipping
		cp.Shipping = &shipping
	}
	if s.Quote != nil {
		quote := *s.Quote
		cp.Quote = &quote
	}
	if s.Intent != nil {
		intent := *s.Intent
		cp.Intent = &intent
	}
	return &cp
}

// Manager owns checkout sessions and enforces the transition rules.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	carts        Carts
	pricer       *pricing.Engine
	payments     Payments
	events       Events
	postalFormat *regexp.Regexp
	currency     string
	logger       *slog.Logger
}

// NewManager creates a checkout manager.
func NewManager(carts Carts, pricer *pricing.Engine, payments Payments, events Events, postalFormat *regexp.Regexp, currency string, logger *slog.Logger) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		carts:        carts,
		pricer:       pricer,
		payments:     payments,
		events:       events,
		postalFormat: postalFormat,
		currency:     currency,
		logger:       logger,
	}
}

// Start opens a checkout for the device's active cart. An empty cart cannot
// enter checkout; the session begins at the shipping step with the priced
// cart attached.
func (m *Manager) Start(ctx context.Context, deviceID string) (*Session, error) {
	cart := m.carts.Cart(ctx, deviceID)
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	quote := m.pricer.Price(cart)
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		State:     domain.StateShippingDetails,
		Quote:     &quote,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "checkout started",
		slog.String("checkout_id", session.ID),
		slog.String("total", quote.Total.StringFixed(2)))
	return session.clone(), nil
}

// Get returns a snapshot of the session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("checkout", sessionID)
	}
	return session.clone(), nil
}

// SubmitShipping validates the shipping form as a unit and, when it passes,
// advances the session to the payment step. A session sent back to the cart
// step passes the non-empty gate again on its way forward. Field errors are
// returned together; the session does not move.
func (m *Manager) SubmitShipping(ctx context.Context, sessionID string, shipping domain.ShippingInfo) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("checkout", sessionID)
	}

	if session.State == domain.StateCart {
		cart := m.carts.Cart(ctx, session.DeviceID)
		if cart.IsEmpty() {
			return nil, apperrors.InvalidInput("cart is empty")
		}
		session.State = domain.StateShippingDetails
	}
	if session.State != domain.StateShippingDetails {
		return nil, apperrors.Conflict("checkout is not at the shipping step")
	}

	if fields := shipping.Validate(m.postalFormat); fields != nil {
		return nil, apperrors.Validation(fields)
	}

	session.Shipping = &shipping
	session.State = domain.StatePayment
	session.UpdatedAt = time.Now().UTC()
	return session.clone(), nil
}

// Back moves the session one step backward. Entered data stays on the
// session so moving forward again does not retype anything.
func (m *Manager) Back(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("checkout", sessionID)
	}

	prev, ok := session.State.Prev()
	if !ok {
		return nil, apperrors.Conflict("checkout cannot move backward from here")
	}
	session.State = prev
	session.UpdatedAt = time.Now().UTC()
	return session.clone(), nil
}

// Pay runs one payment attempt: price the live cart, ensure the attempt's
// intent, confirm once, and settle the session by the outcome. A failed
// session re-enters the payment step without re-validating shipping. Only a
// Succeeded outcome confirms the order; anything else leaves the session
// unconfirmed.
func (m *Manager) Pay(ctx context.Context, sessionID, paymentMethod string) (*Session, *processor.Outcome, error) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil, nil, apperrors.NotFound("checkout", sessionID)
	}
	switch session.State {
	case domain.StatePayment:
	case domain.StateFailed:
		session.State = domain.StatePayment
		session.FailureReason = ""
	default:
		m.mu.Unlock()
		return nil, nil, apperrors.Conflict("checkout is not at the payment step")
	}
	deviceID := session.DeviceID
	m.mu.Unlock()

	cart := m.carts.Cart(ctx, deviceID)
	quote, err := m.pricer.PriceForPayment(cart)
	if err != nil {
		return nil, nil, err
	}

	intent, err := m.payments.IntentFor(ctx, sessionID, quote.TotalMinor, m.currency, "storefront order "+sessionID)
	if err != nil {
		return nil, nil, err
	}

	outcome, err := m.payments.Confirm(ctx, sessionID, paymentMethod)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	session.Quote = &quote
	session.Intent = intent
	session.UpdatedAt = time.Now().UTC()

	switch outcome.Kind {
	case processor.OutcomeSucceeded:
		session.State = domain.StateConfirmed
		if outcome.Intent.ID != "" {
			session.Intent = cloneIntent(outcome.Intent)
		}
		alreadyCleared := session.cleared
		session.cleared = true
		snapshot := session.clone()
		m.mu.Unlock()

		if !alreadyCleared {
			m.confirmOrder(ctx, snapshot, cart)
		}
		return snapshot, outcome, nil

	case processor.OutcomeDeclined:
		session.State = domain.StateFailed
		session.FailureReason = outcome.Reason

	case processor.OutcomeRequiresAction, processor.OutcomeTransientError, processor.OutcomeValidationError:
		// The session stays at the payment step; nothing advanced.
	}

	snapshot := session.clone()
	m.mu.Unlock()
	return snapshot, outcome, nil
}

// confirmOrder clears the cart and announces the order. Runs outside the
// session lock; it touches the cart layer and the broker.
func (m *Manager) confirmOrder(ctx context.Context, session *Session, cart *domain.Cart) {
	ownerKey := m.carts.Owner(session.DeviceID)
	m.carts.Clear(ctx, session.DeviceID)
	m.events.PublishCartCleared(ctx, ownerKey)

	data := event.OrderConfirmedData{
		CheckoutID: session.ID,
		OwnerKey:   ownerKey,
		Subtotal:   session.Quote.Subtotal,
		Tax:        session.Quote.Tax,
		Total:      session.Quote.Total,
		Currency:   session.Quote.Currency,
	}
	for _, item := range cart.Items {
		data.Items = append(data.Items, event.CartItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	if session.Intent != nil {
		data.IntentID = session.Intent.ID
	}
	if session.Shipping != nil {
		data.DeliveryMethod = session.Shipping.DeliveryMethod
		data.DeliveryTime = session.Shipping.DeliveryTime
	}
	m.events.PublishOrderConfirmed(ctx, data)

	m.logger.InfoContext(ctx, "order confirmed",
		slog.String("checkout_id", session.ID),
		slog.String("total", session.Quote.Total.StringFixed(2)))
}

func cloneIntent(intent domain.PaymentIntent) *domain.PaymentIntent {
	cp := intent
	return &cp
}
