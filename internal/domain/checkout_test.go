package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckoutState_ForwardPath(t *testing.T) {
	next, ok := StateCart.Next()
	assert.True(t, ok)
	assert.Equal(t, StateShippingDetails, next)

	next, ok = StateShippingDetails.Next()
	assert.True(t, ok)
	assert.Equal(t, StatePayment, next)

	next, ok = StatePayment.Next()
	assert.True(t, ok)
	assert.Equal(t, StateConfirmed, next)

	_, ok = StateConfirmed.Next()
	assert.False(t, ok)

	_, ok = StateFailed.Next()
	assert.False(t, ok)
}

func TestCheckoutState_BackwardPath(t *testing.T) {
	prev, ok := StatePayment.Prev()
	assert.True(t, ok)
	assert.Equal(t, StateShippingDetails, prev)

	prev, ok = StateShippingDetails.Prev()
	assert.True(t, ok)
	assert.Equal(t, StateCart, prev)

	_, ok = StateCart.Prev()
	assert.False(t, ok)

	_, ok = StateConfirmed.Prev()
	assert.False(t, ok)
}

func TestCheckoutState_FailureAndReentry(t *testing.T) {
	assert.True(t, StatePayment.CanTransition(StateFailed))
	assert.True(t, StateFailed.CanTransition(StatePayment))

	assert.False(t, StateCart.CanTransition(StateFailed))
	assert.False(t, StateShippingDetails.CanTransition(StateFailed))
	assert.False(t, StateFailed.CanTransition(StateConfirmed))
	assert.False(t, StateFailed.CanTransition(StateCart))
}

func TestCheckoutState_NoSkipping(t *testing.T) {
	assert.False(t, StateCart.CanTransition(StatePayment))
	assert.False(t, StateCart.CanTransition(StateConfirmed))
	assert.False(t, StateShippingDetails.CanTransition(StateConfirmed))
	assert.False(t, StateConfirmed.CanTransition(StatePayment))
}

func TestCheckoutState_Terminal(t *testing.T) {
	assert.True(t, StateConfirmed.Terminal())
	assert.False(t, StateFailed.Terminal())
	assert.False(t, StatePayment.Terminal())
}

func TestPaymentIntent_Final(t *testing.T) {
	assert.True(t, PaymentIntent{Status: IntentStatusSucceeded}.Final())
	assert.True(t, PaymentIntent{Status: IntentStatusFailed}.Final())
	assert.False(t, PaymentIntent{Status: IntentStatusCreated}.Final())
	assert.False(t, PaymentIntent{Status: IntentStatusRequiresAction}.Final())
}
