package domain

// CheckoutState is one step of the checkout flow.
type CheckoutState string

// Checkout flow states. The flow moves forward one step at a time and may
// always move backward; Failed is reached only from Payment and may return
// to Payment for another attempt.
const (
	StateCart            CheckoutState = "cart"
	StateShippingDetails CheckoutState = "shipping_details"
	StatePayment         CheckoutState = "payment"
	StateConfirmed       CheckoutState = "confirmed"
	StateFailed          CheckoutState = "failed"
)

var forwardTransitions = map[CheckoutState]CheckoutState{
	StateCart:            StateShippingDetails,
	StateShippingDetails: StatePayment,
	StatePayment:         StateConfirmed,
}

var backwardTransitions = map[CheckoutState]CheckoutState{
	StateShippingDetails: StateCart,
	StatePayment:         StateShippingDetails,
}

// Next returns the state one step forward from s, or false when s has no
// forward transition. Gate conditions (non-empty cart, validated shipping)
// are enforced by the state machine, not here.
func (s CheckoutState) Next() (CheckoutState, bool) {
	next, ok := forwardTransitions[s]
	return next, ok
}

// Prev returns the state one step backward from s, or false when s has no
// backward transition. Backward moves never discard entered data.
func (s CheckoutState) Prev() (CheckoutState, bool) {
	prev, ok := backwardTransitions[s]
	return prev, ok
}

// CanTransition reports whether moving from s to target is ever permitted,
// ignoring gate conditions.
func (s CheckoutState) CanTransition(target CheckoutState) bool {
	if next, ok := forwardTransitions[s]; ok && next == target {
		return true
	}
	if prev, ok := backwardTransitions[s]; ok && prev == target {
		return true
	}
	// Failure and re-entry around the payment step.
	if s == StatePayment && target == StateFailed {
		return true
	}
	if s == StateFailed && target == StatePayment {
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s CheckoutState) Terminal() bool {
	return s == StateConfirmed
}
