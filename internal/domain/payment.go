package domain

import "time"

// Payment intent statuses as reported by the processor.
const (
	IntentStatusCreated        = "created"
	IntentStatusRequiresAction = "requires_action"
	IntentStatusSucceeded      = "succeeded"
	IntentStatusFailed         = "failed"
)

// PaymentIntent is the processor-side record of a payment attempt. The
// amount is in minor units (cents). Intents are created by the processor
// and mutated only through confirmation; the storefront never fabricates
// one or advances its status locally.
type PaymentIntent struct {
	ID           string    `json:"id"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	ClientSecret string    `json:"client_secret,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Final reports whether the intent has reached a terminal status.
func (p PaymentIntent) Final() bool {
	return p.Status == IntentStatusSucceeded || p.Status == IntentStatusFailed
}
