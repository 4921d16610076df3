// Package processor defines the payment processor contract. Payments use a
// two-phase protocol: create an intent for an amount, then confirm it with a
// payment method. Confirmation results are a closed outcome type; callers
// branch on the kind and never guess from raw errors.
package processor

import (
	"context"

	"github.com/quickplate/storefront/internal/domain"
)

// OutcomeKind tags the result of a confirmation attempt.
type OutcomeKind string

const (
	// OutcomeSucceeded means the charge completed. Terminal.
	OutcomeSucceeded OutcomeKind = "succeeded"
	// OutcomeRequiresAction means the customer must complete a challenge
	// before the intent can be confirmed again.
	OutcomeRequiresAction OutcomeKind = "requires_action"
	// OutcomeDeclined means the processor refused the charge. Retryable
	// only with a different payment method.
	OutcomeDeclined OutcomeKind = "declined"
	// OutcomeTransientError means the attempt's fate is unknown or the
	// processor was unreachable. The same intent may be confirmed again.
	OutcomeTransientError OutcomeKind = "transient_error"
	// OutcomeValidationError means the request was malformed and will
	// never succeed as submitted.
	OutcomeValidationError OutcomeKind = "validation_error"
)

// Outcome is the tagged result of confirming an intent. Intent carries the
// processor's view after the attempt when one was reached.
type Outcome struct {
	Kind      OutcomeKind
	Intent    domain.PaymentIntent
	Reason    string
	ActionURL string
}

// CreateIntentInput holds the parameters for creating a payment intent.
// Amount is in minor units and must be positive.
type CreateIntentInput struct {
	Amount      int64
	Currency    string
	Description string
}

// ConfirmInput holds the parameters for confirming an intent.
type ConfirmInput struct {
	IntentID      string
	ClientSecret  string
	PaymentMethod string
}

// Processor is the interface payment processor integrations implement.
type Processor interface {
	// Name returns the processor name (e.g., "mock", "rest").
	Name() string

	// CreateIntent registers an intent for the amount with the processor.
	CreateIntent(ctx context.Context, input *CreateIntentInput) (*domain.PaymentIntent, error)

	// ConfirmIntent attempts the charge. A non-nil error means the request
	// never produced a classified outcome.
	ConfirmIntent(ctx context.Context, input *ConfirmInput) (*Outcome, error)
}
