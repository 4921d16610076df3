// Package payment coordinates payment attempts against a processor. One
// checkout attempt holds exactly one intent; re-rendering or re-submitting
// reuses it rather than creating a parallel charge path.
package payment

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/payment/processor"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

var confirmationOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_payment_outcomes_total",
		Help: "Total number of payment confirmation outcomes by kind",
	},
	[]string{"outcome"},
)

// Orchestrator owns the intent lifecycle for in-flight checkout attempts.
// It never retries a confirmation and never reports success it was not told.
type Orchestrator struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent

	proc   processor.Processor
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator over the given processor.
func NewOrchestrator(proc processor.Processor, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		intents: make(map[string]*domain.PaymentIntent),
		proc:    proc,
		logger:  logger,
	}
}

// IntentFor returns the attempt's intent, creating it on first call. A
// repeated call with the same amount returns the cached intent; a changed
// amount means the cart changed under the attempt, so a fresh intent
// replaces the stale one.
func (o *Orchestrator) IntentFor(ctx context.Context, attemptID string, amount int64, currency, description string) (*domain.PaymentIntent, error) {
	if amount <= 0 {
		return nil, apperrors.InvalidInput("payment amount must be positive")
	}

	o.mu.Lock()
	cached, ok := o.intents[attemptID]
	o.mu.Unlock()
	if ok && cached.Amount == amount && cached.Currency == currency {
		return cached, nil
	}

	intent, err := o.proc.CreateIntent(ctx, &processor.CreateIntentInput{
		Amount:      amount,
		Currency:    currency,
		Description: description,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "create payment intent")
	}

	o.mu.Lock()
	o.intents[attemptID] = intent
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "payment intent created",
		slog.String("attempt_id", attemptID),
		slog.String("intent_id", intent.ID),
		slog.Int64("amount", amount))
	return intent, nil
}

// Confirm submits the attempt's intent with the customer's payment method,
// exactly once. Terminal outcomes release the intent; RequiresAction and
// TransientError keep it so the same intent is confirmed again.
func (o *Orchestrator) Confirm(ctx context.Context, attemptID, paymentMethod string) (*processor.Outcome, error) {
	o.mu.Lock()
	intent, ok := o.intents[attemptID]
	o.mu.Unlock()
	if !ok {
		return nil, apperrors.InvalidInput("no payment intent for this attempt")
	}
	if paymentMethod == "" {
		return nil, apperrors.InvalidInput("payment method is required")
	}

	outcome, err := o.proc.ConfirmIntent(ctx, &processor.ConfirmInput{
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "confirm payment intent")
	}

	confirmationOutcomes.WithLabelValues(string(outcome.Kind)).Inc()

	switch outcome.Kind {
	case processor.OutcomeSucceeded, processor.OutcomeDeclined, processor.OutcomeValidationError:
		o.Release(attemptID)
	}

	o.logger.InfoContext(ctx, "payment confirmation outcome",
		slog.String("attempt_id", attemptID),
		slog.String("intent_id", intent.ID),
		slog.String("outcome", string(outcome.Kind)))
	return outcome, nil
}

// Release drops the attempt's cached intent, if any.
func (o *Orchestrator) Release(attemptID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.intents, attemptID)
}
