// Package mock is an in-process payment processor for development and tests.
// Behavior is keyed on the amount's final two digits so any confirmation
// path can be exercised without a real processor.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/payment/processor"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

// Amount suffixes (cents) that trigger non-success outcomes.
const (
	suffixDeclined       = 2
	suffixRequiresAction = 3
	suffixTransient      = 4
)

// Processor is the mock payment processor. It keeps created intents in
// memory so confirmation can verify the intent exists and its secret
// matches.
type Processor struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
}

// NewProcessor creates a mock processor with no intents.
func NewProcessor() *Processor {
	return &Processor{intents: make(map[string]*domain.PaymentIntent)}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "mock"
}

// CreateIntent registers an intent. Non-positive amounts are rejected the
// way a real processor would reject them.
func (p *Processor) CreateIntent(_ context.Context, input *processor.CreateIntentInput) (*domain.PaymentIntent, error) {
	if input.Amount <= 0 {
		return nil, apperrors.InvalidInput("amount must be positive")
	}
	if input.Currency == "" {
		return nil, apperrors.InvalidInput("currency is required")
	}

	intent := &domain.PaymentIntent{
		ID:           "mock_pi_" + uuid.New().String(),
		Amount:       input.Amount,
		Currency:     input.Currency,
		Status:       domain.IntentStatusCreated,
		ClientSecret: "mock_secret_" + uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
	}

	p.mu.Lock()
	p.intents[intent.ID] = intent
	p.mu.Unlock()

	return cloneIntent(intent), nil
}

// ConfirmIntent resolves the outcome from the intent's amount suffix.
func (p *Processor) ConfirmIntent(_ context.Context, input *processor.ConfirmInput) (*processor.Outcome, error) {
	p.mu.Lock()
	intent, ok := p.intents[input.IntentID]
	p.mu.Unlock()

	if !ok {
		return &processor.Outcome{
			Kind:   processor.OutcomeValidationError,
			Reason: fmt.Sprintf("no such intent %s", input.IntentID),
		}, nil
	}
	if input.ClientSecret != intent.ClientSecret {
		return &processor.Outcome{
			Kind:   processor.OutcomeValidationError,
			Intent: *cloneIntent(intent),
			Reason: "client secret mismatch",
		}, nil
	}
	if input.PaymentMethod == "" {
		return &processor.Outcome{
			Kind:   processor.OutcomeValidationError,
			Intent: *cloneIntent(intent),
			Reason: "payment method is required",
		}, nil
	}

	switch intent.Amount % 100 {
	case suffixDeclined:
		p.setStatus(intent.ID, domain.IntentStatusFailed)
		return &processor.Outcome{
			Kind:   processor.OutcomeDeclined,
			Intent: *p.snapshot(intent.ID),
			Reason: "card declined",
		}, nil
	case suffixRequiresAction:
		p.setStatus(intent.ID, domain.IntentStatusRequiresAction)
		return &processor.Outcome{
			Kind:      processor.OutcomeRequiresAction,
			Intent:    *p.snapshot(intent.ID),
			ActionURL: "https://processor.example.com/challenge/" + intent.ID,
		}, nil
	case suffixTransient:
		// The attempt's fate is unknown; the intent status is untouched.
		return &processor.Outcome{
			Kind:   processor.OutcomeTransientError,
			Intent: *p.snapshot(intent.ID),
			Reason: "processor timeout",
		}, nil
	default:
		p.setStatus(intent.ID, domain.IntentStatusSucceeded)
		return &processor.Outcome{
			Kind:   processor.OutcomeSucceeded,
			Intent: *p.snapshot(intent.ID),
		}, nil
	}
}

func (p *Processor) setStatus(id, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if intent, ok := p.intents[id]; ok {
		intent.Status = status
	}
}

func (p *Processor) snapshot(id string) *domain.PaymentIntent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneIntent(p.intents[id])
}

func cloneIntent(intent *domain.PaymentIntent) *domain.PaymentIntent {
	cp := *intent
	return &cp
}
