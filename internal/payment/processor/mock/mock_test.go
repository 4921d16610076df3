package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/payment/processor"
	apperrors "github.com/quickplate/storefront/pkg/errors"
)

func createIntent(t *testing.T, p *Processor, amount int64) *domain.PaymentIntent {
	t.Helper()
	intent, err := p.CreateIntent(context.Background(), &processor.CreateIntentInput{
		Amount:   amount,
		Currency: "USD",
	})
	require.NoError(t, err)
	return intent
}

func confirm(t *testing.T, p *Processor, intent *domain.PaymentIntent) *processor.Outcome {
	t.Helper()
	outcome, err := p.ConfirmIntent(context.Background(), &processor.ConfirmInput{
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		PaymentMethod: "pm_card_visa",
	})
	require.NoError(t, err)
	return outcome
}

func TestProcessor_CreateIntent(t *testing.T) {
	p := NewProcessor()

	intent := createIntent(t, p, 3955)
	assert.NotEmpty(t, intent.ID)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.Equal(t, int64(3955), intent.Amount)
	assert.Equal(t, domain.IntentStatusCreated, intent.Status)
}

func TestProcessor_CreateIntent_RejectsNonPositiveAmount(t *testing.T) {
	p := NewProcessor()

	for _, amount := range []int64{0, -100} {
		_, err := p.CreateIntent(context.Background(), &processor.CreateIntentInput{
			Amount:   amount,
			Currency: "USD",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestProcessor_ConfirmIntent_Outcomes(t *testing.T) {
	p := NewProcessor()

	cases := []struct {
		amount int64
		kind   processor.OutcomeKind
		status string
	}{
		{3955, processor.OutcomeSucceeded, domain.IntentStatusSucceeded},
		{1002, processor.OutcomeDeclined, domain.IntentStatusFailed},
		{1003, processor.OutcomeRequiresAction, domain.IntentStatusRequiresAction},
		{1004, processor.OutcomeTransientError, domain.IntentStatusCreated},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			intent := createIntent(t, p, tc.amount)
			outcome := confirm(t, p, intent)
			assert.Equal(t, tc.kind, outcome.Kind)
			assert.Equal(t, tc.status, outcome.Intent.Status)
		})
	}
}

func TestProcessor_ConfirmIntent_RequiresActionCarriesURL(t *testing.T) {
	p := NewProcessor()

	intent := createIntent(t, p, 1003)
	outcome := confirm(t, p, intent)
	assert.Equal(t, processor.OutcomeRequiresAction, outcome.Kind)
	assert.NotEmpty(t, outcome.ActionURL)
}

func TestProcessor_ConfirmIntent_TransientThenRetrySucceeds(t *testing.T) {
	p := NewProcessor()

	// Suffix 04 reports transient every time; the intent itself stays
	// confirmable. Create a fresh intent with a clean suffix to show the
	// same processor completes it.
	intent := createIntent(t, p, 1004)
	outcome := confirm(t, p, intent)
	assert.Equal(t, processor.OutcomeTransientError, outcome.Kind)

	intent = createIntent(t, p, 1000)
	outcome = confirm(t, p, intent)
	assert.Equal(t, processor.OutcomeSucceeded, outcome.Kind)
}

func TestProcessor_ConfirmIntent_ValidationErrors(t *testing.T) {
	p := NewProcessor()
	ctx := context.Background()
	intent := createIntent(t, p, 1000)

	outcome, err := p.ConfirmIntent(ctx, &processor.ConfirmInput{
		IntentID:      "pi_unknown",
		ClientSecret:  "whatever",
		PaymentMethod: "pm_card_visa",
	})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeValidationError, outcome.Kind)

	outcome, err = p.ConfirmIntent(ctx, &processor.ConfirmInput{
		IntentID:      intent.ID,
		ClientSecret:  "wrong",
		PaymentMethod: "pm_card_visa",
	})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeValidationError, outcome.Kind)

	outcome, err = p.ConfirmIntent(ctx, &processor.ConfirmInput{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	})
	require.NoError(t, err)
	assert.Equal(t, processor.OutcomeValidationError, outcome.Kind)
}
