// Package rest talks to an external payment processor over its REST API.
// Intent creation retries freely; it is idempotent on the processor side.
// Confirmation never retries automatically: a lost response does not mean a
// lost charge, so the attempt is reported as transient and left to the
// customer.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/quickplate/storefront/internal/domain"
	"github.com/quickplate/storefront/internal/payment/processor"
	apperrors "github.com/quickplate/storefront/pkg/errors"
	"github.com/quickplate/storefront/pkg/httpclient"
)

// Config holds the REST processor connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Processor implements processor.Processor against a remote REST API.
// Create and confirm traffic run through separate circuit breakers because
// their retry policies differ.
type Processor struct {
	create  *httpclient.CircuitBreakerClient
	confirm *httpclient.CircuitBreakerClient
	cfg     Config
	logger  *slog.Logger
}

// NewProcessor creates a REST payment processor adapter.
func NewProcessor(cfg Config, logger *slog.Logger) *Processor {
	createCfg := httpclient.DefaultConfig()
	createCfg.Timeout = cfg.Timeout

	confirmCfg := httpclient.DefaultConfig()
	confirmCfg.Timeout = cfg.Timeout
	confirmCfg.MaxRetries = 0

	return &Processor{
		create: httpclient.NewCircuitBreakerClient(
			httpclient.New(createCfg),
			httpclient.DefaultCircuitBreakerConfig("payment-intent-create"),
			logger,
		),
		confirm: httpclient.NewCircuitBreakerClient(
			httpclient.New(confirmCfg),
			httpclient.DefaultCircuitBreakerConfig("payment-intent-confirm"),
			logger,
		),
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "rest"
}

type intentPayload struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent registers an intent with the processor.
func (p *Processor) CreateIntent(ctx context.Context, input *processor.CreateIntentInput) (*domain.PaymentIntent, error) {
	if input.Amount <= 0 {
		return nil, apperrors.InvalidInput("amount must be positive")
	}

	body, err := json.Marshal(map[string]any{
		"amount":      input.Amount,
		"currency":    input.Currency,
		"description": input.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create intent request: %w", err)
	}

	resp, err := p.post(ctx, p.create, p.cfg.BaseURL+"/v1/payment_intents", body)
	if err != nil {
		if p.create.IsOpen(err) {
			return nil, apperrors.PaymentUnavailable("payment processor circuit open")
		}
		return nil, apperrors.PaymentUnavailable(fmt.Sprintf("create intent: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var payload intentPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode create intent response: %w", err)
		}
		return &domain.PaymentIntent{
			ID:           payload.ID,
			Amount:       payload.Amount,
			Currency:     payload.Currency,
			Status:       payload.Status,
			ClientSecret: payload.ClientSecret,
			CreatedAt:    time.Now().UTC(),
		}, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, apperrors.InvalidInput(readErrorMessage(resp.Body))
	default:
		return nil, apperrors.PaymentUnavailable(fmt.Sprintf("create intent: unexpected status %d", resp.StatusCode))
	}
}

type confirmPayload struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	NextActionURL string `json:"next_action_url"`
	DeclineReason string `json:"decline_reason"`
}

// ConfirmIntent attempts the charge exactly once. Transport failures, 5xx
// responses and an open breaker all map to a transient outcome because the
// charge may or may not have landed.
func (p *Processor) ConfirmIntent(ctx context.Context, input *processor.ConfirmInput) (*processor.Outcome, error) {
	body, err := json.Marshal(map[string]any{
		"client_secret":  input.ClientSecret,
		"payment_method": input.PaymentMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal confirm request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", p.cfg.BaseURL, input.IntentID)
	resp, err := p.post(ctx, p.confirm, url, body)
	if err != nil {
		reason := "payment processor unreachable"
		if p.confirm.IsOpen(err) {
			reason = "payment processor circuit open"
		}
		p.logger.WarnContext(ctx, "payment confirmation did not complete",
			slog.String("intent_id", input.IntentID),
			slog.String("error", err.Error()))
		return &processor.Outcome{Kind: processor.OutcomeTransientError, Reason: reason}, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload confirmPayload
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			// The charge may have landed; only the response was lost.
			return &processor.Outcome{
				Kind:   processor.OutcomeTransientError,
				Reason: "unreadable confirmation response",
			}, nil
		}
		intent := domain.PaymentIntent{
			ID:       payload.ID,
			Amount:   payload.Amount,
			Currency: payload.Currency,
			Status:   payload.Status,
		}
		switch payload.Status {
		case domain.IntentStatusSucceeded:
			return &processor.Outcome{Kind: processor.OutcomeSucceeded, Intent: intent}, nil
		case domain.IntentStatusRequiresAction:
			return &processor.Outcome{
				Kind:      processor.OutcomeRequiresAction,
				Intent:    intent,
				ActionURL: payload.NextActionURL,
			}, nil
		case domain.IntentStatusFailed:
			return &processor.Outcome{
				Kind:   processor.OutcomeDeclined,
				Intent: intent,
				Reason: payload.DeclineReason,
			}, nil
		default:
			return &processor.Outcome{
				Kind:   processor.OutcomeTransientError,
				Intent: intent,
				Reason: fmt.Sprintf("unknown intent status %q", payload.Status),
			}, nil
		}
	case http.StatusPaymentRequired:
		return &processor.Outcome{
			Kind:   processor.OutcomeDeclined,
			Reason: readErrorMessage(resp.Body),
		}, nil
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return &processor.Outcome{
			Kind:   processor.OutcomeValidationError,
			Reason: readErrorMessage(resp.Body),
		}, nil
	default:
		return &processor.Outcome{
			Kind:   processor.OutcomeTransientError,
			Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}, nil
	}
}

func (p *Processor) post(ctx context.Context, client *httpclient.CircuitBreakerClient, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	return client.Do(ctx, req)
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil {
		return "processor error"
	}
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if s := string(bytes.TrimSpace(data)); s != "" {
		return s
	}
	return "processor error"
}
