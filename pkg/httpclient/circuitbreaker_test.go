package httpclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func noRetryClient() *Client {
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 2 * time.Second
	return New(cfg)
}

func TestCircuitBreakerClient_PassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(noRetryClient(), DefaultCircuitBreakerConfig("test-ok"), testLogger())

	resp, err := cb.Post(context.Background(), srv.URL, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCircuitBreakerClient_OpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := DefaultCircuitBreakerConfig("test-trip")
	cfg.MinRequests = 3
	cfg.FailureRatio = 0.5
	cb := NewCircuitBreakerClient(noRetryClient(), cfg, testLogger())

	for i := 0; i < 3; i++ {
		resp, err := cb.Post(context.Background(), srv.URL, "application/json", nil)
		require.Error(t, err)
		require.Nil(t, resp)
	}

	// Breaker is open now; requests are rejected without hitting the server.
	before := calls.Load()
	_, err := cb.Post(context.Background(), srv.URL, "application/json", nil)
	require.Error(t, err)
	assert.True(t, cb.IsOpen(err))
	assert.Equal(t, before, calls.Load())
}

func TestCircuitBreakerClient_ClientErrorDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	cfg := DefaultCircuitBreakerConfig("test-4xx")
	cfg.MinRequests = 2
	cb := NewCircuitBreakerClient(noRetryClient(), cfg, testLogger())

	for i := 0; i < 5; i++ {
		resp, err := cb.Post(context.Background(), srv.URL, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	}
}
