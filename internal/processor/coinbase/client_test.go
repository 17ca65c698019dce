package coinbase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedfund/internal/investment"
)

func TestCreateChargeWithoutKeyUsesHostedURL(t *testing.T) {
	c := New("", slog.New(slog.DiscardHandler))

	url, err := c.CreateCharge(context.Background(), "tx-abc", decimal.RequireFromString("15000.00"), investment.AssetUSDC)
	require.NoError(t, err)
	assert.Equal(t, "https://commerce.coinbase.com/charges/tx-abc", url)
}

func TestCreateChargeCallsAPI(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-CC-Api-Key"))
		assert.Equal(t, apiVersion, r.Header.Get("X-CC-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"hosted_url":"https://commerce.coinbase.com/charges/CODE123"}}`))
	}))
	defer srv.Close()

	c := New("key-1", slog.New(slog.DiscardHandler), WithBaseURL(srv.URL))

	url, err := c.CreateCharge(context.Background(), "tx-abc", decimal.RequireFromString("15000.00"), investment.AssetETH)
	require.NoError(t, err)
	assert.Equal(t, "https://commerce.coinbase.com/charges/CODE123", url)

	price := got["local_price"].(map[string]any)
	assert.Equal(t, "15000.00", price["amount"])
	assert.Equal(t, "USD", price["currency"])
	meta := got["metadata"].(map[string]any)
	assert.Equal(t, "tx-abc", meta["transaction_id"])
	assert.Equal(t, "eth", meta["asset"])
}

func TestCreateChargeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("key-1", slog.New(slog.DiscardHandler), WithBaseURL(srv.URL))

	_, err := c.CreateCharge(context.Background(), "tx-abc", decimal.RequireFromString("15000.00"), investment.AssetBTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCreateChargeFallsBackWhenCircuitOpens(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("key-1", slog.New(slog.DiscardHandler), WithBaseURL(srv.URL))

	ctx := context.Background()
	amount := decimal.RequireFromString("15000.00")
	for i := 0; i < 5; i++ {
		_, err := c.CreateCharge(ctx, "tx-fail", amount, investment.AssetUSDC)
		require.Error(t, err)
	}
	require.Equal(t, 5, hits)

	// Circuit is open now: the client degrades to hosted urls without
	// touching the API.
	url, err := c.CreateCharge(ctx, "tx-after", amount, investment.AssetUSDC)
	require.NoError(t, err)
	assert.Equal(t, "https://commerce.coinbase.com/charges/tx-after", url)
	assert.Equal(t, 5, hits)
}
