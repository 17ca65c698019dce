package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seedfund/internal/investment"
	"seedfund/internal/investment/service"
	"seedfund/internal/investment/store"
	"seedfund/internal/ledger"
	"seedfund/internal/treasury"
)

const (
	testCoinbaseSecret = "cb-secret"
	testPlaidSecret    = "plaid-secret"
)

func newWebhookRouter(t *testing.T) (*chi.Mux, *service.Service, *ledger.InMemoryLedger) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	ldgr := ledger.NewInMemoryLedger()
	svc := service.New(store.NewInMemoryStore(), ldgr, treasury.DefaultConfig(), logger)
	h := NewWebhooks(svc, testCoinbaseSecret, testPlaidSecret, logger)

	r := chi.NewRouter()
	h.Register(r)
	return r, svc, ldgr
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(r http.Handler, path, header, signature string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(header, signature)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCoinbaseWebhookConfirms(t *testing.T) {
	r, svc, ldgr := newWebhookRouter(t)

	inv, err := svc.InitiateCrypto(context.Background(), "inv-1", decimal.RequireFromString("10000.00"), investment.AssetUSDC)
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(
		`{"event":{"type":"charge:confirmed","data":{"metadata":{"transaction_id":%q}}}}`,
		inv.TransactionID))
	rec := postWebhook(r, "/api/v1/webhooks/coinbase", HeaderCoinbaseSignature, sign(testCoinbaseSecret, body), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "processed")

	got, err := svc.Status(context.Background(), "inv-1", inv.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, investment.StatusConfirmed, got.Status)
	assert.True(t, ldgr.TotalMinted().Equal(decimal.RequireFromString("1000")))
}

func TestCoinbaseWebhookBadSignature(t *testing.T) {
	r, svc, ldgr := newWebhookRouter(t)

	inv, err := svc.InitiateCrypto(context.Background(), "inv-1", decimal.RequireFromString("10000.00"), investment.AssetUSDC)
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(
		`{"event":{"type":"charge:confirmed","data":{"metadata":{"transaction_id":%q}}}}`,
		inv.TransactionID))

	rec := postWebhook(r, "/api/v1/webhooks/coinbase", HeaderCoinbaseSignature, sign("wrong-secret", body), body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postWebhook(r, "/api/v1/webhooks/coinbase", HeaderCoinbaseSignature, "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Nothing settled, nothing minted.
	got, err := svc.Status(context.Background(), "inv-1", inv.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, investment.StatusPending, got.Status)
	assert.True(t, ldgr.TotalMinted().IsZero())
}

func TestCoinbaseWebhookTamperedBody(t *testing.T) {
	r, _, _ := newWebhookRouter(t)

	body := []byte(`{"event":{"type":"charge:confirmed","data":{"metadata":{"transaction_id":"tx-1"}}}}`)
	signature := sign(testCoinbaseSecret, body)
	tampered := bytes.Replace(body, []byte("tx-1"), []byte("tx-2"), 1)

	rec := postWebhook(r, "/api/v1/webhooks/coinbase", HeaderCoinbaseSignature, signature, tampered)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCoinbaseWebhookRedelivery(t *testing.T) {
	r, svc, ldgr := newWebhookRouter(t)

	inv, err := svc.InitiateCrypto(context.Background(), "inv-1", decimal.RequireFromString("10000.00"), investment.AssetUSDC)
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(
		`{"event":{"type":"charge:confirmed","data":{"metadata":{"transaction_id":%q}}}}`,
		inv.TransactionID))
	signature := sign(testCoinbaseSecret, body)

	for i := 0; i < 3; i++ {
		rec := postWebhook(r, "/api/v1/webhooks/coinbase", HeaderCoinbaseSignature, signature, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.True(t, ldgr.TotalMinted().Equal(decimal.RequireFromString("1000")), "redelivery must not double-mint")
}

func TestCoinbaseWebhookIgnoresIntermediateStates(t *testing.T) {
	r, _, _ := newWebhookRouter(t)

	body := []byte(`{"event":{"type":"charge:pending","data":{"metadata":{"transaction_id":"tx-1"}}}}`)
	rec := postWebhook(r, "/api/v1/webhooks/coinbase", HeaderCoinbaseSignature, sign(testCoinbaseSecret, body), body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestPlaidWebhookSettles(t *testing.T) {
	r, svc, _ := newWebhookRouter(t)

	inv, err := svc.InitiateFiat(context.Background(), "inv-1", decimal.RequireFromString("10000.00"), investment.MethodACH)
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"webhook_type":"TRANSFER","webhook_code":"settled","transfer_id":%q}`, inv.TransactionID))
	rec := postWebhook(r, "/api/v1/webhooks/plaid", HeaderPlaidSignature, sign(testPlaidSecret, body), body)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := svc.Status(context.Background(), "inv-1", inv.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, investment.StatusConfirmed, got.Status)
}

func TestPlaidWebhookReturnFailsTransaction(t *testing.T) {
	r, svc, _ := newWebhookRouter(t)

	inv, err := svc.InitiateFiat(context.Background(), "inv-1", decimal.RequireFromString("10000.00"), investment.MethodACH)
	require.NoError(t, err)

	body := []byte(fmt.Sprintf(`{"webhook_type":"TRANSFER","webhook_code":"returned","transfer_id":%q}`, inv.TransactionID))
	rec := postWebhook(r, "/api/v1/webhooks/plaid", HeaderPlaidSignature, sign(testPlaidSecret, body), body)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := svc.Status(context.Background(), "inv-1", inv.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, investment.StatusFailed, got.Status)
}

func TestPlaidWebhookBadSignature(t *testing.T) {
	r, _, _ := newWebhookRouter(t)

	body := []byte(`{"webhook_type":"TRANSFER","webhook_code":"settled","transfer_id":"tx-1"}`)
	rec := postWebhook(r, "/api/v1/webhooks/plaid", HeaderPlaidSignature, sign("wrong", body), body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
