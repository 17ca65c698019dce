package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"seedfund/internal/audit"
	"seedfund/internal/investment/metrics"
	dErrors "seedfund/pkg/domain-errors"
	"seedfund/pkg/platform/httputil"
)

// Webhook signature headers per provider.
const (
	HeaderCoinbaseSignature = "X-CC-Webhook-Signature"
	HeaderPlaidSignature    = "X-Plaid-Signature"
)

type PaymentService interface {
	ConfirmPayment(ctx context.Context, transactionID string) error
	FailPayment(ctx context.Context, transactionID, reason string) error
}

// WebhookHandler receives payment provider callbacks. Every webhook is
// authenticated by an HMAC over the raw body before any of it is parsed.
type WebhookHandler struct {
	service        PaymentService
	coinbaseSecret []byte
	plaidSecret    []byte
	logger         *slog.Logger
	audit          *audit.Publisher
	metrics        *metrics.Metrics
}

type WebhookOption func(*WebhookHandler)

func WithWebhookAuditPublisher(p *audit.Publisher) WebhookOption {
	return func(h *WebhookHandler) { h.audit = p }
}

func WithWebhookMetrics(m *metrics.Metrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

func NewWebhooks(service PaymentService, coinbaseSecret, plaidSecret string, logger *slog.Logger, opts ...WebhookOption) *WebhookHandler {
	h := &WebhookHandler{
		service:        service,
		coinbaseSecret: []byte(coinbaseSecret),
		plaidSecret:    []byte(plaidSecret),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/api/v1/webhooks/coinbase", h.HandleCoinbase)
	r.Post("/api/v1/webhooks/plaid", h.HandlePlaid)
}

// verifySignature checks the provider HMAC over the raw body. The comparison
// is constant time.
func verifySignature(secret []byte, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

func (h *WebhookHandler) reject(ctx context.Context, w http.ResponseWriter, provider, reason string) {
	h.logger.WarnContext(ctx, "webhook rejected",
		"provider", provider,
		"reason", reason,
	)
	if h.audit != nil {
		h.audit.Emit(ctx, audit.Event{
			Action: audit.ActionWebhookRejected,
			Reason: provider + ": " + reason,
		})
	}
	if h.metrics != nil {
		h.metrics.IncrementWebhookRejected(provider)
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
}

type coinbaseEvent struct {
	Event struct {
		Type string `json:"type"`
		Data struct {
			Metadata struct {
				TransactionID string `json:"transaction_id"`
			} `json:"metadata"`
		} `json:"data"`
	} `json:"event"`
}

func (h *WebhookHandler) HandleCoinbase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.reject(ctx, w, "coinbase", "unreadable body")
		return
	}
	if !verifySignature(h.coinbaseSecret, body, r.Header.Get(HeaderCoinbaseSignature)) {
		h.reject(ctx, w, "coinbase", "signature mismatch")
		return
	}

	var event coinbaseEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed webhook payload"))
		return
	}

	txID := event.Event.Data.Metadata.TransactionID
	switch event.Event.Type {
	case "charge:confirmed":
		err = h.service.ConfirmPayment(ctx, txID)
	case "charge:failed":
		err = h.service.FailPayment(ctx, txID, "charge failed")
	default:
		// Intermediate charge states carry no settlement decision.
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "coinbase webhook processing failed",
			"transaction_id", txID,
			"event_type", event.Event.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

type plaidEvent struct {
	WebhookType   string `json:"webhook_type"`
	WebhookCode   string `json:"webhook_code"`
	TransactionID string `json:"transfer_id"`
}

func (h *WebhookHandler) HandlePlaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.reject(ctx, w, "plaid", "unreadable body")
		return
	}
	if !verifySignature(h.plaidSecret, body, r.Header.Get(HeaderPlaidSignature)) {
		h.reject(ctx, w, "plaid", "signature mismatch")
		return
	}

	var event plaidEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed webhook payload"))
		return
	}

	switch event.WebhookCode {
	case "settled", "posted":
		err = h.service.ConfirmPayment(ctx, event.TransactionID)
	case "failed", "returned":
		err = h.service.FailPayment(ctx, event.TransactionID, "ach "+event.WebhookCode)
	default:
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "plaid webhook processing failed",
			"transfer_id", event.TransactionID,
			"webhook_code", event.WebhookCode,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
