// Package coinbase integrates Coinbase Commerce as the crypto payment
// processor. Charges are created per transaction; confirmation arrives via
// signed webhook.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"seedfund/internal/investment"
	"seedfund/pkg/platform/circuit"
)

const (
	defaultBaseURL = "https://api.commerce.coinbase.com"
	hostedBaseURL  = "https://commerce.coinbase.com/charges/"
	apiVersion     = "2018-03-22"
)

// Client creates Commerce charges. Without an API key it degrades to the
// hosted charge URL keyed by transaction id, which keeps local and test
// environments off the network.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuit.Breaker
}

type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:  logger,
		breaker: circuit.New("coinbase-commerce"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  localPrice        `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
}

type localPrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type chargeResponse struct {
	Data struct {
		HostedURL string `json:"hosted_url"`
	} `json:"data"`
}

// CreateCharge opens a hosted payment page for the transaction and returns
// its URL.
func (c *Client) CreateCharge(ctx context.Context, transactionID string, amountUSD decimal.Decimal, asset investment.CryptoAsset) (string, error) {
	if c.apiKey == "" {
		c.logger.DebugContext(ctx, "no commerce api key configured, using hosted charge url",
			"transaction_id", transactionID,
		)
		return hostedBaseURL + transactionID, nil
	}
	if c.breaker.IsOpen() {
		c.logger.WarnContext(ctx, "commerce circuit open, using hosted charge url",
			"transaction_id", transactionID,
		)
		return hostedBaseURL + transactionID, nil
	}

	payload, err := json.Marshal(chargeRequest{
		Name:        "Seed Fund Contribution",
		Description: "Contribution " + transactionID,
		PricingType: "fixed_price",
		LocalPrice:  localPrice{Amount: amountUSD.StringFixed(2), Currency: "USD"},
		Metadata: map[string]string{
			"transaction_id": transactionID,
			"asset":          string(asset),
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode charge request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return "", fmt.Errorf("create charge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		c.recordFailure(ctx)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("create charge: unexpected status %d: %s", resp.StatusCode, body)
	}
	c.breaker.RecordSuccess()

	var decoded chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode charge response: %w", err)
	}
	if decoded.Data.HostedURL == "" {
		return "", fmt.Errorf("charge response missing hosted url")
	}
	return decoded.Data.HostedURL, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.ErrorContext(ctx, "commerce circuit opened, charges fall back to hosted urls")
	}
}

