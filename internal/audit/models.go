// Package audit captures the append-only trail of funding-intake actions.
// Events fan out through a store interface so deployments can choose between
// in-process memory, or Kafka for downstream compliance pipelines.
package audit

import (
	"context"
	"time"
)

// Action names the auditable occurrences in the intake pipeline.
type Action string

const (
	ActionInvestorRegistered  Action = "investor_registered"
	ActionInvestmentInitiated Action = "investment_initiated"
	ActionPaymentConfirmed    Action = "payment_confirmed"
	ActionTokensMinted        Action = "tokens_minted"
	ActionAuthRejected        Action = "auth_rejected"
	ActionRateLimitExceeded   Action = "rate_limit_exceeded"
	ActionWebhookRejected     Action = "webhook_rejected"
)

// Event is emitted from domain logic to capture key actions. Amounts are
// decimal strings; audit events never carry binary floating point money.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	InvestorID    string    `json:"investor_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Rail          string    `json:"rail,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
}

// Store persists audit events. Implementations must be safe for concurrent
// appends.
type Store interface {
	Append(ctx context.Context, event Event) error
}
