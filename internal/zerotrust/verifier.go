// Package zerotrust implements the request verification pipeline every
// state-mutating endpoint sits behind. No implicit trust: each request proves
// who sent it, that it is fresh, that the body is exactly what was signed,
// and that the sender is cleared to transact. Network position counts for
// nothing.
package zerotrust

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"seedfund/internal/compliance"
	"seedfund/internal/credential"
	"seedfund/internal/zerotrust/metrics"
	"seedfund/pkg/platform/sentinel"
	"seedfund/pkg/requestcontext"
)

const (
	// DefaultReplayWindow bounds how far a request timestamp may drift from
	// server time, in either direction.
	DefaultReplayWindow = 300 * time.Second
	// DefaultLookupTimeout caps the compliance lookup. A timeout is a
	// verification failure, never an implicit pass.
	DefaultLookupTimeout = 3 * time.Second

	bearerPrefix = "Bearer "
)

// Input is the ephemeral per-request verification context. Body must be the
// untouched wire bytes; re-serialization before verification breaks the
// signature.
type Input struct {
	Authorization string
	Signature     string
	Timestamp     string
	Body          []byte
}

// Principal is the output of successful verification: the proven investor id
// plus the compliance snapshot that authorized it.
type Principal struct {
	InvestorID string
	Compliance compliance.Record
}

// CredentialVerifier validates the bearer credential and returns its claims.
type CredentialVerifier interface {
	Verify(token string) (*credential.Claims, error)
}

// RateLimiter is the abuse-control decision point consulted before any
// signature computation, so floods never cost crypto work.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Verifier runs the gate sequence. It holds no per-request state and is safe
// for concurrent use.
type Verifier struct {
	credentials   CredentialVerifier
	compliance    compliance.Source
	limiter       RateLimiter
	signingSecret []byte
	window        time.Duration
	lookupTimeout time.Duration
	now           func() time.Time
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Verifier)

func WithRateLimiter(l RateLimiter) Option {
	return func(v *Verifier) { v.limiter = l }
}

func WithReplayWindow(w time.Duration) Option {
	return func(v *Verifier) { v.window = w }
}

func WithLookupTimeout(d time.Duration) Option {
	return func(v *Verifier) { v.lookupTimeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithClock overrides the wall clock for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New builds a Verifier. signingSecret is the request-integrity HMAC secret
// and is deliberately distinct from the credential keys so the two can rotate
// independently.
func New(credentials CredentialVerifier, source compliance.Source, signingSecret []byte, logger *slog.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		credentials:   credentials,
		compliance:    source,
		signingSecret: signingSecret,
		window:        DefaultReplayWindow,
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the full gate sequence. Each gate is a hard stop: the first
// failure wins and later gates never execute, so a rejection leaks nothing
// about what the later gates would have said.
func (v *Verifier) Verify(ctx context.Context, in Input) (*Principal, error) {
	if authErr := v.checkRateLimit(ctx); authErr != nil {
		return nil, v.reject(ctx, authErr, "")
	}

	token, ok := strings.CutPrefix(in.Authorization, bearerPrefix)
	if !ok || token == "" {
		return nil, v.reject(ctx, newAuthError(KindMalformedCredential, "missing or malformed bearer credential"), "")
	}

	claims, err := v.credentials.Verify(token)
	if err != nil {
		kind := KindInvalidCredential
		if errors.Is(err, credential.ErrExpired) {
			kind = KindCredentialExpired
		}
		return nil, v.reject(ctx, newAuthError(kind, err.Error()), "")
	}
	investorID := claims.Subject

	ts, err := time.Parse(time.RFC3339, in.Timestamp)
	if err != nil {
		return nil, v.reject(ctx, newAuthError(KindMalformedTimestamp, "timestamp is not a valid RFC 3339 instant"), investorID)
	}
	if skew := v.now().Sub(ts); skew > v.window || skew < -v.window {
		return nil, v.reject(ctx, newAuthError(KindStaleRequest, "request timestamp outside replay window"), investorID)
	}

	expected := ComputeSignature(v.signingSecret, investorID, in.Timestamp, in.Body)
	if !hmac.Equal([]byte(expected), []byte(in.Signature)) {
		return nil, v.reject(ctx, newAuthError(KindSignatureMismatch, "request body signature mismatch"), investorID)
	}

	record, authErr := v.lookupCompliance(ctx, investorID)
	if authErr != nil {
		return nil, v.reject(ctx, authErr, investorID)
	}

	if v.metrics != nil {
		v.metrics.IncrementVerified()
	}
	return &Principal{InvestorID: investorID, Compliance: record}, nil
}

// checkRateLimit consults the limiter keyed by client IP. A limiter backend
// failure fails open with a log line; a deny short-circuits the pipeline.
func (v *Verifier) checkRateLimit(ctx context.Context) *AuthError {
	if v.limiter == nil {
		return nil
	}
	key := requestcontext.ClientIP(ctx)
	allowed, err := v.limiter.Allow(ctx, key)
	if err != nil {
		v.logger.ErrorContext(ctx, "rate limiter unavailable, failing open",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	if !allowed {
		return newAuthError(KindRateLimited, "rate limit exceeded")
	}
	return nil
}

func (v *Verifier) lookupCompliance(ctx context.Context, investorID string) (compliance.Record, *AuthError) {
	lctx, cancel := context.WithTimeout(ctx, v.lookupTimeout)
	defer cancel()

	record, err := v.compliance.Lookup(lctx, investorID)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return compliance.Record{}, newAuthError(KindUnknownPrincipal, "no compliance record for subject")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return compliance.Record{}, newAuthError(KindComplianceLookupTimeout, "compliance lookup timed out")
	default:
		// Fail closed: an unreadable verdict is not a pass.
		return compliance.Record{}, newAuthError(KindComplianceLookupTimeout, "compliance lookup failed: "+err.Error())
	}

	if record.KYC != compliance.KYCVerified {
		return compliance.Record{}, newAuthError(KindComplianceIncomplete, "kyc status "+string(record.KYC))
	}
	if record.AML == compliance.AMLFlagged {
		return compliance.Record{}, newAuthError(KindComplianceBlocked, "aml status flagged")
	}
	return record, nil
}

// reject logs and counts the failure with full internal detail, then returns
// the error for the transport layer to collapse.
func (v *Verifier) reject(ctx context.Context, authErr *AuthError, investorID string) *AuthError {
	attrs := []any{
		"kind", string(authErr.Kind),
		"request_id", requestcontext.RequestID(ctx),
	}
	if investorID != "" {
		attrs = append(attrs, "investor_id", investorID)
	}
	v.logger.WarnContext(ctx, "request verification rejected", attrs...)
	if v.metrics != nil {
		v.metrics.IncrementRejected(string(authErr.Kind))
	}
	return authErr
}

// ComputeSignature produces the hex HMAC-SHA256 request signature over
// {subject}:{timestamp}:{hex(body)}. Clients sign the exact wire bytes; any
// re-serialization in between invalidates the signature.
func ComputeSignature(secret []byte, investorID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(investorID))
	mac.Write([]byte(":"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write([]byte(hex.EncodeToString(body)))
	return hex.EncodeToString(mac.Sum(nil))
}
