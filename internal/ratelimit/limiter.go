package ratelimit

import (
	"context"
	"fmt"
	"log/slog"

	"seedfund/internal/audit"
)

// Limiter applies per-class limits over a Store.
type Limiter struct {
	store  Store
	limits map[EndpointClass]Limit
	logger *slog.Logger
	audit  *audit.Publisher
}

type Option func(*Limiter)

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(l *Limiter) { l.audit = p }
}

func WithLimits(limits map[EndpointClass]Limit) Option {
	return func(l *Limiter) { l.limits = limits }
}

func NewLimiter(store Store, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limits: DefaultLimits(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts one request for key against the class policy.
func (l *Limiter) Check(ctx context.Context, key string, class EndpointClass) (*Result, error) {
	limit, ok := l.limits[class]
	if !ok {
		return nil, fmt.Errorf("no limit configured for endpoint class %q", class)
	}
	result, err := l.store.Allow(ctx, string(class)+":"+key, limit.Requests, limit.Window)
	if err != nil {
		return nil, err
	}
	if !result.Allowed && l.audit != nil {
		l.audit.Emit(ctx, audit.Event{
			Action: audit.ActionRateLimitExceeded,
			Reason: string(class) + " limit for " + key,
		})
	}
	return result, nil
}

// ForClass adapts the limiter to the single-key decision point the zero-trust
// verifier consumes.
func (l *Limiter) ForClass(class EndpointClass) *ClassLimiter {
	return &ClassLimiter{limiter: l, class: class}
}

// ClassLimiter is a Limiter pinned to one endpoint class.
type ClassLimiter struct {
	limiter *Limiter
	class   EndpointClass
}

func (c *ClassLimiter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := c.limiter.Check(ctx, key, c.class)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}
