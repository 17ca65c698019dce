// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// inject them, all without pulling net/http into business logic.
package requestcontext

import (
	"context"
	"time"
)

type (
	investorIDKey  struct{}
	requestIDKey   struct{}
	clientIPKey    struct{}
	requestTimeKey struct{}
)

func WithInvestorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, investorIDKey{}, id)
}

// InvestorID returns the authenticated investor id, or "" when the request is
// unauthenticated.
func InvestorID(ctx context.Context) string {
	v, _ := ctx.Value(investorIDKey{}).(string)
	return v
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

// WithTime pins the request time, letting tests freeze the clock observed by
// downstream services.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
