package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(requests int, window time.Duration) *Limiter {
	return NewLimiter(NewInMemoryStore(), slog.New(slog.DiscardHandler), WithLimits(map[EndpointClass]Limit{
		ClassInvest: {Requests: requests, Window: window},
	}))
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "10.0.0.1", ClassInvest)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i)
		assert.Equal(t, 3-i-1, result.Remaining)
	}

	result, err := limiter.Check(ctx, "10.0.0.1", ClassInvest)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestLimiterIsolatesKeys(t *testing.T) {
	limiter := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	first, err := limiter.Check(ctx, "10.0.0.1", ClassInvest)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	other, err := limiter.Check(ctx, "10.0.0.2", ClassInvest)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "a saturated key must not throttle other keys")
}

func TestLimiterUnknownClass(t *testing.T) {
	limiter := newTestLimiter(1, time.Minute)
	_, err := limiter.Check(context.Background(), "10.0.0.1", ClassWebhook)
	assert.Error(t, err)
}

func TestSlidingWindowExpiry(t *testing.T) {
	limiter := newTestLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	result, err := limiter.Check(ctx, "k", ClassInvest)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = limiter.Check(ctx, "k", ClassInvest)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	time.Sleep(60 * time.Millisecond)

	result, err = limiter.Check(ctx, "k", ClassInvest)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "window should have slid past the first request")
}

func TestClassLimiterAdapter(t *testing.T) {
	limiter := newTestLimiter(1, time.Minute)
	adapter := limiter.ForClass(ClassInvest)
	ctx := context.Background()

	allowed, err := adapter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = adapter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMiddleware(t *testing.T) {
	limiter := newTestLimiter(1, time.Minute)
	logger := slog.New(slog.DiscardHandler)
	handler := Middleware(limiter, ClassInvest, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/invest/fiat", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}
