package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	dErrors "seedfund/pkg/domain-errors"
	"seedfund/pkg/platform/httputil"
	"seedfund/pkg/requestcontext"
)

// Middleware enforces per-IP limits per endpoint class. A limiter backend
// failure fails open: availability of the funding surface wins over strict
// throttling.
func Middleware(limiter *Limiter, class EndpointClass, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = r.RemoteAddr
			}

			result, err := limiter.Check(ctx, ip, class)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed, failing open",
					"class", string(class),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
