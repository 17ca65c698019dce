// Package httptransport assembles the full route table. Handlers register
// themselves; this layer only decides which middleware guards which group.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	investmenthandler "seedfund/internal/investment/handler"
	investorhandler "seedfund/internal/investor/handler"
	"seedfund/internal/platform/metrics"
	"seedfund/internal/platform/middleware"
	"seedfund/internal/ratelimit"
	"seedfund/internal/zerotrust"
	"seedfund/pkg/platform/httputil"
	"seedfund/pkg/platform/middleware/requesttime"
)

type Deps struct {
	Logger      *slog.Logger
	HTTPMetrics *metrics.Metrics
	Verifier    *zerotrust.Verifier
	Limiter     *ratelimit.Limiter
	Investors   *investorhandler.Handler
	Investments *investmenthandler.Handler
	Webhooks    *investmenthandler.WebhookHandler
}

// NewRouter wires all public endpoints. Registration and reads are open but
// throttled; the investment rails sit behind the zero-trust middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(d.Logger))
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware)
	}

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(d.Limiter, ratelimit.ClassRegister, d.Logger))
		d.Investors.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(d.Limiter, ratelimit.ClassRead, d.Logger))
		d.Investments.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(d.Limiter, ratelimit.ClassWebhook, d.Logger))
		d.Webhooks.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(zerotrust.Middleware(d.Verifier))
		d.Investments.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
