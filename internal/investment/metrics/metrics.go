package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InvestmentsInitiated *prometheus.CounterVec
	InvestmentsConfirmed *prometheus.CounterVec
	InvestmentsFailed    prometheus.Counter
	AmountRaisedUSD      prometheus.Counter
	TokensMinted         prometheus.Counter
	WebhooksRejected     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		InvestmentsInitiated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seedfund_investments_initiated_total",
			Help: "Total number of investments initiated, by payment rail",
		}, []string{"rail"}),
		InvestmentsConfirmed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seedfund_investments_confirmed_total",
			Help: "Total number of investments confirmed, by payment rail",
		}, []string{"rail"}),
		InvestmentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seedfund_investments_failed_total",
			Help: "Total number of investments marked failed",
		}),
		AmountRaisedUSD: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seedfund_amount_raised_usd_total",
			Help: "Cumulative confirmed contribution amount in USD",
		}),
		TokensMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seedfund_tokens_minted_total",
			Help: "Cumulative zUSDC quantity minted against the reserve",
		}),
		WebhooksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seedfund_webhooks_rejected_total",
			Help: "Total number of payment webhooks rejected, by provider",
		}, []string{"provider"}),
	}
}

func (m *Metrics) IncrementInitiated(rail string) {
	m.InvestmentsInitiated.WithLabelValues(rail).Inc()
}

func (m *Metrics) IncrementConfirmed(rail string, amountUSD, minted float64) {
	m.InvestmentsConfirmed.WithLabelValues(rail).Inc()
	m.AmountRaisedUSD.Add(amountUSD)
	m.TokensMinted.Add(minted)
}

func (m *Metrics) IncrementFailed() {
	m.InvestmentsFailed.Inc()
}

func (m *Metrics) IncrementWebhookRejected(provider string) {
	m.WebhooksRejected.WithLabelValues(provider).Inc()
}
