package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsVerified prometheus.Counter
	RequestsRejected *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RequestsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "seedfund_zerotrust_requests_verified_total",
			Help: "Total number of requests that passed full zero-trust verification",
		}),
		RequestsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "seedfund_zerotrust_requests_rejected_total",
			Help: "Total number of requests rejected by the zero-trust pipeline, by gate",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncrementVerified() {
	m.RequestsVerified.Inc()
}

func (m *Metrics) IncrementRejected(kind string) {
	m.RequestsRejected.WithLabelValues(kind).Inc()
}
