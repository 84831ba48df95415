package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the deposit counters and timings
type Metrics struct {
	Deposits *prometheus.CounterVec
	Errors   *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics registers with reg, or an unexported registry when reg is nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Deposits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sword",
			Name:      "deposits_total",
			Help:      "Deposits handled, by target type and response status",
		}, []string{"target", "status"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sword",
			Name:      "deposit_errors_total",
			Help:      "Failed deposits by SWORD error URI",
		}, []string{"uri"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sword",
			Name:      "deposit_duration_seconds",
			Help:      "Time spent processing a deposit",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
	}
}
