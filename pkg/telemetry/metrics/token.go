package metrics

import "github.com/prometheus/client_golang/prometheus"

// TokenMetrics tracks proxy token changes.
//
// Metrics:
//   - porthole_token_changes_total: changes by action ("disabled", "allow_all", "random")
type TokenMetrics struct {
	changesTotal *prometheus.CounterVec
}

// NewTokenMetrics creates and registers token metrics with the provided registry.
func NewTokenMetrics(registry *prometheus.Registry) *TokenMetrics {
	tm := &TokenMetrics{
		changesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "token_changes_total",
				Help:      "Total number of proxy token changes by action",
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(tm.changesTotal)

	return tm
}

// RecordChange records one token change.
func (tm *TokenMetrics) RecordChange(action string) {
	tm.changesTotal.WithLabelValues(action).Inc()
}
