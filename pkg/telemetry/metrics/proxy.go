package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// forwardOutcomes are the outcomes of requests that reached the target.
var forwardOutcomes = map[string]bool{
	"forwarded":       true,
	"transport_error": true,
}

// ProxyMetrics tracks the proxy pipeline.
//
// Metrics:
//   - porthole_proxy_requests_total: requests by route and outcome
//   - porthole_proxy_forward_duration_seconds: time spent on forwarded requests
//   - porthole_port_resolutions_total: port lookups by result
type ProxyMetrics struct {
	requestsTotal   *prometheus.CounterVec
	forwardDuration *prometheus.HistogramVec
	resolutions     *prometheus.CounterVec
}

// NewProxyMetrics creates and registers proxy metrics with the provided registry.
func NewProxyMetrics(buckets []float64, registry *prometheus.Registry) *ProxyMetrics {
	pm := &ProxyMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Total number of proxied requests by route and outcome",
			},
			[]string{"route", "outcome"},
		),

		forwardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "proxy",
				Name:      "forward_duration_seconds",
				Help:      "Duration of requests forwarded to containers in seconds",
				Buckets:   buckets,
			},
			[]string{"route"},
		),

		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "port_resolutions_total",
				Help:      "Total number of container port resolutions by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		pm.requestsTotal,
		pm.forwardDuration,
		pm.resolutions,
	)

	return pm
}

// RecordRequest records a finished request.
func (pm *ProxyMetrics) RecordRequest(route, outcome string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(route, outcome).Inc()

	if forwardOutcomes[outcome] {
		pm.forwardDuration.WithLabelValues(route).Observe(duration.Seconds())
	}
}

// RecordResolution records a port resolution result.
func (pm *ProxyMetrics) RecordResolution(result string) {
	pm.resolutions.WithLabelValues(result).Inc()
}
