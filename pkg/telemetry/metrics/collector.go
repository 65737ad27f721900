package metrics

import (
	"time"

	"mercator-hq/porthole/pkg/config"
	"mercator-hq/porthole/pkg/supervisor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every Porthole metric.
const Namespace = "porthole"

// Collector owns the Prometheus registry and every Porthole metric. It
// implements proxy.Recorder.
//
// All label values come from bounded sets (configured routes, fixed outcome
// and action names), so no cardinality limiting is needed.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	proxy *ProxyMetrics
	token *TokenMetrics
}

// NewCollector creates a collector and registers its metrics, plus the Go
// runtime and process collectors, on registry. A nil registry creates a
// private one.
//
// With cfg.Enabled false the collector still exists but records nothing.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = config.DefaultDurationBuckets
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,
		proxy:    NewProxyMetrics(buckets, registry),
		token:    NewTokenMetrics(registry),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// RecordProxyRequest records a finished proxy request. Requests that reached
// the forwarding step also feed the forward duration histogram.
func (c *Collector) RecordProxyRequest(route, outcome string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.proxy.RecordRequest(route, outcome, duration)
}

// RecordPortResolution records a port lookup result: "found", "not_found" or
// "error".
func (c *Collector) RecordPortResolution(result string) {
	if !c.enabled {
		return
	}

	c.proxy.RecordResolution(result)
}

// RecordTokenChange records a token change made through the token endpoint.
func (c *Collector) RecordTokenChange(action string) {
	if !c.enabled {
		return
	}

	c.token.RecordChange(action)
}

// WatchSupervisors exports the number of registered supervisors per kind,
// read from counter on every scrape.
func (c *Collector) WatchSupervisors(counter SupervisorCounter) {
	if !c.enabled || counter == nil {
		return
	}

	c.registry.MustRegister(newSupervisorCollector(counter))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SupervisorCounter reports supervisor counts. *supervisor.Registry
// implements it.
type SupervisorCounter interface {
	CountByKind() map[supervisor.Kind]int
}
