// Package metrics exposes Porthole's Prometheus metrics.
//
// # Metrics
//
//	porthole_proxy_requests_total{route,outcome}       counter
//	porthole_proxy_forward_duration_seconds{route}     histogram
//	porthole_port_resolutions_total{result}            counter
//	porthole_token_changes_total{action}               counter
//	porthole_supervisors{kind}                         gauge, computed per scrape
//
// The Go runtime and process collectors are registered alongside.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.WatchSupervisors(registry)
//
//	pipeline := proxy.NewPipeline(route, registry, resolver, forwarder,
//	    proxy.WithRecorder(collector))
//
//	mux.Handle("/metrics", collector.Handler())
package metrics
