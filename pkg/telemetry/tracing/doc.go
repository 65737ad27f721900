// Package tracing wires OpenTelemetry tracing for porthole.
//
// When telemetry.tracing.enabled is set, spans are batched to an OTLP/gRPC
// collector with a parent-based trace ID ratio sampler. Otherwise Start
// returns noop spans and nothing leaves the process.
//
// Spans emitted by the proxy:
//
//	proxy.request    one per proxied request, tagged with route and outcome
//	proxy.lookup     supervisor lookup by identity
//	proxy.resolve    container port resolution
//	proxy.authorize  proxy token decision
//	proxy.forward    the outbound call to the container
//	token.request    one per token endpoint call
//
// Middleware joins inbound traceparent headers, and the forwarder injects the
// current span into the request sent to the container.
package tracing
