// Package telemetry groups porthole's observability packages.
//
//   - logging: log/slog setup with token and API key redaction
//   - metrics: Prometheus collectors for proxy requests, port resolution,
//     token changes and registered supervisors
//   - tracing: OpenTelemetry spans exported over OTLP/gRPC
//   - health: liveness and readiness probes backed by Docker and state
//     backend pings
//
// Each subpackage is configured from the telemetry section of the
// configuration file and wired together by the server.
package telemetry
