// Package health serves liveness and readiness probes for porthole.
//
// Liveness only confirms the process is answering HTTP. Readiness runs the
// registered component checks concurrently, each bounded by the configured
// check timeout. The server registers two checks:
//
//   - docker: pings the Docker Engine used to resolve container port mappings
//   - state: pings the supervisor state backend (memory or SQLite)
//
// Usage:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("docker", health.PingCheck(inspector))
//	checker.RegisterCheck("state", health.PingCheck(backend))
//	checker.Register(mux, "/health", "/ready")
package health
