// Package portmap resolves the host port currently bound to a port inside a
// user container.
//
// # Overview
//
// Container ports are published on dynamically assigned host ports, and the
// assignment can change every time a container restarts. A Resolver asks the
// container runtime, through an Inspector, for the live binding table and
// picks the entry that belongs to the supervisor's host address:
//
//	resolver := portmap.NewResolver(inspector)
//	endpoint, err := resolver.Resolve(ctx, target, 8888)
//	if errors.Is(err, portmap.ErrNoMapping) {
//	    // container still starting, or the port is not published
//	}
//	target := endpoint.URL("/api/status", "verbose=1")
//
// Results are never cached and lookups are never retried: every call reflects
// the runtime's state at that instant.
package portmap
