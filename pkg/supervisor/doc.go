// Package supervisor tracks the per-user objects that manage running
// containers, and persists their state across restarts.
//
// # Overview
//
// A Supervisor describes one user container: its owner identity, the
// container ID, the host address its ports are published on and, for
// tokenized supervisors, the proxy token guarding access to it. Supervisors
// come from a directory file maintained by the orchestrator and are held in a
// Registry, which the proxy queries per request:
//
//	registry := supervisor.NewRegistry(backend, supervisor.Policies{
//	    Startup:  token.StartupRandom,
//	    Shutdown: token.ShutdownPass,
//	})
//	dir := supervisor.NewDirectory("/etc/porthole/supervisors.yaml", registry)
//	if err := dir.Sync(ctx); err != nil {
//	    return err
//	}
//	go dir.Watch(ctx, 200*time.Millisecond)
//
// # Persistence
//
// Each supervisor saves a JSON state blob through a store.Backend. Loading a
// supervisor restores its token; when no token was ever saved the startup
// policy decides the initial mode. Removing a supervisor applies the shutdown
// policy and saves the result. A Snapshotter saves all supervisors on a cron
// schedule and once more on shutdown.
//
// # Thread Safety
//
// Registry, Directory and Snapshotter are safe for concurrent use. Supervisor
// fields are fixed once registered; only the token changes, under its own lock.
package supervisor
