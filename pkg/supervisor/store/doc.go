// Package store provides persistence backends for supervisor state.
//
// # Overview
//
// Each supervisor owns a JSON state blob (container ID, proxy token and any
// other spawner fields). Backends store one blob per (identity, supervisor)
// pair:
//
//   - Memory: in-process map, lost on exit (tests and single-shot runs)
//   - SQLite: file-backed, survives restarts
//
// # Usage
//
//	backend, err := store.NewSQLiteBackend("/var/lib/porthole/state.db")
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	err = backend.Save(ctx, &store.Record{
//	    Identity:   "alice",
//	    Supervisor: "",
//	    State:      map[string]any{"container_id": "3f2a", "proxy_token": nil},
//	})
//
//	rec, err := backend.Load(ctx, "alice", "")
//	// rec == nil when nothing was saved
//
// Deleting a record makes the next load behave like a first start, so the
// startup token policy applies again.
//
// # Thread Safety
//
// All backends are safe for concurrent use.
package store
