package main

import (
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/porthole/pkg/config"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/supervisor/store"
	"mercator-hq/porthole/pkg/token"
)

// tokenPolicies parses the configured startup and shutdown policies.
func tokenPolicies(cfg *config.TokensConfig) (supervisor.Policies, error) {
	startup, err := token.ParseStartupPolicy(cfg.StartupPolicy)
	if err != nil {
		return supervisor.Policies{}, err
	}
	shutdown, err := token.ParseShutdownPolicy(cfg.ShutdownPolicy)
	if err != nil {
		return supervisor.Policies{}, err
	}
	return supervisor.Policies{Startup: startup, Shutdown: shutdown}, nil
}

// openBackend opens the configured supervisor state backend.
func openBackend(cfg *config.StateConfig) (store.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemoryBackend(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create state directory: %w", err)
			}
		}
		return store.NewSQLiteBackendWithConfig(store.SQLiteBackendConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported state backend %q", cfg.Backend)
	}
}

// openPersistentBackend opens the backend for offline commands, which only
// make sense against stored state.
func openPersistentBackend(cfg *config.StateConfig) (store.Backend, error) {
	if cfg.Backend == "memory" {
		return nil, fmt.Errorf("state backend %q keeps no state between runs", cfg.Backend)
	}
	return openBackend(cfg)
}
