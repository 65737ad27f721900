package main

import (
	"context"
	"path/filepath"
	"testing"

	"mercator-hq/porthole/pkg/config"
	"mercator-hq/porthole/pkg/supervisor/store"
	"mercator-hq/porthole/pkg/token"
)

func TestTokenPolicies(t *testing.T) {
	tests := []struct {
		name         string
		cfg          config.TokensConfig
		wantStartup  token.StartupPolicy
		wantShutdown token.ShutdownPolicy
		wantErr      bool
	}{
		{
			name:         "defaults",
			cfg:          config.TokensConfig{StartupPolicy: "disabled", ShutdownPolicy: "pass"},
			wantStartup:  token.StartupDisabled,
			wantShutdown: token.ShutdownPass,
		},
		{
			name:         "allow all and disable",
			cfg:          config.TokensConfig{StartupPolicy: "allow_all", ShutdownPolicy: "disable"},
			wantStartup:  token.StartupOpen,
			wantShutdown: token.ShutdownDisable,
		},
		{
			name:    "bad startup",
			cfg:     config.TokensConfig{StartupPolicy: "sometimes", ShutdownPolicy: "pass"},
			wantErr: true,
		},
		{
			name:    "bad shutdown",
			cfg:     config.TokensConfig{StartupPolicy: "random", ShutdownPolicy: "forget"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenPolicies(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("tokenPolicies() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Startup != tt.wantStartup || got.Shutdown != tt.wantShutdown {
				t.Errorf("tokenPolicies() = %+v, want startup %q shutdown %q", got, tt.wantStartup, tt.wantShutdown)
			}
		})
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		backend, err := openBackend(&config.StateConfig{Backend: "memory"})
		if err != nil {
			t.Fatalf("openBackend() error = %v", err)
		}
		defer backend.Close()
		if _, ok := backend.(*store.MemoryBackend); !ok {
			t.Errorf("openBackend() = %T, want *store.MemoryBackend", backend)
		}
	})

	t.Run("sqlite creates directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "state.db")
		backend, err := openBackend(&config.StateConfig{
			Backend: "sqlite",
			SQLite:  config.SQLiteConfig{Path: path},
		})
		if err != nil {
			t.Fatalf("openBackend() error = %v", err)
		}
		defer backend.Close()
		if err := backend.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := openBackend(&config.StateConfig{Backend: "etcd"}); err == nil {
			t.Error("openBackend() should reject unknown backends")
		}
	})
}

func TestOpenPersistentBackend_RejectsMemory(t *testing.T) {
	if _, err := openPersistentBackend(&config.StateConfig{Backend: "memory"}); err == nil {
		t.Error("openPersistentBackend() should reject the memory backend")
	}
}
