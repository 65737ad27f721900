package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "porthole.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:8080"
  read_timeout: "60s"

proxy:
  routes:
    - prefix: /proxy
      port: 5000
    - prefix: /proxy8888
      port: 8888
  forward_timeout: 15s

tokens:
  startup_policy: allow_all
  shutdown_policy: disable

state:
  backend: memory

security:
  api_keys:
    - key: "key-alice"
      identity: alice
    - key: "key-bob"
      identity: bob
      enabled: false

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8080", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if len(cfg.Proxy.Routes) != 2 || cfg.Proxy.Routes[1] != (RouteConfig{Prefix: "/proxy8888", Port: 8888}) {
		t.Errorf("unexpected routes: %+v", cfg.Proxy.Routes)
	}
	if cfg.Proxy.ForwardTimeout != 15*time.Second {
		t.Errorf("expected forward timeout 15s, got %v", cfg.Proxy.ForwardTimeout)
	}
	if cfg.Tokens.StartupPolicy != "allow_all" || cfg.Tokens.ShutdownPolicy != "disable" {
		t.Errorf("unexpected token policies: %+v", cfg.Tokens)
	}
	if len(cfg.Security.APIKeys) != 2 || !cfg.Security.APIKeys[0].IsEnabled() || cfg.Security.APIKeys[1].IsEnabled() {
		t.Errorf("unexpected api keys: %+v", cfg.Security.APIKeys)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics should be disabled by the file")
	}
	if !cfg.Telemetry.Health.Enabled {
		t.Error("health should keep its default")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("empty file should load defaults: %v", err)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server:\n  listen_address: [unclosed\n"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_UnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server:\n  listen_adress: \"0.0.0.0:80\"\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadConfig_InvalidPolicy(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "tokens:\n  startup_policy: sometimes\n"))
	if err == nil {
		t.Fatal("expected validation error for unknown startup policy")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if validationErr.Errors[0].Field != "tokens.startup_policy" {
		t.Errorf("expected tokens.startup_policy error, got %v", validationErr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8080"
tokens:
  startup_policy: disabled
telemetry:
  logging:
    level: "info"
`)

	t.Setenv("PORTHOLE_SERVER_LISTEN_ADDRESS", "0.0.0.0:9090")
	t.Setenv("PORTHOLE_SERVER_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("PORTHOLE_TOKENS_STARTUP_POLICY", "random")
	t.Setenv("PORTHOLE_TOKENS_RANDOM_LENGTH", "64")
	t.Setenv("PORTHOLE_DIRECTORY_WATCH", "false")
	t.Setenv("PORTHOLE_STATE_BACKEND", "memory")
	t.Setenv("PORTHOLE_TELEMETRY_LOGGING_LEVEL", "debug")
	t.Setenv("PORTHOLE_TELEMETRY_TRACING_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address from env, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected shutdown timeout from env, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Tokens.StartupPolicy != "random" || cfg.Tokens.RandomLength != 64 {
		t.Errorf("expected token settings from env, got %+v", cfg.Tokens)
	}
	if cfg.Directory.Watch {
		t.Error("expected directory watch disabled from env")
	}
	if cfg.State.Backend != "memory" {
		t.Errorf("expected backend from env, got %q", cfg.State.Backend)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level from env, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("expected sample ratio from env, got %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidEnvValues(t *testing.T) {
	tests := map[string]string{
		"PORTHOLE_SERVER_READ_TIMEOUT":            "soon",
		"PORTHOLE_SERVER_MAX_HEADER_BYTES":        "lots",
		"PORTHOLE_DIRECTORY_WATCH":                "maybe",
		"PORTHOLE_TELEMETRY_TRACING_SAMPLE_RATIO": "half",
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, "")
			t.Setenv(name, value)

			_, err := LoadConfigWithEnvOverrides(path)
			if err == nil {
				t.Fatalf("expected error for %s=%q", name, value)
			}
			if !strings.Contains(err.Error(), name) {
				t.Errorf("error should name the variable: %v", err)
			}
		})
	}
}

func TestLoadConfigWithEnvOverrides_ValidatesResult(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("PORTHOLE_TOKENS_SHUTDOWN_POLICY", "explode")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation error after env override")
	}
}
