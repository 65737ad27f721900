package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/token"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProxy(&cfg.Proxy, &cfg.Server)...)
	errs = append(errs, validateTokens(&cfg.Tokens)...)
	errs = append(errs, validateDirectory(&cfg.Directory)...)
	errs = append(errs, validateState(&cfg.State)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

func validateProxy(cfg *ProxyConfig, server *ServerConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Routes) == 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.routes",
			Message: "at least one route is required",
		})
	}

	prefixes := make(map[string]bool, len(cfg.Routes))
	for i, route := range cfg.Routes {
		field := fmt.Sprintf("proxy.routes[%d]", i)

		switch {
		case route.Prefix == "" || route.Prefix[0] != '/':
			errs = append(errs, FieldError{
				Field:   field + ".prefix",
				Message: fmt.Sprintf("prefix %q must start with /", route.Prefix),
			})
		case route.Prefix == "/" || strings.HasSuffix(route.Prefix, "/"):
			errs = append(errs, FieldError{
				Field:   field + ".prefix",
				Message: fmt.Sprintf("prefix %q must not end with /", route.Prefix),
			})
		case prefixes[route.Prefix]:
			errs = append(errs, FieldError{
				Field:   field + ".prefix",
				Message: fmt.Sprintf("duplicate prefix %q", route.Prefix),
			})
		}
		prefixes[route.Prefix] = true

		if route.Port < 1 || route.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   field + ".port",
				Message: fmt.Sprintf("port %d must be between 1 and 65535", route.Port),
			})
		}
	}

	if cfg.ForwardTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.forward_timeout",
			Message: "forward timeout must be positive",
		})
	} else if server.WriteTimeout > 0 && server.WriteTimeout <= cfg.ForwardTimeout {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: fmt.Sprintf("write timeout %v must exceed proxy.forward_timeout %v", server.WriteTimeout, cfg.ForwardTimeout),
		})
	}

	if cfg.TokenRoute != "" {
		if cfg.TokenRoute[0] != '/' || !strings.HasSuffix(cfg.TokenRoute, "/") {
			errs = append(errs, FieldError{
				Field:   "proxy.token_route",
				Message: fmt.Sprintf("token route %q must start and end with /", cfg.TokenRoute),
			})
		}
		for prefix := range prefixes {
			if strings.HasPrefix(cfg.TokenRoute, prefix+"/") {
				errs = append(errs, FieldError{
					Field:   "proxy.token_route",
					Message: fmt.Sprintf("token route %q is shadowed by route prefix %q", cfg.TokenRoute, prefix),
				})
			}
		}
	}

	return errs
}

func validateTokens(cfg *TokensConfig) []FieldError {
	var errs []FieldError

	if _, err := token.ParseStartupPolicy(cfg.StartupPolicy); err != nil {
		errs = append(errs, FieldError{
			Field:   "tokens.startup_policy",
			Message: err.Error(),
		})
	}
	if _, err := token.ParseShutdownPolicy(cfg.ShutdownPolicy); err != nil {
		errs = append(errs, FieldError{
			Field:   "tokens.shutdown_policy",
			Message: err.Error(),
		})
	}
	if cfg.RandomLength < 8 || cfg.RandomLength > 256 {
		errs = append(errs, FieldError{
			Field:   "tokens.random_length",
			Message: fmt.Sprintf("random length %d must be between 8 and 256", cfg.RandomLength),
		})
	}

	return errs
}

func validateDirectory(cfg *DirectoryConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "directory.path",
			Message: "directory path is required",
		})
	}
	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{
			Field:   "directory.debounce",
			Message: "debounce must be non-negative",
		})
	}

	return errs
}

func validateState(cfg *StateConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "state.sqlite.path",
				Message: "sqlite path is required when backend is sqlite",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "state.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "state.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if err := supervisor.ValidateSchedule(cfg.SnapshotSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "state.snapshot_schedule",
			Message: err.Error(),
		})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	keys := make(map[string]bool, len(cfg.APIKeys))
	for i, key := range cfg.APIKeys {
		field := fmt.Sprintf("security.api_keys[%d]", i)

		if key.Key == "" {
			errs = append(errs, FieldError{
				Field:   field + ".key",
				Message: "key is required",
			})
		} else if keys[key.Key] {
			// Never echo the key itself.
			errs = append(errs, FieldError{
				Field:   field + ".key",
				Message: "duplicate key",
			})
		}
		keys[key.Key] = true

		if key.Identity == "" {
			errs = append(errs, FieldError{
				Field:   field + ".identity",
				Message: "identity is required",
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with / when metrics are enabled",
			})
		}
		for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
			if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.duration_buckets",
					Message: "buckets must be strictly increasing",
				})
				break
			}
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health check configuration
	if cfg.Health.Enabled {
		if cfg.Health.LivenessPath == "" || cfg.Health.LivenessPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if cfg.Health.ReadinessPath == "" || cfg.Health.ReadinessPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}
		if cfg.Health.CheckTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
		if cfg.Health.CheckTimeout > 60*time.Second {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout exceeds reasonable limit (60s)",
			})
		}
	}

	return errs
}
