package config

import "time"

// Config is the root configuration structure for Porthole.
type Config struct {
	// Server contains HTTP listener settings.
	Server ServerConfig `yaml:"server"`

	// Proxy contains the proxied routes and the token endpoint.
	Proxy ProxyConfig `yaml:"proxy"`

	// Tokens contains the proxy token lifecycle policies.
	Tokens TokensConfig `yaml:"tokens"`

	// Docker contains the Docker Engine API connection settings used for
	// port inspection.
	Docker DockerConfig `yaml:"docker"`

	// Directory points at the supervisor directory file maintained by the
	// orchestrator.
	Directory DirectoryConfig `yaml:"directory"`

	// State contains the supervisor state store settings.
	State StateConfig `yaml:"state"`

	// Security contains platform authentication settings.
	Security SecurityConfig `yaml:"security"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Zero means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed proxy.forward_timeout.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ProxyConfig contains the proxied routes.
type ProxyConfig struct {
	// Routes lists one route per proxied inner port.
	// Default: [{prefix: "/proxy", port: 5000}]
	Routes []RouteConfig `yaml:"routes"`

	// ForwardTimeout bounds each forwarded request, including reading the
	// response headers.
	// Default: 30s
	ForwardTimeout time.Duration `yaml:"forward_timeout"`

	// TokenRoute is the path of the token endpoint. Empty disables it.
	// Default: "/proxytoken/"
	TokenRoute string `yaml:"token_route"`
}

// RouteConfig maps a path prefix to the container port it proxies.
type RouteConfig struct {
	// Prefix is the path prefix, without a trailing slash (e.g. "/proxy").
	// Requests are served under "<prefix>/<identity>/<path>".
	Prefix string `yaml:"prefix"`

	// Port is the port inside the container.
	Port int `yaml:"port"`
}

// TokensConfig contains proxy token lifecycle policies.
type TokensConfig struct {
	// StartupPolicy applies when a supervisor starts without a persisted token.
	// Options: "disabled", "allow_all" (or "open"), "random"
	// Default: "disabled"
	StartupPolicy string `yaml:"startup_policy"`

	// ShutdownPolicy applies when a supervisor is torn down.
	// Options: "pass", "disable"
	// Default: "pass"
	ShutdownPolicy string `yaml:"shutdown_policy"`

	// RandomLength is the length of generated secrets.
	// Default: 40
	RandomLength int `yaml:"random_length"`
}

// DockerConfig contains Docker Engine API settings.
type DockerConfig struct {
	// Host is the daemon address (e.g. "unix:///var/run/docker.sock").
	// Empty uses DOCKER_HOST or the platform default.
	Host string `yaml:"host"`

	// APIVersion pins the API version. Empty negotiates with the daemon.
	APIVersion string `yaml:"api_version"`
}

// DirectoryConfig points at the supervisor directory file.
type DirectoryConfig struct {
	// Path is the YAML file listing identities and their supervisors.
	// Default: "supervisors.yaml"
	Path string `yaml:"path"`

	// Watch reloads the directory when the file changes.
	// Default: true
	Watch bool `yaml:"watch"`

	// Debounce delays reloads after a burst of file events.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`
}

// StateConfig contains supervisor state store settings.
type StateConfig struct {
	// Backend selects the store.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// SnapshotSchedule is the cron schedule of periodic state saves.
	// Default: "@every 5m"
	SnapshotSchedule string `yaml:"snapshot_schedule"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/porthole.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// SecurityConfig contains platform authentication settings.
type SecurityConfig struct {
	// APIKeys authenticates callers of the token endpoint.
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig maps an API key to a platform identity.
type APIKeyConfig struct {
	// Key is the secret presented by the caller.
	Key string `yaml:"key"`

	// Identity is the platform identity the key authenticates.
	Identity string `yaml:"identity"`

	// Enabled controls whether the key is accepted.
	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether the key is accepted. Keys are enabled unless
// explicitly disabled.
func (k APIKeyConfig) IsEnabled() bool {
	return k.Enabled == nil || *k.Enabled
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// DurationBuckets defines histogram buckets for forward duration (seconds).
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint (e.g. "localhost:4317").
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// ServiceName is the service name in traces.
	// Default: "porthole"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
