package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Proxy defaults
	DefaultRoutePrefix    = "/proxy"
	DefaultRoutePort      = 5000
	DefaultForwardTimeout = 30 * time.Second
	DefaultTokenRoute     = "/proxytoken/"

	// Token defaults
	DefaultStartupPolicy  = "disabled"
	DefaultShutdownPolicy = "pass"
	DefaultRandomLength   = 40

	// Directory defaults
	DefaultDirectoryPath     = "supervisors.yaml"
	DefaultDirectoryWatch    = true
	DefaultDirectoryDebounce = 200 * time.Millisecond

	// State defaults
	DefaultStateBackend      = "sqlite"
	DefaultSQLitePath        = "data/porthole.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second
	DefaultSnapshotSchedule  = "@every 5m"

	// Telemetry defaults
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultMetricsEnabled      = true
	DefaultMetricsPath         = "/metrics"
	DefaultTracingEnabled      = false
	DefaultTracingSampleRatio  = 0.1
	DefaultTracingInsecure     = true
	DefaultTracingServiceName  = "porthole"
	DefaultHealthEnabled       = true
	DefaultHealthLivenessPath  = "/health"
	DefaultHealthReadinessPath = "/ready"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultDurationBuckets are the forward duration histogram buckets.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// NewDefaultConfig returns a configuration with every default applied,
// including boolean defaults that ApplyDefaults cannot infer from zero
// values. LoadConfig decodes YAML on top of it.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Directory.Watch = DefaultDirectoryWatch
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Health.Enabled = DefaultHealthEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields set by
// the caller are left alone.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Proxy defaults
	if len(cfg.Proxy.Routes) == 0 {
		cfg.Proxy.Routes = []RouteConfig{{Prefix: DefaultRoutePrefix, Port: DefaultRoutePort}}
	}
	if cfg.Proxy.ForwardTimeout == 0 {
		cfg.Proxy.ForwardTimeout = DefaultForwardTimeout
	}
	if cfg.Proxy.TokenRoute == "" {
		cfg.Proxy.TokenRoute = DefaultTokenRoute
	}

	// Token defaults
	if cfg.Tokens.StartupPolicy == "" {
		cfg.Tokens.StartupPolicy = DefaultStartupPolicy
	}
	if cfg.Tokens.ShutdownPolicy == "" {
		cfg.Tokens.ShutdownPolicy = DefaultShutdownPolicy
	}
	if cfg.Tokens.RandomLength == 0 {
		cfg.Tokens.RandomLength = DefaultRandomLength
	}

	// Directory defaults
	if cfg.Directory.Path == "" {
		cfg.Directory.Path = DefaultDirectoryPath
	}
	if cfg.Directory.Debounce == 0 {
		cfg.Directory.Debounce = DefaultDirectoryDebounce
	}

	// State defaults
	if cfg.State.Backend == "" {
		cfg.State.Backend = DefaultStateBackend
	}
	if cfg.State.SQLite.Path == "" {
		cfg.State.SQLite.Path = DefaultSQLitePath
	}
	if cfg.State.SQLite.BusyTimeout == 0 {
		cfg.State.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.State.SnapshotSchedule == "" {
		cfg.State.SnapshotSchedule = DefaultSnapshotSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
