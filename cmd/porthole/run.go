package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/porthole/pkg/cli"
	"mercator-hq/porthole/pkg/config"
	"mercator-hq/porthole/pkg/portmap"
	"mercator-hq/porthole/pkg/portmap/docker"
	"mercator-hq/porthole/pkg/proxy/middleware"
	"mercator-hq/porthole/pkg/server"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/telemetry/health"
	"mercator-hq/porthole/pkg/telemetry/logging"
	"mercator-hq/porthole/pkg/telemetry/metrics"
	"mercator-hq/porthole/pkg/telemetry/tracing"
)

// finalizeTimeout bounds the final snapshot and span flush after the server
// has stopped.
const finalizeTimeout = 10 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the porthole proxy server",
	Long: `Start the proxy server with the specified configuration.

The supervisor directory is loaded into the registry, persisted token state is
restored from the state backend, and one proxy pipeline is mounted per route.
SIGHUP reloads the directory and the API keys; SIGINT or SIGTERM drain
in-flight requests and save all supervisor state before exiting.

Examples:
  # Start with the default config file
  porthole run

  # Override the listen address
  porthole run --config /etc/porthole/porthole.yaml --listen 0.0.0.0:8000

  # Validate config without starting the server
  porthole run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logCfg := logging.FromConfig(&cfg.Telemetry.Logging)
	logCfg.Writer = os.Stderr
	logCfg.Extractors = []logging.ContextExtractor{logging.RequestID(middleware.GetRequestID)}
	if _, err := logging.Setup(logCfg); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	if err := serve(ctx, cfg); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	policies, err := tokenPolicies(&cfg.Tokens)
	if err != nil {
		return err
	}

	backend, err := openBackend(&cfg.State)
	if err != nil {
		return fmt.Errorf("open state backend: %w", err)
	}
	defer backend.Close()

	inspector, err := docker.New(docker.Config{Host: cfg.Docker.Host, APIVersion: cfg.Docker.APIVersion})
	if err != nil {
		return err
	}
	defer inspector.Close()

	registry := supervisor.NewRegistry(backend, policies)
	directory := supervisor.NewDirectory(cfg.Directory.Path, registry)
	if err := directory.Sync(ctx); err != nil {
		return fmt.Errorf("load supervisor directory: %w", err)
	}

	snapshotter := supervisor.NewSnapshotter(registry, cfg.State.SnapshotSchedule)
	if err := snapshotter.Start(ctx); err != nil {
		return err
	}
	defer func() {
		finalCtx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		snapshotter.Stop(finalCtx)
	}()

	if cfg.Directory.Watch {
		go func() {
			if err := directory.Watch(ctx, cfg.Directory.Debounce); err != nil {
				slog.Error("directory watch stopped", "path", directory.Path(), "error", err)
			}
		}()
		defer directory.Stop()
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	collector.WatchSupervisors(registry)

	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, Version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()
		if err := tracer.Shutdown(flushCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("docker", health.PingCheck(inspector))
	checker.RegisterCheck("state", health.PingCheck(backend))

	srv, err := server.New(cfg, server.Dependencies{
		Registry: registry,
		Resolver: portmap.NewResolver(inspector),
		Checker:  checker,
		Metrics:  collector,
		Tracer:   tracer,
	})
	if err != nil {
		return err
	}

	reloads, stopReloads := cli.ReloadSignals()
	defer stopReloads()
	go handleReloads(ctx, reloads, srv, directory)

	slog.Info("porthole starting",
		"version", Version,
		"config", cfgFile,
		"state_backend", cfg.State.Backend,
		"supervisors", len(registry.All()),
	)
	return srv.Start(ctx)
}

// handleReloads re-reads the config file on SIGHUP. API keys and the
// supervisor directory are applied live; other changes need a restart.
func handleReloads(ctx context.Context, reloads <-chan os.Signal, srv *server.Server, directory *supervisor.Directory) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-reloads:
			cfg, err := config.ReloadConfig()
			if err != nil {
				slog.Error("config reload failed, keeping current config", "error", err)
				continue
			}
			srv.ReloadAPIKeys(cfg.Security.APIKeys)
			if err := directory.Sync(ctx); err != nil {
				slog.Error("directory reload failed", "error", err)
				continue
			}
			slog.Info("config reloaded", "api_keys", len(cfg.Security.APIKeys))
		}
	}
}
