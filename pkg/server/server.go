package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/porthole/pkg/config"
	"mercator-hq/porthole/pkg/proxy"
	"mercator-hq/porthole/pkg/proxy/middleware"
	"mercator-hq/porthole/pkg/security/auth"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/telemetry/health"
	"mercator-hq/porthole/pkg/telemetry/metrics"
	"mercator-hq/porthole/pkg/telemetry/tracing"
)

// Dependencies are the components the server routes requests to. Registry
// and Resolver are required; the telemetry components are optional.
type Dependencies struct {
	Registry *supervisor.Registry
	Resolver proxy.Resolver
	Checker  *health.Checker
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
}

// Server is the porthole HTTP server.
type Server struct {
	cfg  *config.Config
	deps Dependencies
	keys *auth.APIKeyValidator

	mu         sync.RWMutex
	httpServer *http.Server
	addr       net.Addr
	running    bool
}

// New creates a server for cfg. It does not listen until Start.
func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is nil")
	}
	if deps.Registry == nil || deps.Resolver == nil {
		return nil, errors.New("server requires a supervisor registry and a port resolver")
	}
	return &Server{
		cfg:  cfg,
		deps: deps,
		keys: auth.NewAPIKeyValidator(APIKeyInfos(cfg.Security.APIKeys)),
	}, nil
}

// APIKeyInfos converts configured API keys for the auth validator.
func APIKeyInfos(keys []config.APIKeyConfig) []*auth.APIKeyInfo {
	infos := make([]*auth.APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, &auth.APIKeyInfo{
			Key:      k.Key,
			Identity: k.Identity,
			Enabled:  k.IsEnabled(),
		})
	}
	return infos
}

// ReloadAPIKeys swaps the accepted API keys without restarting.
func (s *Server) ReloadAPIKeys(keys []config.APIKeyConfig) {
	s.keys.Replace(APIKeyInfos(keys))
}

// Handler builds the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	opts := s.proxyOptions()

	forwarder := proxy.NewForwarder(s.cfg.Proxy.ForwardTimeout)
	for _, route := range s.cfg.Proxy.Routes {
		p := proxy.NewPipeline(
			proxy.RouteConfig{Prefix: route.Prefix, InnerPort: route.Port},
			s.deps.Registry,
			s.deps.Resolver,
			forwarder,
			opts...,
		)
		mux.Handle(p.Pattern(), p)
	}

	if s.cfg.Proxy.TokenRoute != "" {
		tokens := proxy.NewTokenHandler(
			s.deps.Registry,
			s.deps.Registry,
			auth.IdentityFromRequest,
			s.cfg.Tokens.RandomLength,
			opts...,
		)
		authenticated := auth.NewAPIKeyMiddleware(s.keys, nil).Handle(tokens)
		mux.Handle(s.cfg.Proxy.TokenRoute, preflightBypass(tokens, authenticated))
	}

	telemetry := s.cfg.Telemetry
	if s.deps.Metrics != nil && telemetry.Metrics.Enabled {
		mux.Handle(telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}
	if s.deps.Checker != nil && telemetry.Health.Enabled {
		s.deps.Checker.Register(mux, telemetry.Health.LivenessPath, telemetry.Health.ReadinessPath)
	}

	return middleware.Chain(tracing.Middleware(mux))
}

// preflightBypass answers CORS preflights without credentials, since
// browsers never attach them to OPTIONS.
func preflightBypass(preflight, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			preflight.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) proxyOptions() []proxy.Option {
	var opts []proxy.Option
	if s.deps.Metrics != nil {
		opts = append(opts, proxy.WithRecorder(s.deps.Metrics))
	}
	if s.deps.Tracer != nil {
		opts = append(opts, proxy.WithTracer(s.deps.Tracer))
	}
	return opts
}

// Start listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	s.addr = ln.Addr()
	s.running = true
	srv := s.httpServer
	s.mu.Unlock()

	slog.Info("porthole listening",
		"address", ln.Addr().String(),
		"routes", len(s.cfg.Proxy.Routes),
		"token_route", s.cfg.Proxy.TokenRoute,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		s.setStopped()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Shutdown stops accepting connections and waits up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv, running := s.httpServer, s.running
	s.mu.RUnlock()
	if !running || srv == nil {
		return nil
	}

	slog.Info("initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.setStopped()
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func (s *Server) setStopped() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning reports whether Start is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound listen address once Start has been called.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
