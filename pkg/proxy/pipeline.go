package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mercator-hq/porthole/pkg/portmap"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/token"
)

// Resolver finds the live host endpoint of a container port.
type Resolver interface {
	Resolve(ctx context.Context, target portmap.Target, innerPort int) (portmap.Endpoint, error)
}

// RouteConfig is the per-route configuration of a Pipeline.
type RouteConfig struct {
	// Prefix is the mount path, e.g. "/proxy5000". Requests look like
	// <Prefix>/<identity>/<path>.
	Prefix string

	// InnerPort is the container port proxied by this route.
	InnerPort int
}

// Pipeline serves one proxy route: identity lookup, port resolution,
// authorization, then forwarding. Every step is single-shot; the first
// failure ends the request with its status code.
type Pipeline struct {
	route     RouteConfig
	lookup    supervisor.Lookup
	resolver  Resolver
	forwarder *Forwarder
	recorder  Recorder
	tracer    Tracer
	logger    *slog.Logger
}

// NewPipeline creates the handler for route.
func NewPipeline(route RouteConfig, lookup supervisor.Lookup, resolver Resolver, forwarder *Forwarder, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	route.Prefix = strings.TrimRight(route.Prefix, "/")

	return &Pipeline{
		route:     route,
		lookup:    lookup,
		resolver:  resolver,
		forwarder: forwarder,
		recorder:  o.recorder,
		tracer:    o.tracer,
		logger:    slog.Default().With("component", "proxy.pipeline", "route", route.Prefix),
	}
}

// Pattern returns the ServeMux pattern the pipeline is mounted on.
func (p *Pipeline) Pattern() string {
	return p.route.Prefix + "/"
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	SetCORSHeaders(w.Header())

	if r.Method == http.MethodOptions {
		WritePreflight(w)
		p.recorder.RecordProxyRequest(p.route.Prefix, OutcomePreflight, time.Since(start))
		return
	}

	ctx, span := p.tracer.Start(r.Context(), "proxy.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("porthole.route", p.route.Prefix),
		attribute.Int("porthole.inner_port", p.route.InnerPort),
		attribute.String("http.method", r.Method),
	)

	err := p.serve(ctx, w, r.WithContext(ctx))
	outcome := outcomeFor(err)
	span.SetAttributes(attribute.String("porthole.outcome", outcome))

	if err != nil {
		span.SetStatus(codes.Error, outcome)
		p.logger.DebugContext(ctx, "proxy request rejected",
			"outcome", outcome,
			"status", StatusFor(err),
			"error", err,
		)
		WriteError(w, err)
	}

	p.recorder.RecordProxyRequest(p.route.Prefix, outcome, time.Since(start))
}

func (p *Pipeline) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if p.route.InnerPort <= 0 {
		return newRequestError(ErrConfigurationMissing,
			"Proxy port not configured, set a port on the route definition")
	}

	identity, path, ok := p.splitPath(r)
	if !ok {
		return newRequestError(ErrNotFound, "Not found or not available")
	}

	sup, err := p.findSupervisor(ctx, identity)
	if err != nil {
		return err
	}

	endpoint, err := p.resolve(ctx, sup)
	if err != nil {
		return err
	}

	presented := r.Header.Get(ProxyTokenHeader)
	r.Header.Del(ProxyTokenHeader)

	if err := p.authorize(ctx, sup, presented); err != nil {
		return err
	}

	fctx, span := p.tracer.Start(ctx, "proxy.forward")
	span.SetAttributes(attribute.String("porthole.endpoint", endpoint.String()))
	defer span.End()

	p.logger.DebugContext(ctx, "forwarding",
		"identity", identity,
		"endpoint", endpoint.String(),
		"path", path,
	)

	if err := p.forwarder.Forward(w, r.WithContext(fctx), endpoint, path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "forward failed")
		return err
	}
	return nil
}

// splitPath extracts the identity and the escaped remainder of the path.
func (p *Pipeline) splitPath(r *http.Request) (identity, path string, ok bool) {
	rest, found := strings.CutPrefix(r.URL.EscapedPath(), p.route.Prefix+"/")
	if !found {
		return "", "", false
	}

	rawIdentity, remainder, hasSlash := strings.Cut(rest, "/")
	identity, err := url.PathUnescape(rawIdentity)
	if err != nil || identity == "" {
		return "", "", false
	}

	path = "/"
	if hasSlash {
		path += remainder
	}
	return identity, path, true
}

func (p *Pipeline) findSupervisor(ctx context.Context, identity string) (*supervisor.Supervisor, error) {
	ctx, span := p.tracer.Start(ctx, "proxy.lookup")
	defer span.End()

	sups, err := p.lookup.LookupSupervisors(ctx, identity)
	if err != nil && !errors.Is(err, supervisor.ErrUnknownIdentity) {
		p.logger.WarnContext(ctx, "supervisor lookup failed", "identity", identity, "error", err)
	}

	sup := supervisor.FirstContainerSpawner(sups)
	if sup == nil {
		span.SetStatus(codes.Error, "not found")
		return nil, newRequestError(ErrNotFound, "Not found or not available")
	}

	span.SetAttributes(
		attribute.String("porthole.supervisor", sup.String()),
		attribute.String("porthole.supervisor_kind", string(sup.Kind)),
	)
	return sup, nil
}

func (p *Pipeline) resolve(ctx context.Context, sup *supervisor.Supervisor) (portmap.Endpoint, error) {
	ctx, span := p.tracer.Start(ctx, "proxy.resolve")
	defer span.End()

	endpoint, err := p.resolver.Resolve(ctx, sup.Target(), p.route.InnerPort)
	switch {
	case err == nil:
		p.recorder.RecordPortResolution("found")
		return endpoint, nil
	case errors.Is(err, portmap.ErrNoMapping):
		p.recorder.RecordPortResolution("not_found")
	default:
		p.recorder.RecordPortResolution("error")
		p.logger.WarnContext(ctx, "port resolution failed", "supervisor", sup.String(), "error", err)
	}

	span.SetStatus(codes.Error, "no mapping")
	return portmap.Endpoint{}, newRequestError(ErrMappingUnavailable, "No port mapping enabled in the container")
}

// authorize checks the presented credential. Supervisors without a token are
// open.
func (p *Pipeline) authorize(ctx context.Context, sup *supervisor.Supervisor, presented string) error {
	_, span := p.tracer.Start(ctx, "proxy.authorize")
	defer span.End()

	if !sup.Tokenized() {
		span.SetAttributes(attribute.String("porthole.token_mode", token.ModeOpen.String()))
		return nil
	}

	mode := sup.Token.Mode()
	decision := token.Decide(sup.Token, presented)
	span.SetAttributes(
		attribute.String("porthole.token_mode", mode.String()),
		attribute.String("porthole.decision", decision.String()),
	)

	if decision == token.Allow {
		return nil
	}
	if mode == token.ModeDisabled {
		return newRequestError(ErrUnauthorized, "Unauthorized access (disabled)")
	}
	return newRequestError(ErrUnauthorized, "Unauthorized access")
}

func outcomeFor(err error) string {
	var transportErr *TransportError
	switch {
	case err == nil:
		return OutcomeForwarded
	case errors.As(err, &transportErr):
		return OutcomeTransportError
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConfigurationMissing):
		return OutcomeUnconfigured
	case errors.Is(err, ErrMappingUnavailable):
		return OutcomeNoMapping
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, ErrUnsupportedUpgrade):
		return OutcomeUpgradeRejected
	default:
		return OutcomeTransportError
	}
}
