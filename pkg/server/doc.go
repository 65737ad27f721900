// Package server assembles the porthole HTTP server.
//
// One proxy pipeline is mounted per configured route at "<prefix>/", the
// token endpoint at the configured token route behind API key
// authentication, and the metrics and health endpoints when enabled. Every
// request passes through the request ID, logging and recovery middleware and
// joins any inbound W3C trace.
//
//	srv, err := server.New(cfg, server.Dependencies{
//	    Registry: registry,
//	    Resolver: portmap.NewResolver(inspector),
//	    Checker:  checker,
//	    Metrics:  collector,
//	    Tracer:   tracer,
//	})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// Start blocks until ctx is cancelled and then drains in-flight requests for
// up to server.shutdown_timeout.
package server
