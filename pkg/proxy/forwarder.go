package proxy

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mercator-hq/porthole/pkg/portmap"
)

// DefaultForwardTimeout bounds a forwarded call when none is configured.
const DefaultForwardTimeout = 30 * time.Second

// hopHeaders are connection-scoped and never forwarded to the container.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// skippedResponseHeaders are recomputed by the serving side because the body
// is re-framed.
var skippedResponseHeaders = map[string]bool{
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Content-Encoding":  true,
	"Connection":        true,
}

// Forwarder relays a request to a resolved container endpoint and copies the
// response back.
type Forwarder struct {
	client *http.Client
	logger *slog.Logger
}

// NewForwarder creates a forwarder whose calls are bounded by timeout.
// Redirects from the container are relayed, not followed.
func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &Forwarder{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: slog.Default().With("component", "proxy.forwarder"),
	}
}

// IsUpgrade reports whether r asks for a protocol switch.
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r) || r.Header.Get("Upgrade") != ""
}

// Forward sends r to path on endpoint and writes the container's response to
// w. Failures before anything was written are returned (an upgrade request,
// or a *TransportError) and the caller writes the error response. The
// outbound call is cancelled when r's context is.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, endpoint portmap.Endpoint, path string) error {
	if IsUpgrade(r) {
		return newRequestError(ErrUnsupportedUpgrade, "Not enabled for websocket")
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, endpoint.URL(path, r.URL.RawQuery), outboundBody(r))
	if err != nil {
		return &TransportError{Err: err}
	}
	out.Header = outboundHeader(r.Header)
	otel.GetTextMapPropagator().Inject(r.Context(), propagation.HeaderCarrier(out.Header))
	out.Host = r.Host
	out.ContentLength = outboundLength(r)

	resp, err := f.client.Do(out)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	h := w.Header()
	for name, values := range resp.Header {
		if skippedResponseHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		h.Del(name)
		for _, v := range values {
			h.Add(name, v)
		}
	}
	SetCORSHeaders(h)

	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are already sent; the client sees a truncated body.
		f.logger.Warn("response body copy failed",
			"endpoint", endpoint.String(),
			"error", err,
		)
	}
	return nil
}

// outboundBody returns nil for an empty body, except for POST which keeps an
// explicit empty body.
func outboundBody(r *http.Request) io.Reader {
	if hasBody(r) {
		return r.Body
	}
	if r.Method == http.MethodPost {
		return http.NoBody
	}
	return nil
}

func outboundLength(r *http.Request) int64 {
	if hasBody(r) {
		return r.ContentLength
	}
	return 0
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	// -1 means unknown length, e.g. a chunked upload.
	return r.ContentLength != 0
}

func outboundHeader(in http.Header) http.Header {
	h := in.Clone()
	for _, name := range hopHeaders {
		h.Del(name)
	}
	h.Del(ProxyTokenHeader)

	// Let the transport negotiate compression and decode the body, since
	// Content-Encoding is not relayed back.
	h.Del("Accept-Encoding")
	return h
}
