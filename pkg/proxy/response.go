package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	// ProxyTokenHeader carries the presented credential. It is never
	// forwarded to the container.
	ProxyTokenHeader = "X-Proxy-Token"

	allowOriginHeader  = "Access-Control-Allow-Origin"
	allowHeadersHeader = "Access-Control-Allow-Headers"
)

// SetCORSHeaders adds the permissive cross-origin headers carried by every
// proxy response.
func SetCORSHeaders(h http.Header) {
	h.Set(allowOriginHeader, "*")
	h.Set(allowHeadersHeader, ProxyTokenHeader)
}

// WritePreflight answers a CORS preflight request.
func WritePreflight(w http.ResponseWriter) {
	SetCORSHeaders(w.Header())
	w.WriteHeader(http.StatusNoContent)
}

// WriteText writes a plaintext response.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// WriteJSONResponse writes data as compact JSON without a trailing newline.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, err = w.Write(body)
	return err
}
