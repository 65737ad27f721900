package proxy

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
)

// Error kinds returned by the proxy handlers. Each maps to one status code.
var (
	// ErrNotFound: unknown identity, or no supervisor of the container family.
	ErrNotFound = errors.New("not found")

	// ErrConfigurationMissing: the route has no inner port.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrMappingUnavailable: the inner port is not (yet) published.
	ErrMappingUnavailable = errors.New("mapping unavailable")

	// ErrUnauthorized: the token is disabled or the credential does not match.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnsupportedUpgrade: protocol upgrades are not proxied.
	ErrUnsupportedUpgrade = errors.New("unsupported upgrade")

	// ErrInvalidTokenCommand: the token endpoint body is not a known command.
	ErrInvalidTokenCommand = errors.New("invalid token command")

	// ErrSpawnerTypeMismatch: token change requested on a supervisor without a token.
	ErrSpawnerTypeMismatch = errors.New("spawner type mismatch")

	// ErrSpawnerUnavailable: the caller has no container supervisor.
	ErrSpawnerUnavailable = errors.New("spawner unavailable")
)

// RequestError is a per-request failure carrying the text returned to the
// client.
type RequestError struct {
	Kind    error
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap returns the error kind.
func (e *RequestError) Unwrap() error {
	return e.Kind
}

func newRequestError(kind error, message string) *RequestError {
	return &RequestError{Kind: kind, Message: message}
}

// TransportError is a failure to obtain an HTTP response from the target:
// refused connection, timeout, DNS failure.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	var transportErr *TransportError
	switch {
	case errors.As(err, &transportErr):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMappingUnavailable), errors.Is(err, ErrSpawnerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTokenCommand):
		return http.StatusBadRequest
	default:
		// ErrConfigurationMissing, ErrUnsupportedUpgrade, ErrSpawnerTypeMismatch
		// and anything unexpected.
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a short plaintext response. Transport failures
// carry their HTML-escaped description.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	var (
		reqErr       *RequestError
		transportErr *TransportError
		body         string
	)
	switch {
	case errors.As(err, &reqErr):
		body = reqErr.Message
	case errors.As(err, &transportErr):
		body = html.EscapeString(transportErr.Err.Error())
	default:
		slog.Error("unexpected proxy error", "error", err)
		body = http.StatusText(status)
	}

	WriteText(w, status, body)
}
