package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeySource defines where to extract API keys from
type APIKeySource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", "token" (optional, case-insensitive)
}

// DefaultSources accepts "Authorization: token <key>",
// "Authorization: Bearer <key>" and the "token" query parameter.
var DefaultSources = []APIKeySource{
	{Type: "header", Name: "Authorization", Scheme: "token"},
	{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	{Type: "query", Name: "token"},
}

// APIKeyMiddleware is HTTP middleware for API key authentication
type APIKeyMiddleware struct {
	store   APIKeyStore
	sources []APIKeySource
}

// NewAPIKeyMiddleware creates a new API key authentication middleware.
// A nil sources slice uses DefaultSources.
func NewAPIKeyMiddleware(store APIKeyStore, sources []APIKeySource) *APIKeyMiddleware {
	if sources == nil {
		sources = DefaultSources
	}
	return &APIKeyMiddleware{
		store:   store,
		sources: sources,
	}
}

// Handle wraps an HTTP handler with API key authentication. Requests without
// a valid key get 403, as the platform does for unauthenticated API calls.
func (m *APIKeyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, err := m.extractAPIKey(r)
		if err != nil {
			slog.WarnContext(r.Context(), "missing API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			http.Error(w, "Missing or invalid API key", http.StatusForbidden)
			return
		}

		keyInfo, err := m.store.Validate(apiKey)
		if err != nil {
			slog.WarnContext(r.Context(), "invalid API key",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			http.Error(w, "Missing or invalid API key", http.StatusForbidden)
			return
		}

		slog.DebugContext(r.Context(), "API key authenticated",
			"identity", keyInfo.Identity,
			"path", r.URL.Path,
		)

		ctx := context.WithValue(r.Context(), apiKeyInfoKey, keyInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractAPIKey extracts the API key from the request using configured sources
func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, nil
			}
			scheme, key, ok := strings.Cut(value, " ")
			if ok && strings.EqualFold(scheme, source.Scheme) && strings.TrimSpace(key) != "" {
				return strings.TrimSpace(key), nil
			}

		case "query":
			value := r.URL.Query().Get(source.Name)
			if value != "" {
				return value, nil
			}
		}
	}

	return "", ErrMissingKey
}

// Context key for API key info
type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const apiKeyInfoKey contextKey = "api_key_info"

// GetAPIKeyInfo retrieves API key info from request context
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyInfoKey).(*APIKeyInfo)
	return info, ok
}

// IdentityFromRequest returns the platform identity authenticated by Handle.
func IdentityFromRequest(r *http.Request) (string, bool) {
	info, ok := GetAPIKeyInfo(r.Context())
	if !ok || info.Identity == "" {
		return "", false
	}
	return info.Identity, true
}
