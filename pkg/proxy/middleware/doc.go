// Package middleware provides HTTP middleware for cross-cutting concerns:
// request IDs, access logging and panic recovery.
//
// # Middleware Chain
//
// Chain applies the standard stack:
//
//	handler = RequestID(AccessLog(Recovery(handler)))
//
// Order (outermost to innermost):
//  1. RequestID: reuse or generate X-Request-ID, store it in the context
//  2. AccessLog: log method, path, status, size and duration
//  3. Recovery: turn panics into plaintext 500 responses
//
// CORS headers are not handled here. The proxy routes set them on every
// response they write, including error responses.
//
// # Request ID
//
// RequestIDMiddleware generates a UUID v4 unless the client sent a usable one:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is echoed in the response, logged with every access log line and
// left on the inbound request so proxied containers receive it too.
//
// # Access Log
//
// AccessLog writes through the default log/slog logger:
//
//	{
//	  "time": "2026-03-02T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "GET",
//	  "path": "/proxy/alice/index.html",
//	  "status": 200,
//	  "bytes": 5120,
//	  "duration_ms": 12.4,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// The query string is never logged: it may carry an API token.
//
// # Context Values
//
//	requestID := middleware.GetRequestID(r.Context())
package middleware
