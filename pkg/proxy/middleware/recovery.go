package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// RecoveryMiddleware recovers from panics in handlers, logs the stack trace
// and answers 500 with a plaintext body. http.ErrAbortHandler is re-raised so
// net/http can abort the connection quietly.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", rec,
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("Internal server error"))
		}()

		next.ServeHTTP(w, r)
	})
}

// Chain wraps h with the standard middleware stack:
//
//	RequestID(AccessLog(Recovery(h)))
//
// Recovery sits inside AccessLog so recovered panics are logged as 500s.
func Chain(h http.Handler) http.Handler {
	return RequestIDMiddleware(AccessLog(RecoveryMiddleware(h)))
}
