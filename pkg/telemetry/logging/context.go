package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// ContextExtractor derives log attributes from a record's context.
type ContextExtractor func(ctx context.Context) []slog.Attr

// TraceContext adds trace_id and span_id when ctx carries a valid span.
func TraceContext(ctx context.Context) []slog.Attr {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []slog.Attr{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
}

// RequestID adapts a request ID getter, such as the one kept by the HTTP
// middleware, into an extractor for the request_id attribute.
func RequestID(get func(context.Context) string) ContextExtractor {
	return func(ctx context.Context) []slog.Attr {
		if id := get(ctx); id != "" {
			return []slog.Attr{slog.String("request_id", id)}
		}
		return nil
	}
}

// ContextHandler decorates records with attributes taken from the context
// passed to the *Context logging methods. An attribute already present on
// the record wins over an extracted one.
type ContextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

// NewContextHandler wraps next with the given extractors.
func NewContextHandler(next slog.Handler, extractors ...ContextExtractor) *ContextHandler {
	return &ContextHandler{Handler: next, extractors: extractors}
}

// Handle implements slog.Handler.
func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error {
	if ctx == nil || len(h.extractors) == 0 {
		return h.Handler.Handle(ctx, rec)
	}

	var present map[string]struct{}
	for _, extract := range h.extractors {
		for _, a := range extract(ctx) {
			if present == nil {
				present = make(map[string]struct{}, rec.NumAttrs())
				rec.Attrs(func(existing slog.Attr) bool {
					present[existing.Key] = struct{}{}
					return true
				})
			}
			if _, dup := present[a.Key]; dup {
				continue
			}
			present[a.Key] = struct{}{}
			rec.AddAttrs(a)
		}
	}
	return h.Handler.Handle(ctx, rec)
}

// WithAttrs implements slog.Handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

// WithGroup implements slog.Handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
