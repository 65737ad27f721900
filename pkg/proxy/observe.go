package proxy

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Request outcomes reported to the Recorder.
const (
	OutcomeForwarded       = "forwarded"
	OutcomePreflight       = "preflight"
	OutcomeNotFound        = "not_found"
	OutcomeUnconfigured    = "unconfigured"
	OutcomeNoMapping       = "no_mapping"
	OutcomeUnauthorized    = "unauthorized"
	OutcomeUpgradeRejected = "upgrade_rejected"
	OutcomeTransportError  = "transport_error"
)

// Recorder receives proxy measurements. *metrics.Collector implements it.
type Recorder interface {
	RecordProxyRequest(route, outcome string, duration time.Duration)
	RecordPortResolution(result string)
	RecordTokenChange(action string)
}

// Tracer starts spans. *tracing.Tracer implements it.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

type nopRecorder struct{}

func (nopRecorder) RecordProxyRequest(string, string, time.Duration) {}
func (nopRecorder) RecordPortResolution(string)                     {}
func (nopRecorder) RecordTokenChange(string)                        {}

var nopTracer Tracer = noop.NewTracerProvider().Tracer("porthole")

// Option configures a Pipeline or TokenHandler.
type Option func(*options)

type options struct {
	recorder Recorder
	tracer   Tracer
}

func buildOptions(opts []Option) options {
	o := options{recorder: nopRecorder{}, tracer: nopTracer}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRecorder reports measurements to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTracer creates spans with t.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
