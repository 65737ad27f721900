// Package logging configures the process-wide log/slog logger.
//
// Loggers built here never print a proxy token, an API key, or an
// Authorization header. Attributes under a sensitive key are replaced with
// [REDACTED] and free-form strings are scrubbed of bearer credentials and
// ?token= query parameters.
//
// Records logged with a context pick up trace_id and span_id from the active
// OpenTelemetry span, and request_id when the server installs the request ID
// extractor:
//
//	logger, err := logging.Setup(logging.Config{
//	    Level:      "info",
//	    Format:     "json",
//	    Extractors: []logging.ContextExtractor{logging.RequestID(middleware.GetRequestID)},
//	})
package logging
