package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces sensitive values in log output.
const Redacted = "[REDACTED]"

var defaultSensitiveKeys = []string{
	"token",
	"proxy_token",
	"x-proxy-token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"password",
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// Secrets can leak into free-form strings such as error messages or URLs.
var defaultPatterns = []redactPattern{
	{
		regex:       regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9\-._~+/]+=*`),
		replacement: "$1 " + Redacted,
	},
	{
		regex:       regexp.MustCompile(`(?i)([?&](?:token|api_key)=)[^&\s#"]+`),
		replacement: "${1}" + Redacted,
	},
}

// Redactor scrubs proxy tokens and API keys from log attributes.
type Redactor struct {
	keys     map[string]struct{}
	patterns []redactPattern
}

// NewRedactor returns a Redactor for the built-in keys plus extraKeys.
func NewRedactor(extraKeys ...string) *Redactor {
	r := &Redactor{
		keys:     make(map[string]struct{}, len(defaultSensitiveKeys)+len(extraKeys)),
		patterns: defaultPatterns,
	}
	for _, k := range defaultSensitiveKeys {
		r.keys[k] = struct{}{}
	}
	for _, k := range extraKeys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	return r
}

// IsSensitiveKey reports whether values under key are always redacted.
func (r *Redactor) IsSensitiveKey(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// RedactString masks secrets embedded in s.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Sensitive keys
// lose their value entirely; other string values are pattern-scrubbed.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if r.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); s != "" {
			if redacted := r.RedactString(s); redacted != s {
				return slog.String(a.Key, redacted)
			}
		}
	}
	return a
}
