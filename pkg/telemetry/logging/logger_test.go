package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/porthole/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json debug", Config{Level: "debug", Format: "json"}, false},
		{"text warn", Config{Level: "WARN", Format: "text"}, false},
		{"bad level", Config{Level: "verbose"}, true},
		{"bad format", Config{Format: "console"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
	logger.Warn("kept")
	if entry := decodeLine(t, &buf); entry["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", entry["msg"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("supervisor loaded", "identity", "alice")

	out := buf.String()
	if !strings.Contains(out, "msg=\"supervisor loaded\"") || !strings.Contains(out, "identity=alice") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestNew_RedactsTokens(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("token changed", "identity", "alice", "proxy_token", "abc123secret")

	entry := decodeLine(t, &buf)
	if entry["proxy_token"] != Redacted {
		t.Errorf("proxy_token = %v, want %s", entry["proxy_token"], Redacted)
	}
	if entry["identity"] != "alice" {
		t.Errorf("identity = %v, want alice", entry["identity"])
	}
	if strings.Contains(buf.String(), "abc123secret") {
		t.Error("secret leaked into log output")
	}
}

func TestNew_AddSource(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{AddSource: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("with source")

	if _, ok := decodeLine(t, &buf)[slog.SourceKey]; !ok {
		t.Error("source attribute missing")
	}
}

func TestNew_Extractors(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		Writer:     &buf,
		Extractors: []ContextExtractor{RequestID(func(context.Context) string { return "req-1" })},
	})
	if err != nil {
		t.Fatal(err)
	}
	logger.InfoContext(context.Background(), "request completed")

	if got := decodeLine(t, &buf)["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger, err := Setup(Config{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	if slog.Default() != logger {
		t.Fatal("Setup did not install the default logger")
	}
	slog.Info("via default")
	if entry := decodeLine(t, &buf); entry["msg"] != "via default" {
		t.Errorf("msg = %v", entry["msg"])
	}

	if _, err := Setup(Config{Level: "loud"}); err == nil {
		t.Error("Setup accepted an invalid level")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(&config.LoggingConfig{Level: "debug", Format: "text", AddSource: true})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"text", FormatText, false},
		{"console", FormatJSON, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
