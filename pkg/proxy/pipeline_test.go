package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/porthole/pkg/portmap"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/token"
)

type pipelineFixture struct {
	pipeline *Pipeline
	lookup   *fakeLookup
	resolver *fakeResolver
	recorder *fakeRecorder
	hits     *atomic.Int32
	last     chan *http.Request
}

func newPipelineFixture(t *testing.T, sups map[string][]*supervisor.Supervisor, target http.HandlerFunc) *pipelineFixture {
	t.Helper()

	hits := &atomic.Int32{}
	last := make(chan *http.Request, 1)
	if target == nil {
		target = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Target", "yes")
			_, _ = io.WriteString(w, "hello from "+r.URL.Path)
		}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case last <- r.Clone(context.Background()):
		default:
		}
		target(w, r)
	}))
	t.Cleanup(srv.Close)

	lookup := &fakeLookup{sups: sups}
	resolver := &fakeResolver{endpoint: endpointOf(t, srv)}
	recorder := &fakeRecorder{}

	p := NewPipeline(
		RouteConfig{Prefix: "/proxy8888", InnerPort: 8888},
		lookup, resolver, NewForwarder(5*time.Second),
		WithRecorder(recorder),
	)
	return &pipelineFixture{pipeline: p, lookup: lookup, resolver: resolver, recorder: recorder, hits: hits, last: last}
}

func (f *pipelineFixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.pipeline.ServeHTTP(rec, r)
	return rec
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	if got := h.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := h.Get("Access-Control-Allow-Headers"); got != "X-Proxy-Token" {
		t.Errorf("Access-Control-Allow-Headers = %q, want X-Proxy-Token", got)
	}
}

func TestPipeline_OpenModeForwards(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{
		"alice": {tokenized("alice", token.String(""))},
	}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/alice/api/status?x=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "hello from /api/status" {
		t.Errorf("body = %q", got)
	}
	if rec.Header().Get("X-Target") != "yes" {
		t.Error("target headers not relayed")
	}
	assertCORS(t, rec.Header())

	if f.resolver.port != 8888 {
		t.Errorf("resolved port = %d, want 8888", f.resolver.port)
	}
	out := <-f.last
	if out.URL.RawQuery != "x=1" {
		t.Errorf("query = %q, want x=1", out.URL.RawQuery)
	}
	if f.recorder.requests[0].outcome != OutcomeForwarded {
		t.Errorf("outcome = %q", f.recorder.requests[0].outcome)
	}
}

func TestPipeline_Authorization(t *testing.T) {
	tests := []struct {
		name      string
		sup       *supervisor.Supervisor
		presented string
		wantCode  int
		wantBody  string
	}{
		{name: "protected wrong token", sup: tokenized("alice", token.String("abc123")), presented: "wrong", wantCode: http.StatusForbidden, wantBody: "Unauthorized access"},
		{name: "protected missing token", sup: tokenized("alice", token.String("abc123")), wantCode: http.StatusForbidden, wantBody: "Unauthorized access"},
		{name: "protected right token", sup: tokenized("alice", token.String("abc123")), presented: "abc123", wantCode: http.StatusOK},
		{name: "disabled", sup: tokenized("alice", nil), presented: "abc123", wantCode: http.StatusForbidden, wantBody: "Unauthorized access (disabled)"},
		{name: "open with a token", sup: tokenized("alice", token.String("")), presented: "whatever", wantCode: http.StatusOK},
		{name: "plain supervisor is open", sup: plain("alice"), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {tt.sup}}, nil)

			r := httptest.NewRequest(http.MethodGet, "/proxy8888/alice/", nil)
			if tt.presented != "" {
				r.Header.Set(ProxyTokenHeader, tt.presented)
			}
			rec := f.do(r)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %q)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			assertCORS(t, rec.Header())

			forwarded := f.hits.Load() == 1
			if forwarded != (tt.wantCode == http.StatusOK) {
				t.Errorf("forwarded = %v for status %d", forwarded, rec.Code)
			}
			if forwarded {
				if got := (<-f.last).Header.Get(ProxyTokenHeader); got != "" {
					t.Errorf("X-Proxy-Token leaked to the container: %q", got)
				}
			}
		})
	}
}

func TestPipeline_NoMapping(t *testing.T) {
	for _, resolveErr := range []error{portmap.ErrNoMapping, errors.New("docker unreachable")} {
		for _, sup := range []*supervisor.Supervisor{
			tokenized("alice", token.String("")),
			tokenized("alice", token.String("abc123")),
			tokenized("alice", nil),
		} {
			f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {sup}}, nil)
			f.resolver.err = resolveErr

			r := httptest.NewRequest(http.MethodGet, "/proxy8888/alice/", nil)
			r.Header.Set(ProxyTokenHeader, "abc123")
			rec := f.do(r)

			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("mode %v, err %v: status = %d, want 503", sup.Token.Mode(), resolveErr, rec.Code)
			}
			if f.hits.Load() != 0 {
				t.Error("target contacted without a mapping")
			}
		}
	}
}

func TestPipeline_NotFound(t *testing.T) {
	process := supervisor.New("bob", "", supervisor.KindProcess, "", "")
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"bob": {process}}, nil)

	for _, path := range []string{"/proxy8888/carol/", "/proxy8888/bob/", "/proxy8888//x", "/other/alice/"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
		if rec.Body.String() != "Not found or not available" {
			t.Errorf("%s: body = %q", path, rec.Body.String())
		}
	}
	if f.resolver.calls != 0 {
		t.Error("resolver called for an unknown supervisor")
	}
}

func TestPipeline_FirstContainerSupervisorWins(t *testing.T) {
	process := supervisor.New("alice", "lab", supervisor.KindProcess, "", "")
	open := tokenized("alice", token.String(""))
	locked := tokenized("alice", nil)
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {process, open, locked}}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/alice/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestPipeline_PortNotConfigured(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {plain("alice")}}, nil)
	p := NewPipeline(RouteConfig{Prefix: "/proxy"}, f.lookup, f.resolver, NewForwarder(time.Second))

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy/alice/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if f.lookup.calls != 0 {
		t.Error("lookup should not run without a port")
	}
}

func TestPipeline_Preflight(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {tokenized("alice", nil)}}, nil)

	for _, path := range []string{"/proxy8888/alice/x", "/proxy8888/nobody/", "/proxy8888/"} {
		rec := f.do(httptest.NewRequest(http.MethodOptions, path, nil))
		if rec.Code != http.StatusNoContent {
			t.Errorf("%s: status = %d, want 204", path, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: preflight body = %q", path, rec.Body.String())
		}
		assertCORS(t, rec.Header())
	}

	if f.lookup.calls != 0 || f.resolver.calls != 0 || f.hits.Load() != 0 {
		t.Error("preflight reached lookup, resolution or the target")
	}
}

func TestPipeline_EscapedPathAndIdentity(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"a b": {plain("a b")}}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/a%20b/files/my%20doc.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := <-f.last
	if got := out.URL.EscapedPath(); got != "/files/my%20doc.txt" {
		t.Errorf("forwarded path = %q", got)
	}
}

func TestPipeline_MissingPathForwardsRoot(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {plain("alice")}}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/alice", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "hello from /" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestPipeline_UpgradeRejected(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {plain("alice")}}, nil)

	r := httptest.NewRequest(http.MethodGet, "/proxy8888/alice/ws", nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	rec := f.do(r)

	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Not enabled for websocket" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if f.hits.Load() != 0 {
		t.Error("upgrade request reached the target")
	}
}

func TestPipeline_TransportFailure(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {plain("alice")}}, nil)

	// Nothing listens on a closed server's port.
	dead := httptest.NewServer(http.NotFoundHandler())
	f.resolver.endpoint = endpointOf(t, dead)
	dead.Close()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/alice/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connect") {
		t.Errorf("error body should describe the failure, got %q", rec.Body.String())
	}
	assertCORS(t, rec.Header())
	if f.recorder.requests[0].outcome != OutcomeTransportError {
		t.Errorf("outcome = %q", f.recorder.requests[0].outcome)
	}
}

func TestPipeline_MetricsOutcomes(t *testing.T) {
	f := newPipelineFixture(t, map[string][]*supervisor.Supervisor{"alice": {tokenized("alice", token.String("s"))}}, nil)

	f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/alice/", nil))
	f.do(httptest.NewRequest(http.MethodGet, "/proxy8888/bob/", nil))
	f.do(httptest.NewRequest(http.MethodOptions, "/proxy8888/alice/", nil))

	want := []string{OutcomeUnauthorized, OutcomeNotFound, OutcomePreflight}
	if len(f.recorder.requests) != len(want) {
		t.Fatalf("recorded %d requests, want %d", len(f.recorder.requests), len(want))
	}
	for i, w := range want {
		if got := f.recorder.requests[i]; got.outcome != w || got.route != "/proxy8888" {
			t.Errorf("request %d = %+v, want outcome %s", i, got, w)
		}
	}
	if len(f.recorder.resolutions) != 1 || f.recorder.resolutions[0] != "found" {
		t.Errorf("resolutions = %v", f.recorder.resolutions)
	}
}

func TestPipeline_Pattern(t *testing.T) {
	p := NewPipeline(RouteConfig{Prefix: "/proxy5000/", InnerPort: 5000}, &fakeLookup{}, &fakeResolver{}, NewForwarder(0))
	if got := p.Pattern(); got != "/proxy5000/" {
		t.Errorf("Pattern() = %q", got)
	}
}
