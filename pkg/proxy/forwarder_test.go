package proxy

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/porthole/pkg/portmap"
)

func forward(t *testing.T, f *Forwarder, srv *httptest.Server, r *http.Request, path string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	err := f.Forward(rec, r, endpointOf(t, srv), path)
	return rec, err
}

func TestForward_RelaysResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "https://elsewhere.example")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	rec, err := forward(t, NewForwarder(time.Second), srv, httptest.NewRequest(http.MethodGet, "/x", nil), "/x")
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
	if got := rec.Header().Values("Set-Cookie"); len(got) != 2 || got[0] != "a=1" || got[1] != "b=2" {
		t.Errorf("Set-Cookie = %v", got)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Content-Length") != "" {
		t.Error("Content-Length should not be relayed")
	}
	assertCORS(t, rec.Header())
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestForward_DoesNotFollowRedirects(t *testing.T) {
	var followed bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/elsewhere" {
			followed = true
		}
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	rec, err := forward(t, NewForwarder(time.Second), srv, httptest.NewRequest(http.MethodGet, "/start", nil), "/start")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if rec.Header().Get("Location") != "/elsewhere" {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	if followed {
		t.Error("redirect was followed")
	}
}

func TestForward_RequestShaping(t *testing.T) {
	type seen struct {
		method        string
		body          string
		contentLength int64
		header        http.Header
	}
	got := make(chan seen, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- seen{r.Method, string(b), r.ContentLength, r.Header.Clone()}
	}))
	defer srv.Close()

	f := NewForwarder(time.Second)

	t.Run("body forwarded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPut, "/x", strings.NewReader("payload"))
		r.Header.Set("Proxy-Connection", "keep-alive")
		r.Header.Set(ProxyTokenHeader, "secret")
		r.Header.Set("X-Custom", "kept")
		r.Header.Add("X-Multi", "1")
		r.Header.Add("X-Multi", "2")

		if _, err := forward(t, f, srv, r, "/x"); err != nil {
			t.Fatal(err)
		}
		s := <-got
		if s.method != http.MethodPut || s.body != "payload" || s.contentLength != 7 {
			t.Errorf("seen = %+v", s)
		}
		if s.header.Get("Proxy-Connection") != "" {
			t.Error("Proxy-Connection forwarded")
		}
		if s.header.Get(ProxyTokenHeader) != "" {
			t.Error("X-Proxy-Token forwarded")
		}
		if s.header.Get("X-Custom") != "kept" {
			t.Error("custom header dropped")
		}
		if v := s.header.Values("X-Multi"); len(v) != 2 {
			t.Errorf("X-Multi = %v", v)
		}
	})

	t.Run("empty GET has no body", func(t *testing.T) {
		if _, err := forward(t, f, srv, httptest.NewRequest(http.MethodGet, "/x", nil), "/x"); err != nil {
			t.Fatal(err)
		}
		s := <-got
		if s.body != "" || s.contentLength != 0 {
			t.Errorf("seen = %+v", s)
		}
	})

	t.Run("empty POST has an empty body", func(t *testing.T) {
		if _, err := forward(t, f, srv, httptest.NewRequest(http.MethodPost, "/x", nil), "/x"); err != nil {
			t.Fatal(err)
		}
		s := <-got
		if s.method != http.MethodPost || s.body != "" || s.contentLength != 0 {
			t.Errorf("seen = %+v", s)
		}
	})
}

func TestForward_DecodesCompressedResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			_, _ = io.WriteString(w, "plain")
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, "compressed")
		_ = gz.Close()
	}))
	defer srv.Close()

	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("Accept-Encoding", "gzip, deflate")

	rec, err := forward(t, NewForwarder(time.Second), srv, r, "/x")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("Content-Encoding relayed")
	}
	if rec.Body.String() != "compressed" {
		t.Errorf("body = %q, want decoded payload", rec.Body.String())
	}
}

func TestForward_RejectsUpgrades(t *testing.T) {
	f := NewForwarder(time.Second)

	for _, upgrade := range []string{"websocket", "h2c"} {
		r := httptest.NewRequest(http.MethodGet, "/x", nil)
		r.Header.Set("Connection", "Upgrade")
		r.Header.Set("Upgrade", upgrade)

		err := f.Forward(httptest.NewRecorder(), r, portmap.Endpoint{Host: "127.0.0.1", Port: 1}, "/x")
		if !errors.Is(err, ErrUnsupportedUpgrade) {
			t.Errorf("%s: error = %v, want ErrUnsupportedUpgrade", upgrade, err)
		}
	}
}

func TestForward_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := forward(t, NewForwarder(100*time.Millisecond), srv, httptest.NewRequest(http.MethodGet, "/slow", nil), "/slow")

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error = %v, want *TransportError", err)
	}
	if StatusFor(err) != http.StatusInternalServerError {
		t.Errorf("StatusFor() = %d", StatusFor(err))
	}
}

func TestForward_ClientDisconnectCancelsCall(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
		close(cancelled)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(ctx)

	endpoint := endpointOf(t, srv)
	done := make(chan error, 1)
	go func() {
		done <- NewForwarder(10*time.Second).Forward(httptest.NewRecorder(), r, endpoint, "/x")
	}()

	<-started
	cancel()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("outbound call not cancelled")
	}
	select {
	case err := <-done:
		if err == nil {
			t.Error("Forward() should fail when the caller goes away")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not return")
	}
}
