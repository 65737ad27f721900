package proxy

import (
	"context"
	"net"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"mercator-hq/porthole/pkg/portmap"
	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/token"
)

type fakeLookup struct {
	sups  map[string][]*supervisor.Supervisor
	calls int
}

func (f *fakeLookup) LookupSupervisors(_ context.Context, identity string) ([]*supervisor.Supervisor, error) {
	f.calls++
	sups, ok := f.sups[identity]
	if !ok {
		return nil, supervisor.ErrUnknownIdentity
	}
	return sups, nil
}

type fakeResolver struct {
	endpoint portmap.Endpoint
	err      error
	calls    int
	port     int
}

func (f *fakeResolver) Resolve(_ context.Context, _ portmap.Target, innerPort int) (portmap.Endpoint, error) {
	f.calls++
	f.port = innerPort
	return f.endpoint, f.err
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (f *fakeSaver) Save(_ context.Context, sup *supervisor.Supervisor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, sup.String())
	return f.err
}

type recordedRequest struct {
	route, outcome string
}

type fakeRecorder struct {
	mu          sync.Mutex
	requests    []recordedRequest
	resolutions []string
	changes     []string
}

func (f *fakeRecorder) RecordProxyRequest(route, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{route, outcome})
}

func (f *fakeRecorder) RecordPortResolution(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions = append(f.resolutions, result)
}

func (f *fakeRecorder) RecordTokenChange(action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, action)
}

// endpointOf returns the endpoint of a test server.
func endpointOf(t *testing.T, srv *httptest.Server) portmap.Endpoint {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatal(err)
	}
	return portmap.Endpoint{Host: host, Port: p}
}

func tokenized(identity string, secret *string) *supervisor.Supervisor {
	s := supervisor.New(identity, "", supervisor.KindTokenized, "c-"+identity, "127.0.0.1")
	token.Set(s.Token, secret)
	return s
}

func plain(identity string) *supervisor.Supervisor {
	return supervisor.New(identity, "", supervisor.KindContainer, "c-"+identity, "127.0.0.1")
}
