package portmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// ErrNoMapping is returned when the container does not currently publish the
// requested port on the supervisor's host address.
var ErrNoMapping = errors.New("no port mapping")

// Binding is one host-side binding of a container port.
type Binding struct {
	HostIP   string
	HostPort string
}

// Bindings is a container's port table keyed by "<port>/<proto>", e.g. "8888/tcp".
type Bindings map[string][]Binding

// Inspector reads the live port table of a container.
//
// A container that does not exist must be reported as empty bindings, not as
// an error; errors are reserved for failing to reach the runtime.
type Inspector interface {
	PortBindings(ctx context.Context, containerID string) (Bindings, error)
}

// Target identifies the container to resolve against and the host address
// its ports are expected to be published on.
type Target struct {
	ContainerID string
	HostIP      string
}

// Endpoint is a resolved host address and port. It is valid for one
// forwarded call only.
type Endpoint struct {
	Host string
	Port int
}

// URL builds the outbound URL for path and rawQuery on this endpoint. path is
// used as received, already escaped.
func (e Endpoint) URL(path, rawQuery string) string {
	u := "http://" + e.String() + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// String returns "host:port".
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Resolver maps a container port to its current host endpoint.
type Resolver struct {
	inspector Inspector
	logger    *slog.Logger
}

// NewResolver creates a resolver backed by inspector.
func NewResolver(inspector Inspector) *Resolver {
	return &Resolver{
		inspector: inspector,
		logger:    slog.Default().With("component", "portmap"),
	}
}

// Resolve returns the endpoint bound to innerPort/tcp on target.HostIP.
//
// The first binding whose host address equals target.HostIP wins. A missing
// entry, no address match or an unparsable host port all yield ErrNoMapping.
// Failures reaching the runtime are returned wrapped.
func (r *Resolver) Resolve(ctx context.Context, target Target, innerPort int) (Endpoint, error) {
	if target.ContainerID == "" {
		return Endpoint{}, fmt.Errorf("%w: supervisor has no container", ErrNoMapping)
	}

	bindings, err := r.inspector.PortBindings(ctx, target.ContainerID)
	if err != nil {
		return Endpoint{}, fmt.Errorf("inspect container %s: %w", target.ContainerID, err)
	}

	key := fmt.Sprintf("%d/tcp", innerPort)
	r.logger.Debug("port bindings",
		"container_id", target.ContainerID,
		"key", key,
		"bindings", bindings[key],
	)

	for _, b := range bindings[key] {
		if b.HostIP != target.HostIP {
			continue
		}
		port, err := strconv.Atoi(b.HostPort)
		if err != nil || port <= 0 || port > 65535 {
			return Endpoint{}, fmt.Errorf("%w: %s has malformed host port %q", ErrNoMapping, key, b.HostPort)
		}
		return Endpoint{Host: target.HostIP, Port: port}, nil
	}

	return Endpoint{}, fmt.Errorf("%w: %s not published on %q", ErrNoMapping, key, target.HostIP)
}
