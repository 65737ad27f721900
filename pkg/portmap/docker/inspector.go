// Package docker implements portmap.Inspector on top of the Docker Engine API.
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"

	"mercator-hq/porthole/pkg/portmap"
)

// Config selects the Docker daemon to talk to.
type Config struct {
	// Host is the daemon address, e.g. "unix:///var/run/docker.sock".
	// Empty uses DOCKER_HOST or the platform default.
	Host string

	// APIVersion pins the Engine API version. Empty negotiates it.
	APIVersion string
}

// containerAPI is the subset of the Docker client used here.
type containerAPI interface {
	ContainerInspect(ctx context.Context, containerID string) (containerJSON, error)
	Ping(ctx context.Context) error
	Close() error
}

// Inspector reads published ports from container inspection data.
type Inspector struct {
	api containerAPI
}

// New connects an Inspector to the daemon described by cfg.
func New(cfg Config) (*Inspector, error) {
	opts := []client.Opt{client.FromEnv}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Inspector{api: &engineAPI{cli: cli}}, nil
}

// PortBindings returns the port table of containerID. A container that does
// not exist has no bindings.
func (i *Inspector) PortBindings(ctx context.Context, containerID string) (portmap.Bindings, error) {
	info, err := i.api.ContainerInspect(ctx, containerID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return portmap.Bindings{}, nil
		}
		return nil, err
	}
	return convert(info.Ports), nil
}

// Ping checks that the daemon is reachable.
func (i *Inspector) Ping(ctx context.Context) error {
	if err := i.api.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (i *Inspector) Close() error {
	return i.api.Close()
}

func convert(ports nat.PortMap) portmap.Bindings {
	out := make(portmap.Bindings, len(ports))
	for port, bindings := range ports {
		list := make([]portmap.Binding, 0, len(bindings))
		for _, b := range bindings {
			list = append(list, portmap.Binding{HostIP: b.HostIP, HostPort: b.HostPort})
		}
		out[string(port)] = list
	}
	return out
}
