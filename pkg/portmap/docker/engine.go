package docker

import (
	"context"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// containerJSON is the part of an inspection result this package reads.
type containerJSON struct {
	ID    string
	Ports nat.PortMap
}

// engineAPI adapts *client.Client to containerAPI.
type engineAPI struct {
	cli *client.Client
}

func (e *engineAPI) ContainerInspect(ctx context.Context, containerID string) (containerJSON, error) {
	info, err := e.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return containerJSON{}, err
	}
	out := containerJSON{ID: info.ID}
	if info.NetworkSettings != nil {
		out.Ports = info.NetworkSettings.Ports
	}
	return out, nil
}

func (e *engineAPI) Ping(ctx context.Context) error {
	_, err := e.cli.Ping(ctx)
	return err
}

func (e *engineAPI) Close() error {
	return e.cli.Close()
}
