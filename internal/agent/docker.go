package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// ContainerLister is the slice of the Docker API the collector needs.
type ContainerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
}

// ContainerInfo is one entry of the snapshot's docker section.
type ContainerInfo struct {
	Name   string `json:"name"`
	Image  string `json:"image"`
	Status string `json:"status"`
}

// DockerCollector lists local containers for the docker section.
type DockerCollector struct {
	cli ContainerLister
}

// NewDockerCollector connects to the daemon described by the DOCKER_*
// environment variables.
func NewDockerCollector() (*DockerCollector, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerCollector{cli: cli}, nil
}

func NewDockerCollectorWithClient(cli ContainerLister) *DockerCollector {
	return &DockerCollector{cli: cli}
}

// Collect returns every container, running or not, in daemon order.
func (d *DockerCollector) Collect(ctx context.Context) ([]ContainerInfo, error) {
	list, err := d.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	out := make([]ContainerInfo, 0, len(list))
	for _, c := range list {
		out = append(out, ContainerInfo{
			Name:   containerName(c),
			Image:  c.Image,
			Status: c.Status,
		})
	}
	return out, nil
}

// containerName strips the leading slash Docker puts on names and falls back
// to the short ID.
func containerName(c types.Container) string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}
