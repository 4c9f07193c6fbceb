package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// SDK talks to the Docker Engine API directly
type SDK struct {
	client *client.Client
}

// NewSDK creates a runtime from the DOCKER_HOST environment
func NewSDK() (*SDK, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &SDK{
		client: cli,
	}, nil
}

// IsAvailable checks if Docker is available
func (s *SDK) IsAvailable(ctx context.Context) bool {
	_, err := s.client.Ping(ctx)
	return err == nil
}

// ListContainers returns container names in the order the engine reports them
func (s *SDK) ListContainers(ctx context.Context, filter Filter) ([]string, error) {
	containers, err := s.client.ContainerList(ctx, container.ListOptions{
		All: filter == FilterAll,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s containers: %w", filter, err)
	}

	var names []string
	for _, c := range containers {
		if len(c.Names) == 0 {
			continue
		}
		names = append(names, strings.TrimPrefix(c.Names[0], "/"))
	}
	return names, nil
}

// Inspect returns the raw engine record wrapped in a one-element array,
// the same shape "docker inspect" prints.
func (s *SDK) Inspect(ctx context.Context, name string) ([]byte, error) {
	_, raw, err := s.client.ContainerInspectWithRaw(ctx, name, false)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return wrapRecord(raw), nil
}

// Close closes the Docker client
func (s *SDK) Close() error {
	return s.client.Close()
}

func wrapRecord(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+3)
	out = append(out, '[')
	out = append(out, raw...)
	out = append(out, ']', '\n')
	return out
}
