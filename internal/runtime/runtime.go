// Package runtime talks to the container runtime: it lists container names
// and fetches inspection records one container at a time.
package runtime

import (
	"context"
	"strings"
)

// Filter selects which containers ListContainers returns
type Filter int

const (
	FilterAll Filter = iota
	FilterRunning
)

func (f Filter) String() string {
	if f == FilterRunning {
		return "running"
	}
	return "all"
}

// Runtime is the narrow capability the pipeline needs from a container runtime
type Runtime interface {
	// ListContainers returns container names without a leading slash
	ListContainers(ctx context.Context, filter Filter) ([]string, error)
	// Inspect returns the inspection output for one container, as a JSON
	// array holding a single record
	Inspect(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// parseNames splits one-name-per-line output, dropping blank lines
func parseNames(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimPrefix(strings.TrimSpace(line), "/")
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
