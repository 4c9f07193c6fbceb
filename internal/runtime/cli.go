package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CLI runs the docker command-line client
type CLI struct {
	binary string
}

// NewCLI creates a runtime backed by the given docker executable
func NewCLI(binary string) *CLI {
	if binary == "" {
		binary = "docker"
	}
	return &CLI{binary: binary}
}

// ListContainers runs "docker ps [--all] --format {{.Names}}"
func (c *CLI) ListContainers(ctx context.Context, filter Filter) ([]string, error) {
	args := []string{"ps"}
	if filter == FilterAll {
		args = append(args, "--all")
	}
	args = append(args, "--format", "{{.Names}}")

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s containers: %w", filter, err)
	}
	return parseNames(string(out)), nil
}

// Inspect runs "docker inspect <name>"
func (c *CLI) Inspect(ctx context.Context, name string) ([]byte, error) {
	out, err := c.run(ctx, "inspect", name)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return out, nil
}

func (c *CLI) Close() error {
	return nil
}

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = exitError.Error()
			}
			return nil, fmt.Errorf("%s exited with code %d: %s", c.binary, exitError.ExitCode(), msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
