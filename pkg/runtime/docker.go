package runtime

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/log"
)

const (
	// commandTimeout bounds every docker invocation so a hung daemon can
	// never block the engine indefinitely.
	commandTimeout = 30 * time.Second

	// queryTimeout bounds read-only queries, which should be fast.
	queryTimeout = 10 * time.Second
)

// Runner executes an external command and returns its combined output.
// Injectable so tests can fake the docker CLI.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// DockerCLI implements Runtime by shelling out to the docker binary and
// parsing its newline-delimited JSON records.
type DockerCLI struct {
	runner Runner
	binary string
	logger zerolog.Logger
}

// Option configures a DockerCLI.
type Option func(*DockerCLI)

// WithRunner replaces the command runner, used by tests.
func WithRunner(r Runner) Option {
	return func(d *DockerCLI) { d.runner = r }
}

// WithBinary replaces the docker binary name (e.g. "podman").
func WithBinary(binary string) Option {
	return func(d *DockerCLI) { d.binary = binary }
}

// NewDockerCLI creates a docker-backed runtime.
func NewDockerCLI(opts ...Option) *DockerCLI {
	d := &DockerCLI{
		runner: execRunner{},
		binary: "docker",
		logger: log.WithComponent("runtime"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Inspect returns the container with the given name, or ErrNotFound.
func (d *DockerCLI) Inspect(ctx context.Context, name string) (*ContainerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := d.runner.Run(ctx, d.binary, "ps", "-a",
		"--filter", "name=^"+name+"$",
		"--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Errorf("failed to query container %s: %w", name, err)
	}

	containers, err := ParsePSOutput(out)
	if err != nil {
		return nil, err
	}
	for i := range containers {
		if containers[i].Name == name {
			return &containers[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns every container known to the runtime.
func (d *DockerCLI) List(ctx context.Context) ([]ContainerInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := d.runner.Run(ctx, d.binary, "ps", "-a", "--format", "{{json .}}")
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return ParsePSOutput(out)
}

// Restart restarts the named container.
func (d *DockerCLI) Restart(ctx context.Context, name string) error {
	return d.lifecycle(ctx, "restart", name)
}

// Stop stops the named container.
func (d *DockerCLI) Stop(ctx context.Context, name string) error {
	return d.lifecycle(ctx, "stop", name)
}

// Start starts the named container.
func (d *DockerCLI) Start(ctx context.Context, name string) error {
	return d.lifecycle(ctx, "start", name)
}

func (d *DockerCLI) lifecycle(ctx context.Context, verb, name string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	d.logger.Debug().Str("verb", verb).Str("container", name).Msg("issuing lifecycle command")
	if _, err := d.runner.Run(ctx, d.binary, verb, name); err != nil {
		return fmt.Errorf("failed to %s container %s: %w", verb, name, err)
	}
	return nil
}

// Logs returns up to lines of recent log output.
func (d *DockerCLI) Logs(ctx context.Context, name string, lines int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if lines <= 0 {
		lines = 100
	}
	out, err := d.runner.Run(ctx, d.binary, "logs", "--tail", strconv.Itoa(lines), name)
	if err != nil {
		return "", fmt.Errorf("failed to fetch logs for %s: %w", name, err)
	}
	return string(out), nil
}
