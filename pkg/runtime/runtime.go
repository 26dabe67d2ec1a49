package runtime

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no container matches the requested name.
var ErrNotFound = errors.New("container not found")

// PortMapping is one published port pair.
type PortMapping struct {
	HostPort      int
	ContainerPort int
	Protocol      string
}

// ContainerInfo is the raw container record reported by the runtime.
// Rebuilt on every query; never persisted.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	State     string // runtime state: running, exited, created, paused
	Status    string // human status text, e.g. "Up 3 hours (healthy)"
	Health    string // healthy, unhealthy, starting, or "" when no healthcheck
	Ports     []PortMapping
	CreatedAt string
}

// Running reports whether the container is in the running state.
func (c ContainerInfo) Running() bool {
	return c.State == "running"
}

// Runtime is the narrow container-runtime capability Poolkeeper depends
// on. The CLI-based implementation can be swapped for a direct runtime API
// client without touching callers.
type Runtime interface {
	// Inspect returns the container with the given name, or ErrNotFound.
	Inspect(ctx context.Context, name string) (*ContainerInfo, error)

	// List returns every container known to the runtime, running or not.
	List(ctx context.Context) ([]ContainerInfo, error)

	// Restart restarts the named container.
	Restart(ctx context.Context, name string) error

	// Stop stops the named container.
	Stop(ctx context.Context, name string) error

	// Start starts the named container.
	Start(ctx context.Context, name string) error

	// Logs returns up to lines of the most recent log output.
	Logs(ctx context.Context, name string, lines int) (string, error)
}
