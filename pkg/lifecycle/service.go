package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/health"
	"github.com/poolkeeper/poolkeeper/pkg/log"
	"github.com/poolkeeper/poolkeeper/pkg/metrics"
	"github.com/poolkeeper/poolkeeper/pkg/resilience"
	"github.com/poolkeeper/poolkeeper/pkg/runtime"
)

// ContainerState is the coarse state reported to callers.
type ContainerState string

const (
	StateRunning ContainerState = "running"
	StateStopped ContainerState = "stopped"
	StateError   ContainerState = "error"
)

// HealthState is the health verdict reported to callers.
type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthUnhealthy HealthState = "unhealthy"
	HealthStarting  HealthState = "starting"
	HealthNone      HealthState = "none"
)

// ContainerStatus is the full status of one managed service. Rebuilt on
// every query; never persisted.
type ContainerStatus struct {
	Name        string
	Status      ContainerState
	Health      HealthState
	Uptime      string
	Ports       []runtime.PortMapping
	ContainerID string
	Image       string
	CreatedAt   string
}

const (
	// settlePeriod is how long to wait after a lifecycle command before
	// re-querying state. Container daemons frequently report success
	// before the process is actually accepting connections.
	settlePeriod = 2 * time.Second

	// healthPollInterval is the pause between polls in AwaitHealthy.
	healthPollInterval = 2 * time.Second

	// DefaultHealthTimeout is the default AwaitHealthy deadline.
	DefaultHealthTimeout = 30 * time.Second
)

// Service discovers container state, performs per-service health checks
// with a time-boxed cache, and exposes restart/stop/start/logs operations
// for the managed stack.
type Service struct {
	rt     runtime.Runtime
	stack  *Stack
	cache  *resultCache
	logger zerolog.Logger

	// settle and sleep are swappable for tests.
	settle time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewService creates a lifecycle service over the given runtime and stack.
func NewService(rt runtime.Runtime, stack *Stack) *Service {
	return &Service{
		rt:     rt,
		stack:  stack,
		cache:  newResultCache(cacheTTL),
		logger: log.WithComponent("lifecycle"),
		settle: settlePeriod,
		sleep:  sleepCtx,
	}
}

// Stack returns the managed service definitions.
func (s *Service) Stack() *Stack {
	return s.stack
}

// GetStatus reports the status of the named service. The runtime is asked
// first for structured status; when it is unreachable, a successful health
// probe infers a running container with unknown uptime. Failures of the
// whole procedure yield status=error, health=none rather than propagating.
func (s *Service) GetStatus(ctx context.Context, name string) ContainerStatus {
	def, ok := s.stack.Lookup(name)
	if !ok {
		return ContainerStatus{Name: name, Status: StateError, Health: HealthNone}
	}

	info, err := s.rt.Inspect(ctx, def.Container)
	if err != nil {
		return s.statusWithoutRuntime(ctx, def, err)
	}

	status := ContainerStatus{
		Name:        name,
		Uptime:      runtime.ParseUptime(info.Status),
		Ports:       info.Ports,
		ContainerID: info.ID,
		Image:       info.Image,
		CreatedAt:   info.CreatedAt,
	}

	switch {
	case info.Running():
		status.Status = StateRunning
	case strings.EqualFold(info.State, "exited"), strings.EqualFold(info.State, "created"):
		status.Status = StateStopped
	default:
		status.Status = StateError
	}

	switch info.Health {
	case "healthy":
		status.Health = HealthHealthy
	case "unhealthy":
		status.Health = HealthUnhealthy
	case "starting":
		status.Health = HealthStarting
	default:
		// No runtime healthcheck configured: fall back to our own probe
		// when the container is running.
		if status.Status == StateRunning {
			if s.probe(ctx, def).Healthy {
				status.Health = HealthHealthy
			} else {
				status.Health = HealthUnhealthy
			}
		} else {
			status.Health = HealthNone
		}
	}
	return status
}

// statusWithoutRuntime infers status from a probe when the runtime cannot
// be queried.
func (s *Service) statusWithoutRuntime(ctx context.Context, def ServiceDefinition, cause error) ContainerStatus {
	s.logger.Debug().
		Str("service", def.Name).
		Err(cause).
		Msg("runtime unreachable, inferring status from health probe")

	result := s.probe(ctx, def)
	if result.Healthy {
		return ContainerStatus{
			Name:   def.Name,
			Status: StateRunning,
			Health: HealthHealthy,
			Uptime: "unknown",
		}
	}
	return ContainerStatus{Name: def.Name, Status: StateError, Health: HealthNone}
}

// CheckHealth probes the named service, serving a cached result when one
// is fresh (30s TTL). The cache is read-through: expired entries are
// recomputed and stored.
func (s *Service) CheckHealth(ctx context.Context, name string) (health.Result, error) {
	def, ok := s.stack.Lookup(name)
	if !ok {
		return health.Result{}, resilience.New(resilience.KindValidation, "unknown service: "+name)
	}

	if result, ok := s.cache.get(name); ok {
		return result, nil
	}

	result := s.probe(ctx, def)
	s.cache.put(name, result)
	return result, nil
}

// probe runs the service's configured check, uncached, and records
// metrics. For HTTP services whose health endpoint is unreachable while
// the container itself is running, the service is optimistically
// considered healthy. That default can mask a real outage behind a dead
// management endpoint; it is a deliberate policy choice, not an accident.
func (s *Service) probe(ctx context.Context, def ServiceDefinition) health.Result {
	result := def.Checker().Check(ctx)
	metrics.HealthCheckDuration.WithLabelValues(def.Name).Observe(result.ResponseTime.Seconds())

	if !result.Healthy && def.Check == "http" {
		if info, err := s.rt.Inspect(ctx, def.Container); err == nil && info.Running() {
			result = health.Result{
				Healthy:      true,
				Message:      fmt.Sprintf("health endpoint unreachable but container is running: %s", result.Message),
				CheckedAt:    result.CheckedAt,
				ResponseTime: result.ResponseTime,
			}
		}
	}

	if result.Healthy {
		metrics.HealthStatus.WithLabelValues(def.Name).Set(1)
	} else {
		metrics.HealthStatus.WithLabelValues(def.Name).Set(0)
	}
	return result
}

// Restart restarts the named service's container, waits a settle period,
// and re-queries running state instead of trusting the command's exit
// code.
func (s *Service) Restart(ctx context.Context, name string) error {
	return s.lifecycle(ctx, name, "restart", s.rt.Restart, true)
}

// Start starts the named service's container and verifies it is running.
func (s *Service) Start(ctx context.Context, name string) error {
	return s.lifecycle(ctx, name, "start", s.rt.Start, true)
}

// Stop stops the named service's container.
func (s *Service) Stop(ctx context.Context, name string) error {
	return s.lifecycle(ctx, name, "stop", s.rt.Stop, false)
}

func (s *Service) lifecycle(ctx context.Context, name, verb string, cmd func(context.Context, string) error, verifyRunning bool) error {
	def, ok := s.stack.Lookup(name)
	if !ok {
		return resilience.New(resilience.KindValidation, "unknown service: "+name)
	}

	if verifyRunning {
		// Restart/start require the container to exist first.
		if _, err := s.rt.Inspect(ctx, def.Container); err != nil {
			metrics.ContainerRestartsTotal.WithLabelValues(name, "failure").Inc()
			return resilience.NewUnavailable(name, fmt.Sprintf("container %s not found", def.Container)).
				WithContext("verb", verb)
		}
	}

	if err := cmd(ctx, def.Container); err != nil {
		metrics.ContainerRestartsTotal.WithLabelValues(name, "failure").Inc()
		return resilience.Wrap(resilience.KindUnavailable, fmt.Sprintf("failed to %s %s", verb, name), err)
	}

	if !verifyRunning {
		s.logger.Info().Str("service", name).Str("verb", verb).Msg("lifecycle command completed")
		return nil
	}

	if err := s.sleep(ctx, s.settle); err != nil {
		return err
	}

	info, err := s.rt.Inspect(ctx, def.Container)
	if err != nil || !info.Running() {
		metrics.ContainerRestartsTotal.WithLabelValues(name, "failure").Inc()
		return resilience.NewUnavailable(name, fmt.Sprintf("container %s did not reach running state after %s", def.Container, verb)).
			WithContext("verb", verb)
	}

	metrics.ContainerRestartsTotal.WithLabelValues(name, "success").Inc()
	s.logger.Info().Str("service", name).Str("verb", verb).Msg("container is running")
	return nil
}

// GetLogs returns the most recent lines of log output, or a single
// explanatory placeholder line when no logs exist or the runtime call
// fails. Callers never receive an empty result silently.
func (s *Service) GetLogs(ctx context.Context, name string, lines int) string {
	def, ok := s.stack.Lookup(name)
	if !ok {
		return fmt.Sprintf("unknown service: %s", name)
	}

	out, err := s.rt.Logs(ctx, def.Container, lines)
	if err != nil {
		s.logger.Debug().Str("service", name).Err(err).Msg("log fetch failed")
		return fmt.Sprintf("logs unavailable for %s: %v", name, err)
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Sprintf("no logs recorded for %s", name)
	}
	return out
}

// AwaitHealthy polls the named service until it is both running and
// healthy, or the timeout elapses. Polling goes through GetStatus, which
// is rebuilt fresh on every query. An explicit error state short-circuits
// the wait immediately.
func (s *Service) AwaitHealthy(ctx context.Context, name string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		status := s.GetStatus(ctx, name)
		if status.Status == StateRunning && status.Health == HealthHealthy {
			return nil
		}
		if status.Status == StateError {
			return resilience.NewUnavailable(name, "service entered error state while waiting for health").
				WithContext("health", string(status.Health))
		}
		if time.Now().After(deadline) {
			return resilience.NewTimeout("health verification", timeout).
				WithContext("service", name).
				WithContext("last_status", string(status.Status)).
				WithContext("last_health", string(status.Health))
		}
		if err := s.sleep(ctx, healthPollInterval); err != nil {
			return err
		}
	}
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return resilience.Wrap(resilience.KindTimeout, "wait cancelled", ctx.Err())
	}
}
