package resilience

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/metrics"
)

// ValueOperation is a fallible unit of work producing a result.
type ValueOperation func(ctx context.Context) (any, error)

// Degrader provides graceful degradation: when a primary operation fails,
// a registered fallback for that service name is tried before giving up.
// It also tracks a coarse per-service health signal that self-heals on the
// next primary success, independent of circuit breaker state.
type Degrader struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	fallbacks map[string]ValueOperation
	healthy   map[string]bool
}

// NewDegrader creates an empty degradation manager.
func NewDegrader(logger zerolog.Logger) *Degrader {
	return &Degrader{
		logger:    logger,
		fallbacks: make(map[string]ValueOperation),
		healthy:   make(map[string]bool),
	}
}

// RegisterFallback registers the fallback used when primary operations
// against name fail.
func (d *Degrader) RegisterFallback(name string, fallback ValueOperation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallbacks[name] = fallback
}

// ExecuteWithFallback runs primary; on failure it marks the service
// unhealthy and runs the registered fallback, if any. A fallback failure
// produces an error recording both failures. Without a registered fallback
// the original error is annotated with fallback_available=false.
func (d *Degrader) ExecuteWithFallback(ctx context.Context, name string, primary ValueOperation) (any, error) {
	result, err := primary(ctx)
	if err == nil {
		d.setHealthy(name, true)
		return result, nil
	}

	d.setHealthy(name, false)
	d.mu.RLock()
	fallback, ok := d.fallbacks[name]
	d.mu.RUnlock()

	if !ok {
		typed := Classify(err)
		return nil, Wrap(typed.Kind, typed.Message, err).
			WithRetryable(typed.Retryable).
			WithContext("service", name).
			WithContext("fallback_available", false)
	}

	d.logger.Warn().
		Str("service", name).
		Err(err).
		Msg("primary operation failed, using fallback")
	metrics.FallbacksTotal.WithLabelValues(name).Inc()

	result, fbErr := fallback(ctx)
	if fbErr != nil {
		return nil, Wrap(KindUnavailable, "primary and fallback both failed", err).
			WithContext("service", name).
			WithContext("primary_error", err.Error()).
			WithContext("fallback_error", fbErr.Error())
	}
	return result, nil
}

// IsHealthy reports the last known health signal for a service. Services
// never seen before report healthy.
func (d *Degrader) IsHealthy(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	healthy, ok := d.healthy[name]
	if !ok {
		return true
	}
	return healthy
}

// ServiceHealth returns a snapshot of all tracked health signals.
func (d *Degrader) ServiceHealth() map[string]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snapshot := make(map[string]bool, len(d.healthy))
	for name, healthy := range d.healthy {
		snapshot[name] = healthy
	}
	return snapshot
}

func (d *Degrader) setHealthy(name string, healthy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.healthy[name] = healthy
}
