package resilience

import (
	"context"

	"github.com/rs/zerolog"
)

// Options selects which protection layers wrap a call. Layers compose
// concentrically: circuit breaker innermost (fastest fail), retry in the
// middle, fallback outermost. Disabling one layer never changes the
// behavior of the others.
type Options struct {
	// Retry enables the retry layer with the given policy.
	Retry *RetryPolicy

	// Breaker routes the call through the service's shared breaker.
	Breaker bool

	// Fallback enables the degradation layer, consulting any fallback
	// registered for the service name.
	Fallback bool
}

// Handler is the per-process facade over retry, circuit breaking, and
// graceful degradation, keyed by service name. Construct one per process
// (tests construct their own) — there is no package-level instance.
type Handler struct {
	retry    *RetryManager
	breakers *Breakers
	degrader *Degrader
	logger   zerolog.Logger
}

// NewHandler creates a handler with the given breaker defaults.
func NewHandler(breakerConfig BreakerConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		retry:    NewRetryManager(logger),
		breakers: NewBreakers(breakerConfig, logger),
		degrader: NewDegrader(logger),
		logger:   logger,
	}
}

// Breakers exposes the breaker registry, mainly for status reporting.
func (h *Handler) Breakers() *Breakers {
	return h.breakers
}

// Degrader exposes the degradation manager for fallback registration.
func (h *Handler) Degrader() *Degrader {
	return h.degrader
}

// Execute runs op against the named service with the selected layers.
func (h *Handler) Execute(ctx context.Context, service string, op Operation, opts Options) error {
	wrapped := op

	if opts.Breaker {
		cb := h.breakers.Get(service)
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return cb.Execute(ctx, inner)
		}
	}

	if opts.Retry != nil {
		inner := wrapped
		policy := *opts.Retry
		wrapped = func(ctx context.Context) error {
			return h.retry.Execute(ctx, service, inner, policy)
		}
	}

	if opts.Fallback {
		inner := wrapped
		_, err := h.degrader.ExecuteWithFallback(ctx, service, func(ctx context.Context) (any, error) {
			return nil, inner(ctx)
		})
		return err
	}

	return wrapped(ctx)
}

// ExecuteValue is Execute for result-producing operations. The fallback
// layer, when enabled and registered, supplies the degraded result.
func (h *Handler) ExecuteValue(ctx context.Context, service string, op ValueOperation, opts Options) (any, error) {
	var result any
	run := func(ctx context.Context) error {
		var err error
		result, err = op(ctx)
		return err
	}

	wrapped := run
	if opts.Breaker {
		cb := h.breakers.Get(service)
		inner := wrapped
		wrapped = func(ctx context.Context) error {
			return cb.Execute(ctx, inner)
		}
	}
	if opts.Retry != nil {
		inner := wrapped
		policy := *opts.Retry
		wrapped = func(ctx context.Context) error {
			return h.retry.Execute(ctx, service, inner, policy)
		}
	}

	if opts.Fallback {
		return h.degrader.ExecuteWithFallback(ctx, service, func(ctx context.Context) (any, error) {
			if err := wrapped(ctx); err != nil {
				return nil, err
			}
			return result, nil
		})
	}

	if err := wrapped(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
