package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/metrics"
)

// BreakerState represents the state of a circuit breaker.
//
//	CLOSED ──[failure threshold]──► OPEN
//	   ▲                              │ [recovery timeout]
//	   └───[probe successes]── HALF_OPEN ──[probe failure]──► OPEN
type BreakerState int

const (
	// StateClosed is the normal operating state.
	StateClosed BreakerState = iota

	// StateOpen means the circuit has tripped and calls fail fast.
	StateOpen

	// StateHalfOpen means a limited number of probe calls are allowed
	// to test whether the service has recovered.
	StateHalfOpen
)

// String returns a human-readable state name.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures circuit breaker behavior. The defaults preserve
// the long-standing production values; expose overrides sparingly.
type BreakerConfig struct {
	// FailureThreshold is consecutive failures before opening.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open before allowing
	// a half-open probe.
	RecoveryTimeout time.Duration

	// HalfOpenMaxCalls is the number of consecutive probe successes
	// required to close from half-open, and the cap on probes allowed
	// while half-open.
	HalfOpenMaxCalls int
}

// DefaultBreakerConfig returns the default thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// TransitionHook observes breaker state changes, e.g. to journal them.
// Hooks run synchronously with the breaker lock held and must not call
// back into the breaker.
type TransitionHook func(name string, from, to BreakerState)

// CircuitBreaker stops calling a failing service for a cooldown period so
// retries elsewhere cannot cascade into it. Safe for concurrent use, but
// all calls against one service name must share one instance or failure
// counts are miscounted — obtain instances through a Breakers registry.
type CircuitBreaker struct {
	name         string
	config       BreakerConfig
	logger       zerolog.Logger
	onTransition TransitionHook

	mu             sync.Mutex
	state          BreakerState
	failureCount   int
	lastFailure    time.Time
	halfOpenProbes int
	halfOpenOK     int
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(name string, config BreakerConfig, logger zerolog.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger,
		state:  StateClosed,
	}
}

// Execute runs op if the circuit allows it. When the circuit is open and
// the recovery timeout has not elapsed, op is not invoked and an
// unavailable error is returned immediately.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailure) > cb.config.RecoveryTimeout {
			cb.transition(StateHalfOpen)
			cb.halfOpenProbes++
			return nil
		}
		return NewUnavailable(cb.name, "circuit breaker is open").
			WithContext("state", cb.state.String()).
			WithContext("failure_count", cb.failureCount)
	case StateHalfOpen:
		if cb.halfOpenProbes >= cb.config.HalfOpenMaxCalls {
			return NewUnavailable(cb.name, "circuit breaker half-open probe limit reached").
				WithContext("state", cb.state.String())
		}
		cb.halfOpenProbes++
		return nil
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		cb.lastFailure = time.Now()
		switch cb.state {
		case StateClosed:
			if cb.failureCount >= cb.config.FailureThreshold {
				cb.transition(StateOpen)
			}
		case StateHalfOpen:
			// Any probe failure reopens immediately.
			cb.transition(StateOpen)
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0
	case StateHalfOpen:
		cb.halfOpenOK++
		if cb.halfOpenOK >= cb.config.HalfOpenMaxCalls {
			cb.failureCount = 0
			cb.transition(StateClosed)
		}
	}
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(state BreakerState) {
	if cb.state == state {
		return
	}
	old := cb.state
	cb.state = state
	if state == StateHalfOpen {
		cb.halfOpenProbes = 0
		cb.halfOpenOK = 0
	}
	metrics.BreakerState.WithLabelValues(cb.name).Set(float64(state))
	if state == StateOpen {
		metrics.BreakerTripsTotal.WithLabelValues(cb.name).Inc()
	}
	if cb.onTransition != nil {
		cb.onTransition(cb.name, old, state)
	}
	cb.logger.Warn().
		Str("service", cb.name).
		Str("from", old.String()).
		Str("to", state.String()).
		Int("failure_count", cb.failureCount).
		Msg("circuit breaker state change")
}

func (cb *CircuitBreaker) setTransitionHook(hook TransitionHook) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onTransition = hook
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

// Reset forces the breaker back to closed. Use after the service has been
// fixed externally.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.halfOpenProbes = 0
	cb.halfOpenOK = 0
	cb.transition(StateClosed)
}

// Breakers is a per-service-name registry of circuit breakers. Construct
// one per process and route every call against a given service through it;
// there is deliberately no package-level instance.
type Breakers struct {
	defaultConfig BreakerConfig
	logger        zerolog.Logger

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	hook     TransitionHook
}

// NewBreakers creates an empty registry.
func NewBreakers(defaultConfig BreakerConfig, logger zerolog.Logger) *Breakers {
	return &Breakers{
		defaultConfig: defaultConfig,
		logger:        logger,
		breakers:      make(map[string]*CircuitBreaker),
	}
}

// SetTransitionHook installs a hook invoked on every state change of
// breakers in this registry. Affects existing and future breakers.
func (b *Breakers) SetTransitionHook(hook TransitionHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = hook
	for _, cb := range b.breakers {
		cb.setTransitionHook(hook)
	}
}

// Get returns the breaker for a service name, creating it lazily.
func (b *Breakers) Get(name string) *CircuitBreaker {
	b.mu.RLock()
	cb, ok := b.breakers[name]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.breakers[name]; ok {
		return cb
	}
	cb = NewCircuitBreaker(name, b.defaultConfig, b.logger)
	cb.setTransitionHook(b.hook)
	b.breakers[name] = cb
	return cb
}

// States returns the current state of every known breaker.
func (b *Breakers) States() map[string]BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	states := make(map[string]BreakerState, len(b.breakers))
	for name, cb := range b.breakers {
		states[name] = cb.State()
	}
	return states
}

// ResetAll resets every breaker to closed.
func (b *Breakers) ResetAll() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, cb := range b.breakers {
		cb.Reset()
	}
}
