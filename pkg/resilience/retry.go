package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/poolkeeper/poolkeeper/pkg/metrics"
)

// Operation is a fallible unit of work executed through the framework.
type Operation func(ctx context.Context) error

// RetryPolicy configures retry behavior. Policies are immutable values and
// may be shared across calls.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// BackoffMultiplier grows the delay between attempts.
	BackoffMultiplier float64

	// Jitter randomizes each delay by ±25% to avoid retry storms.
	Jitter bool

	// ShouldRetry decides whether an error is worth retrying. When nil,
	// the error's kind-derived retryable flag is used.
	ShouldRetry func(error) bool
}

// DefaultRetryPolicy returns the default policy: 3 attempts, 1s base delay
// doubling up to 30s, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay returns the backoff delay before retry number attempt (1-based),
// without jitter applied.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// RetryManager executes operations with exponential backoff.
type RetryManager struct {
	logger zerolog.Logger
}

// NewRetryManager creates a retry manager logging through the given logger.
func NewRetryManager(logger zerolog.Logger) *RetryManager {
	return &RetryManager{logger: logger}
}

// Execute runs op up to policy.MaxAttempts times. Non-retryable errors are
// surfaced immediately without further attempts. When attempts are
// exhausted, the last error (never the first) is returned wrapped with the
// attempt count.
func (m *RetryManager) Execute(ctx context.Context, name string, op Operation, policy RetryPolicy) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		metrics.RetryAttemptsTotal.WithLabelValues(name).Inc()

		if !m.shouldRetry(err, policy) {
			m.logger.Debug().
				Str("operation", name).
				Int("attempt", attempt).
				Err(err).
				Msg("error is not retryable, giving up")
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		if policy.Jitter {
			delay = jitter(delay)
		}

		m.logger.Debug().
			Str("operation", name).
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Msg("operation failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	typed := Classify(lastErr)
	return Wrap(typed.Kind, "retries exhausted: "+typed.Message, lastErr).
		WithRetryable(typed.Retryable).
		WithContext("operation", name).
		WithContext("attempts", policy.MaxAttempts)
}

func (m *RetryManager) shouldRetry(err error, policy RetryPolicy) bool {
	if policy.ShouldRetry != nil {
		return policy.ShouldRetry(err)
	}
	return IsRetryable(err)
}

// jitter randomizes d by ±25%.
func jitter(d time.Duration) time.Duration {
	delta := float64(d) * 0.25
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return Wrap(KindTimeout, "retry cancelled", ctx.Err())
	}
}
