package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       attempts,
		BaseDelay:         time.Millisecond,
		MaxDelay:          10 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	m := NewRetryManager(zerolog.Nop())

	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewNetwork("connection refused", nil)
		}
		return nil
	}

	if err := m.Execute(context.Background(), "test", op, testPolicy(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_NonRetryableInvokedExactlyOnce(t *testing.T) {
	m := NewRetryManager(zerolog.Nop())

	calls := 0
	op := func(ctx context.Context) error {
		calls++
		return NewValidation("poolSize", "out of range")
	}

	err := m.Execute(context.Background(), "test", op, testPolicy(5))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error retried: calls = %d, want 1", calls)
	}
}

func TestRetry_SurfacesLastError(t *testing.T) {
	m := NewRetryManager(zerolog.Nop())

	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return NewNetwork("first failure", nil)
		}
		return NewNetwork("last failure", nil)
	}

	err := m.Execute(context.Background(), "test", op, testPolicy(3))
	if err == nil {
		t.Fatal("expected error")
	}
	typed := AsTyped(err)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if attempts := typed.Context["attempts"]; attempts != 3 {
		t.Errorf("attempts = %v, want 3", attempts)
	}
	var last *Error
	if !errors.As(typed.Cause, &last) || last.Message != "last failure" {
		t.Errorf("wrapped cause = %v, want the last error", typed.Cause)
	}
}

func TestRetry_PredicateOverridesKind(t *testing.T) {
	m := NewRetryManager(zerolog.Nop())

	calls := 0
	policy := testPolicy(3)
	policy.ShouldRetry = func(error) bool { return false }

	op := func(ctx context.Context) error {
		calls++
		return NewNetwork("would normally retry", nil)
	}

	if err := m.Execute(context.Background(), "test", op, policy); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetry_ContextCancellationStopsRetries(t *testing.T) {
	m := NewRetryManager(zerolog.Nop())

	policy := testPolicy(10)
	policy.BaseDelay = time.Hour // would block forever without cancellation
	policy.Jitter = false

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := m.Execute(ctx, "test", func(ctx context.Context) error {
		return NewNetwork("down", nil)
	}, policy)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the backoff sleep")
	}
}

func TestRetryPolicy_DelayCappedAtMax(t *testing.T) {
	p := RetryPolicy{
		BaseDelay:         time.Second,
		MaxDelay:          4 * time.Second,
		BackoffMultiplier: 2.0,
	}

	if d := p.Delay(1); d != time.Second {
		t.Errorf("Delay(1) = %s, want 1s", d)
	}
	if d := p.Delay(2); d != 2*time.Second {
		t.Errorf("Delay(2) = %s, want 2s", d)
	}
	if d := p.Delay(10); d != 4*time.Second {
		t.Errorf("Delay(10) = %s, want capped 4s", d)
	}
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := jitter(base)
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("jittered delay %s outside ±25%% of %s", d, base)
		}
	}
}
