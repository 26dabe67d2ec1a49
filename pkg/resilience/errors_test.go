package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_RetryableDerivedFromKind(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
	}{
		{KindValidation, false},
		{KindNetwork, true},
		{KindStorage, false},
		{KindConfiguration, false},
		{KindTimeout, true},
		{KindRateLimit, true},
		{KindUnavailable, true},
		{KindUnknown, false},
	}

	for _, tt := range tests {
		e := New(tt.kind, "boom")
		if e.Retryable != tt.retryable {
			t.Errorf("kind %s: retryable = %v, want %v", tt.kind, e.Retryable, tt.retryable)
		}
		if e.CreatedAt.IsZero() {
			t.Errorf("kind %s: CreatedAt not set", tt.kind)
		}
	}
}

func TestWithRetryable_OverridesDefault(t *testing.T) {
	e := New(KindStorage, "transient disk blip").WithRetryable(true)
	if !e.Retryable {
		t.Error("explicit override should win over kind default")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	e := Wrap(KindNetwork, "request failed", cause)

	if !errors.Is(e, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestClassify_KeywordMatching(t *testing.T) {
	tests := []struct {
		msg  string
		kind Kind
	}{
		{"context deadline exceeded", KindTimeout},
		{"operation timed out", KindTimeout},
		{"dial tcp 127.0.0.1:6543: connection refused", KindNetwork},
		{"database is locked", KindStorage},
		{"401 unauthorized", KindAuthentication},
		{"permission denied", KindAuthorization},
		{"429 too many requests", KindRateLimit},
		{"Error: No such container: pooler", KindUnavailable},
		{"something completely different", KindUnknown},
	}

	for _, tt := range tests {
		got := Classify(errors.New(tt.msg))
		if got.Kind != tt.kind {
			t.Errorf("Classify(%q) = %s, want %s", tt.msg, got.Kind, tt.kind)
		}
	}
}

func TestClassify_UnknownIsNotRetryable(t *testing.T) {
	got := Classify(errors.New("garbled nonsense"))
	if got.Kind != KindUnknown {
		t.Fatalf("kind = %s, want unknown", got.Kind)
	}
	if got.Retryable {
		t.Error("unknown errors must not be retryable")
	}
}

func TestClassify_TypedPassthrough(t *testing.T) {
	orig := NewValidation("poolSize", "out of range")
	got := Classify(fmt.Errorf("wrapped: %w", orig))
	if got != orig {
		t.Error("typed errors should pass through classification unchanged")
	}
}

func TestNewUnavailable_CarriesSuggestions(t *testing.T) {
	e := NewUnavailable("pooler", "service is down")
	suggestions, ok := e.Context["suggestions"].([]string)
	if !ok || len(suggestions) == 0 {
		t.Fatal("unavailable errors must carry actionable suggestions")
	}
	if _, ok := e.Context["retry_after"]; !ok {
		t.Error("unavailable errors must carry a retry delay estimate")
	}
}
