package resilience

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies an error into the closed taxonomy used across Poolkeeper.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNetwork        Kind = "network"
	KindStorage        Kind = "storage"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConfiguration  Kind = "configuration"
	KindTimeout        Kind = "timeout"
	KindRateLimit      Kind = "rate_limit"
	KindUnavailable    Kind = "unavailable"
	KindUnknown        Kind = "unknown"
)

// Severity indicates how serious an error is for alerting and triage.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// retryableByKind is the deterministic default for the Retryable flag.
// A constructor may override it explicitly.
var retryableByKind = map[Kind]bool{
	KindValidation:     false,
	KindNetwork:        true,
	KindStorage:        false,
	KindAuthentication: false,
	KindAuthorization:  false,
	KindConfiguration:  false,
	KindTimeout:        true,
	KindRateLimit:      true,
	KindUnavailable:    true,
	KindUnknown:        false,
}

// severityByKind is the default severity assigned per kind.
var severityByKind = map[Kind]Severity{
	KindValidation:     SeverityLow,
	KindNetwork:        SeverityMedium,
	KindStorage:        SeverityHigh,
	KindAuthentication: SeverityMedium,
	KindAuthorization:  SeverityMedium,
	KindConfiguration:  SeverityHigh,
	KindTimeout:        SeverityMedium,
	KindRateLimit:      SeverityLow,
	KindUnavailable:    SeverityHigh,
	KindUnknown:        SeverityMedium,
}

// Error is the typed error carried through retry, circuit breaking, and
// fallback layers. It is immutable after construction: builder methods
// return the receiver and are only meant to be chained at the throw site.
type Error struct {
	Kind      Kind
	Severity  Severity
	Message   string
	Retryable bool
	Context   map[string]any
	CreatedAt time.Time
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key-value pair. Chain at construction time only.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRetryable overrides the kind-derived retryable flag.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// New creates a typed error of the given kind with kind-derived defaults.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Severity:  severityByKind[kind],
		Message:   message,
		Retryable: retryableByKind[kind],
		CreatedAt: time.Now(),
	}
}

// Wrap creates a typed error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Cause = cause
	return e
}

// NewValidation creates a validation error carrying the offending field.
func NewValidation(field, message string) *Error {
	return New(KindValidation, message).WithContext("field", field)
}

// NewConfiguration creates a configuration error.
func NewConfiguration(message string, cause error) *Error {
	return Wrap(KindConfiguration, message, cause)
}

// NewNetwork creates a network error.
func NewNetwork(message string, cause error) *Error {
	return Wrap(KindNetwork, message, cause)
}

// NewStorage creates a storage error.
func NewStorage(message string, cause error) *Error {
	return Wrap(KindStorage, message, cause)
}

// NewTimeout creates a timeout error for the named operation.
func NewTimeout(operation string, timeout time.Duration) *Error {
	return New(KindTimeout, fmt.Sprintf("operation %s timed out after %s", operation, timeout)).
		WithContext("operation", operation).
		WithContext("timeout", timeout.String())
}

// NewUnavailable creates a service-unavailable error with actionable
// suggestions and an estimated retry delay for the caller.
func NewUnavailable(service, message string) *Error {
	return New(KindUnavailable, message).
		WithContext("service", service).
		WithContext("suggestions", Suggestions(KindUnavailable)).
		WithContext("retry_after", RetryDelayHint(KindUnavailable).String())
}

// AsTyped extracts a *Error from err's chain, or nil if none is present.
func AsTyped(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsRetryable reports whether err should be retried. Untyped errors are
// classified first.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable
}

// classificationRules maps message substrings to kinds. Checked in order;
// first match wins. This is a best-effort heuristic for errors raised
// outside our control and may misclassify — code under our control should
// construct typed errors at the throw site instead.
var classificationRules = []struct {
	substrings []string
	kind       Kind
}{
	{[]string{"timeout", "timed out", "deadline exceeded"}, KindTimeout},
	{[]string{"connection refused", "connection reset", "no such host", "network", "dial tcp", "broken pipe"}, KindNetwork},
	{[]string{"database", "sql", "disk", "no space", "read-only file system"}, KindStorage},
	{[]string{"unauthorized", "authentication", "invalid credentials"}, KindAuthentication},
	{[]string{"forbidden", "permission denied", "access denied"}, KindAuthorization},
	{[]string{"rate limit", "too many requests"}, KindRateLimit},
	{[]string{"unavailable", "not running", "no such container"}, KindUnavailable},
	{[]string{"invalid", "validation", "malformed"}, KindValidation},
}

// Classify converts an arbitrary error into a typed one. Errors that are
// already typed pass through unchanged. Messages matching no rule become
// kind=unknown, non-retryable.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if typed := AsTyped(err); typed != nil {
		return typed
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return Wrap(rule.kind, err.Error(), err)
			}
		}
	}
	return Wrap(KindUnknown, err.Error(), err)
}

// RetryDelayHint estimates how long a caller should wait before retrying
// an error of the given kind.
func RetryDelayHint(kind Kind) time.Duration {
	switch kind {
	case KindRateLimit:
		return 60 * time.Second
	case KindUnavailable:
		return 30 * time.Second
	case KindTimeout:
		return 10 * time.Second
	case KindNetwork:
		return 5 * time.Second
	default:
		return 0
	}
}

// Suggestions returns actionable operator guidance for the given kind.
func Suggestions(kind Kind) []string {
	switch kind {
	case KindUnavailable:
		return []string{
			"check that the container is running",
			"check the container logs for startup errors",
			"retry after the estimated delay",
		}
	case KindNetwork:
		return []string{
			"check network connectivity to the service",
			"verify the configured port is correct",
		}
	case KindTimeout:
		return []string{
			"the service may be overloaded; retry after a delay",
			"check the service logs for slow operations",
		}
	default:
		return nil
	}
}
