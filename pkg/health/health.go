package health

import (
	"context"
	"time"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeHTTP CheckType = "http"
	CheckTypeTCP  CheckType = "tcp"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy      bool
	Message      string
	CheckedAt    time.Time
	ResponseTime time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// HealthPath is the conventional HTTP health endpoint probed on
// HTTP-speaking services unless a service definition overrides it.
const HealthPath = "/health"
