/*
Package resilience provides the failure-handling framework used to wrap
every fallible operation Poolkeeper performs against external processes and
services: a typed error taxonomy, retry with exponential backoff and jitter,
per-service circuit breakers, and graceful degradation with registered
fallbacks.

# Architecture

The three execution wrappers compose concentrically. The circuit breaker
sits innermost so a confirmed-down service fails fast before any retry
delay is paid; retry absorbs transient blips in the middle; graceful
degradation is the outermost last resort.

	┌────────────── Degrader (fallback) ───────────────┐
	│  ┌──────────── RetryManager ──────────────┐      │
	│  │  ┌──────── CircuitBreaker ─────────┐   │      │
	│  │  │                                 │   │      │
	│  │  │         operation               │   │      │
	│  │  │                                 │   │      │
	│  │  └─────────────────────────────────┘   │      │
	│  └────────────────────────────────────────┘      │
	└──────────────────────────────────────────────────┘

Each layer is independently toggleable per call site through
Handler.Execute's Options; disabling one never changes the others.

# Typed Errors

Error carries a Kind from a closed taxonomy (validation, network, storage,
authentication, authorization, configuration, timeout, rate_limit,
unavailable, unknown), a Severity, a Retryable flag derived from the kind
unless overridden, a context bag, and an optional wrapped cause. Errors are
constructed at the throw site where possible; Classify converts foreign
errors by best-effort message matching and tags unmatched ones as unknown
and non-retryable.

# State Management

There are no package-level singletons. A Handler (and its Breakers registry
and Degrader) is constructed explicitly once per process and passed to the
components that need it; tests construct a fresh one each. All calls
against one service name must share one breaker instance or failure counts
are miscounted.

# Usage

	h := resilience.NewHandler(resilience.DefaultBreakerConfig(), logger)
	policy := resilience.DefaultRetryPolicy()

	err := h.Execute(ctx, "pooler", restartPooler, resilience.Options{
		Retry:   &policy,
		Breaker: true,
	})
*/
package resilience
