/*
Package metrics exposes Prometheus metrics for Poolkeeper.

Collectors are declared at package level and registered once in init(), so
any component can record observations by importing this package. Handler()
returns the standard promhttp handler for scraping.

# Metric Groups

Configuration updates:
  - poolkeeper_config_updates_total{outcome}: update attempts (success/failure)
  - poolkeeper_rollbacks_total{outcome}: rollback attempts (success/failure)
  - poolkeeper_update_duration_seconds: end-to-end update latency

Resilience:
  - poolkeeper_retry_attempts_total{service}: failed attempts entering retry
  - poolkeeper_breaker_state{service}: 0 closed, 1 open, 2 half-open
  - poolkeeper_breaker_trips_total{service}: open transitions
  - poolkeeper_fallbacks_total{service}: degraded executions

Health and lifecycle:
  - poolkeeper_health_check_duration_seconds{service}: probe latency
  - poolkeeper_health_status{service}: 1 healthy, 0 unhealthy
  - poolkeeper_container_restarts_total{service,outcome}: restart outcomes

# Usage

	metrics.ConfigUpdatesTotal.WithLabelValues("success").Inc()

	mux.Handle("/metrics", metrics.Handler())
*/
package metrics
