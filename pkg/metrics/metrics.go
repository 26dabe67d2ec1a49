package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Configuration update metrics
	ConfigUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolkeeper_config_updates_total",
			Help: "Total number of configuration update attempts by outcome",
		},
		[]string{"outcome"},
	)

	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolkeeper_rollbacks_total",
			Help: "Total number of configuration rollbacks by outcome",
		},
		[]string{"outcome"},
	)

	UpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poolkeeper_update_duration_seconds",
			Help:    "End-to-end configuration update duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Resilience metrics
	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolkeeper_retry_attempts_total",
			Help: "Total number of failed attempts that entered the retry path",
		},
		[]string{"service"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolkeeper_breaker_state",
			Help: "Circuit breaker state per service (0 = closed, 1 = open, 2 = half-open)",
		},
		[]string{"service"},
	)

	BreakerTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolkeeper_breaker_trips_total",
			Help: "Total number of circuit breaker open transitions",
		},
		[]string{"service"},
	)

	FallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolkeeper_fallbacks_total",
			Help: "Total number of fallback executions after primary failure",
		},
		[]string{"service"},
	)

	// Health check metrics
	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poolkeeper_health_check_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	HealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poolkeeper_health_status",
			Help: "Last observed health per service (1 = healthy, 0 = unhealthy)",
		},
		[]string{"service"},
	)

	// Container lifecycle metrics
	ContainerRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolkeeper_container_restarts_total",
			Help: "Total number of container restarts by outcome",
		},
		[]string{"service", "outcome"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ConfigUpdatesTotal)
	prometheus.MustRegister(RollbacksTotal)
	prometheus.MustRegister(UpdateDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(BreakerTripsTotal)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(HealthStatus)
	prometheus.MustRegister(ContainerRestartsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
