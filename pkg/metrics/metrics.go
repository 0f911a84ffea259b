package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsSynthesizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_events_synthesized_total",
			Help: "Total number of envelopes synthesized, by stream (count)",
		},
		[]string{"stream"},
	)

	PublishAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_publish_attempts_total",
			Help: "Total number of delivery attempts, by team and outcome (count)",
		},
		[]string{"team", "status"},
	)

	PublishRetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_publish_retry_attempts_total",
			Help: "Total number of delivery retries (count)",
		},
		[]string{"team"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_events_dropped_total",
			Help: "Total number of envelopes dropped, by team and reason (count)",
		},
		[]string{"team", "reason"},
	)

	PublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generator_publish_duration_ms",
			Help:    "Delivery attempt duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"team"},
	)

	SchedulerTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generator_scheduler_ticks_total",
			Help: "Total number of produce-now ticks issued, by team (count)",
		},
		[]string{"team"},
	)

	TeamsResolved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generator_teams_resolved",
			Help: "Number of resolved team targets (count)",
		},
	)

	HealthPhase = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generator_health_phase",
			Help: "Generator lifecycle phase (0=starting, 1=ready, 2=degraded, 3=terminated) (state code)",
		},
	)

	EffectiveRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "generator_effective_rate_per_sec",
			Help: "Observed publish rate over the trailing health window (events/sec)",
		},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterGeneratorMetrics() {
	prometheus.MustRegister(EventsSynthesizedTotal)
	prometheus.MustRegister(PublishAttemptsTotal)
	prometheus.MustRegister(PublishRetryAttemptsTotal)
	prometheus.MustRegister(EventsDroppedTotal)
	prometheus.MustRegister(PublishDuration)
	prometheus.MustRegister(SchedulerTicksTotal)
	prometheus.MustRegister(TeamsResolved)
	prometheus.MustRegister(HealthPhase)
	prometheus.MustRegister(EffectiveRate)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObservePublishDuration(team string, duration time.Duration) {
	PublishDuration.WithLabelValues(team).Observe(float64(duration.Milliseconds()))
}
