// Package metrics exposes the Prometheus counters and gauges enumerated
// in spec.md §7 (GET /metrics): rate limiter bucket usage, circuit
// breaker state/trips, queue depth/maxsize, worker busy/total,
// queue-full rejections, active streams, and session completion counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rate limiter

	RateLimitBucketUsage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ttsgw_ratelimit_bucket_usage",
		Help: "Count used in the current fixed window, by origin key.",
	}, []string{"origin_key"})

	RateLimitWindowRemainingSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ttsgw_ratelimit_window_remaining_seconds",
		Help: "Seconds remaining in the current fixed window, by origin key.",
	}, []string{"origin_key"})

	RateLimitRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttsgw_ratelimit_rejected_total",
		Help: "Total requests rejected by the rate limiter, by origin key.",
	}, []string{"origin_key"})

	// Circuit breaker

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ttsgw_breaker_state",
		Help: "Circuit breaker state by provider: 0=closed, 1=open, 2=half_open.",
	}, []string{"provider_id"})

	BreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttsgw_breaker_trips_total",
		Help: "Total number of times a provider's circuit breaker tripped open.",
	}, []string{"provider_id"})

	// Queue and worker pool

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ttsgw_queue_depth",
		Help: "Current number of sessions waiting in the streaming queue.",
	})

	QueueMaxSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ttsgw_queue_max_size",
		Help: "Configured maximum size of the streaming queue.",
	})

	QueueFullTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttsgw_queue_full_total",
		Help: "Total number of enqueue attempts rejected because the queue was full.",
	})

	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ttsgw_workers_busy",
		Help: "Current number of worker goroutines processing a session.",
	})

	WorkersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ttsgw_workers_total",
		Help: "Configured number of worker goroutines in the pool.",
	})

	// Sessions

	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ttsgw_active_streams",
		Help: "Current number of sessions in the Streaming state.",
	})

	SessionsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttsgw_sessions_completed_total",
		Help: "Total number of sessions that reached the Completed state.",
	})

	SessionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttsgw_sessions_failed_total",
		Help: "Total number of sessions that reached the Failed state, by reason.",
	}, []string{"reason"})

	SessionsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ttsgw_sessions_cancelled_total",
		Help: "Total number of sessions that reached the Cancelled state.",
	})
)

// SetBreakerState records the numeric state for the BreakerState gauge;
// name -> value matches Breaker.State.String() in internal/breaker.
func SetBreakerState(providerID, state string) {
	var v float64
	switch state {
	case "open":
		v = 1
	case "half_open":
		v = 2
	default:
		v = 0
	}
	BreakerState.WithLabelValues(providerID).Set(v)
}

// RecordBreakerTrip increments the per-provider trip counter.
func RecordBreakerTrip(providerID string) {
	BreakerTripsTotal.WithLabelValues(providerID).Inc()
}

// RecordRateLimitRejected increments the per-origin rejection counter.
func RecordRateLimitRejected(originKey string) {
	RateLimitRejectedTotal.WithLabelValues(originKey).Inc()
}

// SetRateLimitUsage records the current bucket usage and remaining
// window for one origin key.
func SetRateLimitUsage(originKey string, used int, windowRemaining float64) {
	RateLimitBucketUsage.WithLabelValues(originKey).Set(float64(used))
	RateLimitWindowRemainingSeconds.WithLabelValues(originKey).Set(windowRemaining)
}

// RecordSessionFailed increments the failed-session counter for reason.
func RecordSessionFailed(reason string) {
	SessionsFailedTotal.WithLabelValues(reason).Inc()
}
