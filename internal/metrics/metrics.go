package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered with the default registry through promauto and
// exposed on GET /metrics.

var (
	// ==================== HTTP METRICS ====================

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// ==================== RATE LIMITING METRICS ====================

	RateLimitedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_requests_total",
			Help: "Total number of rate-limited requests",
		},
	)

	RateLimitAllowedRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_allowed_requests_total",
			Help: "Total number of requests allowed by rate limiter",
		},
	)

	// ==================== LINK METRICS ====================

	LinksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Total number of links created",
		},
		[]string{"kind"}, // generated, alias
	)

	LinksDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_deleted_total",
			Help: "Total number of links deleted by their owner",
		},
	)

	RedirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Total number of resolution attempts by outcome",
		},
		[]string{"outcome"}, // found, not_found, error
	)

	ClicksRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clicks_recorded_total",
			Help: "Total number of clicks persisted",
		},
	)

	ClickRecordFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "click_record_failures_total",
			Help: "Clicks that could not be persisted while the redirect was still served",
		},
	)

	ShortIDCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "short_id_collisions_total",
			Help: "Generated short ids rejected by the store's uniqueness constraint",
		},
	)

	ShortIDExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "short_id_exhausted_total",
			Help: "Link creations that ran out of short id attempts",
		},
	)

	// ==================== STORE METRICS ====================

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of link store operations in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of unexpected link store errors",
		},
		[]string{"backend", "operation"},
	)
)

// ObserveStore records the latency of one store call. failed should be true
// only for unexpected errors, not for domain outcomes like "not found".
func ObserveStore(backend, operation string, start time.Time, failed bool) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if failed {
		StoreErrorsTotal.WithLabelValues(backend, operation).Inc()
	}
}

func RecordLinkCreated(kind string) {
	LinksCreatedTotal.WithLabelValues(kind).Inc()
}

func RecordLinkDeleted() {
	LinksDeletedTotal.Inc()
}

func RecordRedirect(outcome string) {
	RedirectsTotal.WithLabelValues(outcome).Inc()
}

func RecordClickRecorded() {
	ClicksRecordedTotal.Inc()
}

func RecordClickFailure() {
	ClickRecordFailuresTotal.Inc()
}

func RecordShortIDCollision() {
	ShortIDCollisionsTotal.Inc()
}

func RecordShortIDExhausted() {
	ShortIDExhaustedTotal.Inc()
}

func RecordRateLimited() {
	RateLimitedRequestsTotal.Inc()
}

func RecordRateLimitAllowed() {
	RateLimitAllowedRequestsTotal.Inc()
}
