package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomdesk_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roomdesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	pairedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomdesk_paired_writes_total",
		Help: "Count of room/tenant paired writes by operation and result",
	}, []string{"operation", "result"})

	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomdesk_payments_recorded_total",
		Help: "Count of payments recorded by method",
	}, []string{"method"})

	paymentsOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomdesk_payments_marked_overdue_total",
		Help: "Count of payments moved from pending to overdue",
	})

	occupiedRooms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roomdesk_occupied_rooms",
		Help: "Number of occupied rooms per property",
	}, []string{"property"})

	feedReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomdesk_notification_reloads_total",
		Help: "Count of notification cache reloads by result",
	}, []string{"result"})

	feedSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomdesk_feed_subscriptions",
		Help: "Number of live change-feed subscriptions",
	})

	optimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomdesk_optimistic_rollbacks_total",
		Help: "Count of optimistic updates rolled back after a remote failure",
	}, []string{"operation"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObservePairedWrite records the outcome of a paired room/tenant write.
// result is one of success, compensated, compensation_failed, rejected.
func ObservePairedWrite(operation, result string) {
	pairedWrites.WithLabelValues(operation, result).Inc()
}

// ObservePaymentRecorded counts a completed payment by method.
func ObservePaymentRecorded(method string) {
	if method == "" {
		method = "unspecified"
	}
	paymentsRecorded.WithLabelValues(method).Inc()
}

// ObservePaymentOverdue counts a pending payment moved to overdue.
func ObservePaymentOverdue() {
	paymentsOverdue.Inc()
}

// SetOccupiedRooms sets the occupied-room gauge for a property.
func SetOccupiedRooms(propertyID string, count int) {
	if count < 0 {
		count = 0
	}
	occupiedRooms.WithLabelValues(propertyID).Set(float64(count))
}

// ObserveFeedReload counts a notification cache reload. result is one of
// success, error, stale.
func ObserveFeedReload(result string) {
	feedReloads.WithLabelValues(result).Inc()
}

// IncFeedSubscriptions tracks a newly opened change-feed subscription.
func IncFeedSubscriptions() {
	feedSubscriptions.Inc()
}

// DecFeedSubscriptions tracks a closed change-feed subscription.
func DecFeedSubscriptions() {
	feedSubscriptions.Dec()
}

// ObserveOptimisticRollback counts a rolled-back optimistic update.
func ObserveOptimisticRollback(operation string) {
	optimisticRollbacks.WithLabelValues(operation).Inc()
}
