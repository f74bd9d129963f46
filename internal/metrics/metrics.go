// Package metrics holds the Prometheus collectors exported by the API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "internhub"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	applicationsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "applications_total",
			Help:      "Application submissions by outcome kind.",
		},
		[]string{"outcome"},
	)

	reviewDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "review",
			Name:      "decisions_total",
			Help:      "Admin review decisions by decision and outcome kind.",
		},
		[]string{"decision", "outcome"},
	)

	seatChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "seat_changes_total",
			Help:      "Seat reservations, releases and refusals.",
		},
		[]string{"change"},
	)

	certificatesIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "certificate",
			Name:      "issuance_total",
			Help:      "Certificate issuance requests by outcome kind.",
		},
		[]string{"outcome"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "certificate",
			Name:      "verifications_total",
			Help:      "Public certificate verification lookups by result.",
		},
		[]string{"valid"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "In-app notifications by outcome.",
		},
		[]string{"outcome"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "External notification deliveries by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		applicationsSubmitted,
		reviewDecisions,
		seatChanges,
		certificatesIssued,
		verifications,
		notifications,
		deliveries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted marks an HTTP request in flight and returns the function
// that records its completion.
func RequestStarted() func(method, path, status string, seconds float64) {
	httpInFlight.Inc()
	return func(method, path, status string, seconds float64) {
		httpInFlight.Dec()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(method, path, status).Inc()
		httpDuration.WithLabelValues(method, path).Observe(seconds)
	}
}

// RecordApplication counts an application submission. An empty outcome means success.
func RecordApplication(outcome string) {
	applicationsSubmitted.WithLabelValues(outcomeLabel(outcome)).Inc()
}

// RecordReview counts an admin review decision.
func RecordReview(decision, outcome string) {
	reviewDecisions.WithLabelValues(decision, outcomeLabel(outcome)).Inc()
}

// RecordSeatChange counts a capacity ledger mutation ("reserved", "released", "refused").
func RecordSeatChange(change string) {
	seatChanges.WithLabelValues(change).Inc()
}

// RecordIssuance counts a certificate issuance request.
func RecordIssuance(outcome string) {
	certificatesIssued.WithLabelValues(outcomeLabel(outcome)).Inc()
}

// RecordVerification counts a public verification lookup.
func RecordVerification(valid bool) {
	result := "false"
	if valid {
		result = "true"
	}
	verifications.WithLabelValues(result).Inc()
}

// RecordNotification counts an in-app notification write.
func RecordNotification(outcome string) {
	notifications.WithLabelValues(outcomeLabel(outcome)).Inc()
}

// RecordDelivery counts an external delivery attempt sequence for a channel.
func RecordDelivery(channel, outcome string) {
	deliveries.WithLabelValues(channel, outcomeLabel(outcome)).Inc()
}

func outcomeLabel(outcome string) string {
	if outcome == "" {
		return "ok"
	}
	return outcome
}
