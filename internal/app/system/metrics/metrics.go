// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "questionbank"
)

var (
	// Access decisions made by the route middleware.
	AccessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Route access decisions by route and outcome.",
	}, []string{"route", "decision"})

	// Session lifecycle.
	SessionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Session logins, logouts and forced clears.",
	}, []string{"event"})

	// Backend API calls.
	BackendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Requests made to the library backend.",
	}, []string{"operation", "status"})

	BackendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Latency of requests made to the library backend.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// Library operations.
	BookUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "book_uploads_total",
		Help:      "Book upload attempts by outcome.",
	}, []string{"status"})

	QuestionGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "question_generations_total",
		Help:      "Question generation requests by outcome.",
	}, []string{"status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
