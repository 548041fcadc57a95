package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flashcards_api_request_duration_seconds",
			Help:    "Latency of calls to the flashcards REST API in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashcards_api_requests_total",
			Help: "Total number of calls to the flashcards REST API",
		},
		[]string{"method", "path", "status"},
	)

	AuthorizationDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flashcards_api_authorization_denied_total",
			Help: "Responses that carried an authorization-denied status",
		},
	)

	// Session metrics
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashcards_session_transitions_total",
			Help: "Committed session state transitions",
		},
		[]string{"from", "to", "reason"},
	)

	SessionAuthenticated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flashcards_session_authenticated",
			Help: "1 while the session is authenticated, 0 otherwise",
		},
	)

	// Gateway metrics
	GatewayEventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flashcards_gateway_event_subscribers",
			Help: "Open websocket subscribers on the session event stream",
		},
	)
)
