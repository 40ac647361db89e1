package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestDuration tracks score API latency per route and status class
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scoreapi_request_duration_seconds",
		Help:    "Time taken to serve a score API request",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"route", "status"})

	// APIConflicts counts rejected writes (version mismatch)
	APIConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoreapi_conflicts_total",
		Help: "Number of writes rejected because of a stale version",
	}, []string{"route"})

	// EventsPublished tracks match notifications by result (sent, error, skipped)
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scoreapi_match_events_total",
		Help: "Match events published to the broker",
	}, []string{"type", "status"})

	// BrokerHealthy is 1 while the RabbitMQ link is up
	BrokerHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scoreapi_broker_healthy",
		Help: "Current health of the RabbitMQ link (1 healthy, 0 down)",
	})

	// BrokerReconnections counts how many times the API had to restore the broker link
	BrokerReconnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scoreapi_broker_reconnections_total",
		Help: "Total number of RabbitMQ reconnection attempts",
	})
)
