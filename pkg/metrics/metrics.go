package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPasses counts synchronizer invocations by result
	// (offline, completed, failed, skipped)
	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scorebook_sync_passes_total",
		Help: "Total number of sync passes by result",
	}, []string{"result"})

	// SyncActions tracks every replayed action by outcome (success, conflict, error) and kind
	SyncActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scorebook_sync_actions_total",
		Help: "Total number of pending actions replayed against the score API",
	}, []string{"outcome", "kind"})

	// SyncDuration measures a full drain of the pending log
	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scorebook_sync_pass_duration_seconds",
		Help:    "Duration of a sync pass in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// PendingActions is the size of the action log after the last pass
	PendingActions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scorebook_pending_actions",
		Help: "Number of actions still waiting for the score API",
	})

	// LastSyncTimestamp is the unix time of the last pass that reached the drain phase
	LastSyncTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scorebook_last_sync_timestamp_seconds",
		Help: "Unix timestamp of the last sync pass",
	})
)
