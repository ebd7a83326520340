package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WalletsScored tracks wallets scored per transport and outcome
	WalletsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletscore_wallets_scored_total",
			Help: "Total number of wallets scored",
		},
		[]string{"transport", "outcome"},
	)

	// ProcessingDuration tracks engine latency
	ProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletscore_processing_duration_seconds",
			Help:    "Wallet scoring latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	// CompositeScore tracks the distribution of composite scores
	CompositeScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "walletscore_composite_score",
			Help:    "Distribution of composite wallet scores",
			Buckets: prometheus.LinearBuckets(0, 100, 11),
		},
	)

	// QueueMessagesTotal tracks stream entries consumed per result
	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletscore_queue_messages_total",
			Help: "Total number of queue messages handled",
		},
		[]string{"result"},
	)

	// QueuePublishErrors tracks failed publishes per stream
	QueuePublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletscore_queue_publish_errors_total",
			Help: "Total number of failed queue publishes",
		},
		[]string{"stream"},
	)

	// ArchiveErrors tracks failed archive writes
	ArchiveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "walletscore_archive_errors_total",
			Help: "Total number of results that could not be archived",
		},
	)

	// ArchivedResults tracks the archive size observed by the pruner
	ArchivedResults = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletscore_archived_results",
			Help: "Number of archived wallet results",
		},
	)

	// LiveSubscribers tracks connected websocket clients
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletscore_live_subscribers",
			Help: "Number of connected live feed subscribers",
		},
	)

	// DBConnectionPoolUsage tracks the percentage of open connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "walletscore_db_connection_pool_usage_percent",
			Help: "Database connection pool usage in percent",
		},
	)
)
