package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks generation requests per model and outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_requests_total",
			Help: "Total number of generation requests",
		},
		[]string{"model", "outcome"},
	)

	// RequestLatency tracks end-to-end request latency (submit to terminal)
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genflow_request_latency_seconds",
			Help:    "Generation request latency in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"model"},
	)

	// QueueWaiting tracks requests waiting for a dispatch slot
	QueueWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_queue_waiting",
			Help: "Number of requests waiting in the priority queue",
		},
	)

	// QueueActive tracks requests currently dispatched
	QueueActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_queue_active",
			Help: "Number of requests currently in flight",
		},
	)

	// JobsActive tracks tracked jobs not yet terminal
	JobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_jobs_active",
			Help: "Number of tracked jobs not yet in a terminal state",
		},
	)

	// QuotaUsagePercent tracks daily quota consumption
	QuotaUsagePercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_quota_usage_percent",
			Help: "Daily quota consumed, as a percentage",
		},
	)

	// SpendUsagePercent tracks daily cost budget consumption
	SpendUsagePercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "genflow_spend_usage_percent",
			Help: "Daily cost budget consumed, as a percentage",
		},
	)

	// QuotaExhaustionSeconds forecasts when the daily quota runs out at
	// the current request rate (0 = no exhaustion in sight)
	QuotaExhaustionSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "genflow_quota_exhaustion_seconds",
			Help: "Predicted seconds until quota exhaustion at the current rate",
		},
		[]string{"model"},
	)

	// HistorySynced tracks records reconciled by the history syncer
	HistorySynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genflow_history_synced_total",
			Help: "Total history records synced from the server",
		},
	)

	// PollFailures tracks status poll attempts that returned errors
	PollFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genflow_poll_failures_total",
			Help: "Total failed status poll attempts",
		},
		[]string{"error_type"},
	)
)
