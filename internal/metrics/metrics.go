package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// BackendOnline is 1 while the connectivity monitor believes the
	// remote backend is reachable.
	BackendOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_online",
		Help: "Whether the remote backend is currently reachable (1) or not (0)",
	})

	QueuePendingItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_queue_pending_items",
		Help: "Mutations waiting in the local sync queue",
	})

	SyncDrainsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_drains_total",
		Help: "Queue drain passes started",
	})

	SyncReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_replayed_mutations_total",
		Help: "Queued mutations replayed successfully against the backend",
	})

	SyncFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_failed_mutations_total",
		Help: "Queued mutations that exhausted their retries",
	})
)
