// ABOUTME: Prometheus metrics for the offline mutation queue and sync engine
// ABOUTME: Counters for queue throughput, a pending gauge, and drain duration histogram
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OpsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_ops_enqueued_total",
		Help: "Total number of operations enqueued for offline sync",
	})

	OpsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_ops_synced_total",
		Help: "Total number of operations successfully replayed to the server",
	})

	OpsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_ops_retried_total",
		Help: "Total number of transient sync failures returned to the queue",
	})

	OpsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_ops_failed_total",
		Help: "Total number of operations marked permanently failed",
	})

	OpsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offline_ops_pending",
		Help: "Current number of operations awaiting sync",
	})

	DrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "offline_drain_duration_seconds",
		Help:    "Duration of queue drain passes in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler returns the HTTP handler that exposes all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
