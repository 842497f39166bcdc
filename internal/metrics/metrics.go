package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

var (
	// FetchRequests counts provider requests by outcome: ok, retryable,
	// rate_limited, failed.
	FetchRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "galmarket_fetch_requests_total",
		Help: "Outbound data-provider requests by outcome.",
	}, []string{"outcome"})

	// FetchRetrySleep accumulates seconds spent waiting between attempts.
	FetchRetrySleep = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "galmarket_fetch_retry_sleep_seconds_total",
		Help: "Total time spent sleeping before fetch retries.",
	})

	// FeedEvents counts feed messages by disposition: consumed, skipped,
	// malformed.
	FeedEvents = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "galmarket_feed_events_total",
		Help: "Feed messages by disposition.",
	}, []string{"disposition"})

	// FeedReconnects counts feed transport reconnect attempts.
	FeedReconnects = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "galmarket_feed_reconnects_total",
		Help: "Feed transport reconnect attempts.",
	})

	// CacheWrites counts snapshot writes by source and acceptance.
	CacheWrites = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "galmarket_cache_writes_total",
		Help: "Freshness-cache snapshot writes by source tag and acceptance.",
	}, []string{"source", "accepted"})

	// TasksFinished counts population tasks by terminal status.
	TasksFinished = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "galmarket_tasks_finished_total",
		Help: "Population tasks by terminal status.",
	}, []string{"status"})

	// QueueDepth tracks tasks waiting for a dispatch worker.
	QueueDepth = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Name: "galmarket_task_queue_depth",
		Help: "Population tasks waiting for a worker.",
	})

	// ArchiveRows counts snapshot rows written to the archive.
	ArchiveRows = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "galmarket_archive_rows_total",
		Help: "Snapshot rows written to the Postgres archive.",
	})

	// ArchiveFlushes counts archive batch flushes.
	ArchiveFlushes = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "galmarket_archive_flushes_total",
		Help: "Archive batch flushes.",
	})
)

// Handler serves the metrics registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
