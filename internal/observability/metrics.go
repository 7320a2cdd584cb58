// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Source metrics
	SourceFetchesTotal  *prometheus.CounterVec
	SourceFetchDuration *prometheus.HistogramVec
	RecordsDropped      *prometheus.CounterVec
	RecordsNormalized   *prometheus.GaugeVec

	// Cache metrics
	CacheLookups    *prometheus.CounterVec
	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	FeaturedSize    prometheus.Gauge
	SnapshotAge     prometheus.Gauge
	LastRefresh     prometheus.Gauge
	DistinctTokens  prometheus.Gauge
	PersistErrors   *prometheus.CounterVec
	WarmRuns        *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WSClients           prometheus.Gauge
	WSMessagesDropped   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "launchpad_feed"
	}

	return &Metrics{
		SourceFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of upstream fetches by source and status",
		}, []string{"source", "status"}),
		SourceFetchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"source"}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "records_dropped_total",
			Help:      "Total number of records dropped for lacking a usable token address",
		}, []string{"source"}),
		RecordsNormalized: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "records_normalized",
			Help:      "Records produced by the last successful fetch per source",
		}, []string{"source"}),

		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by result (hit, stale, miss)",
		}, []string{"result"}),
		RefreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refreshes_total",
			Help:      "Total number of refresh cycles by outcome",
		}, []string{"outcome"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "refresh_duration_seconds",
			Help:      "Refresh cycle duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}),
		FeaturedSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "featured_tokens",
			Help:      "Number of tokens in the featured list",
		}),
		SnapshotAge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "snapshot_age_seconds",
			Help:      "Age of the served snapshot at the last lookup",
		}),
		LastRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh",
		}),
		DistinctTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "distinct_tokens_estimate",
			Help:      "Estimated number of distinct token addresses seen since start",
		}),
		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "persist_errors_total",
			Help:      "Total number of failed best-effort writes by store",
		}, []string{"store"}),
		WarmRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "warm_runs_total",
			Help:      "Total number of scheduled warm runs by result (refreshed, fresh, error)",
		}, []string{"result"}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		WSMessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_dropped_total",
			Help:      "Total number of broadcasts dropped for slow clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSourceFetch records one upstream fetch.
func RecordSourceFetch(source, status string, d time.Duration) {
	DefaultMetrics.SourceFetchesTotal.WithLabelValues(source, status).Inc()
	DefaultMetrics.SourceFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordNormalized records normalization output for a source.
func RecordNormalized(source string, kept, dropped int) {
	DefaultMetrics.RecordsNormalized.WithLabelValues(source).Set(float64(kept))
	if dropped > 0 {
		DefaultMetrics.RecordsDropped.WithLabelValues(source).Add(float64(dropped))
	}
}

// RecordCacheLookup records a cache lookup result and the served age.
func RecordCacheLookup(result string, age time.Duration) {
	DefaultMetrics.CacheLookups.WithLabelValues(result).Inc()
	if age >= 0 && age < 365*24*time.Hour {
		DefaultMetrics.SnapshotAge.Set(age.Seconds())
	}
}

// RecordRefresh records a refresh cycle outcome.
func RecordRefresh(outcome string, d time.Duration, featured int, at time.Time) {
	DefaultMetrics.RefreshesTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.RefreshDuration.Observe(d.Seconds())
	if outcome != "failure" {
		DefaultMetrics.FeaturedSize.Set(float64(featured))
		DefaultMetrics.LastRefresh.Set(float64(at.Unix()))
	}
}

// RecordPersistError records a failed best-effort write.
func RecordPersistError(store string) {
	DefaultMetrics.PersistErrors.WithLabelValues(store).Inc()
}

// RecordWarmRun records one scheduled warm run.
func RecordWarmRun(result string) {
	DefaultMetrics.WarmRuns.WithLabelValues(result).Inc()
}

// UpdateDistinctTokens updates the distinct tokens gauge.
func UpdateDistinctTokens(n uint64) {
	DefaultMetrics.DistinctTokens.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route, status string, d time.Duration) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// SetWSClients updates the websocket clients gauge.
func SetWSClients(n int) {
	DefaultMetrics.WSClients.Set(float64(n))
}

// RecordWSDropped records a broadcast dropped for a slow client.
func RecordWSDropped() {
	DefaultMetrics.WSMessagesDropped.Inc()
}
