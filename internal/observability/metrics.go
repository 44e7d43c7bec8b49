package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rbn_topcalls"

// Metrics holds the Prometheus counters, histograms, and gauges for fetching,
// parsing, and aggregating RBN archives.
type Metrics struct {
	// Archive fetch metrics.
	ArchiveFetches   *prometheus.CounterVec // labels: outcome={hit,downloaded,failed}
	DownloadBytes    prometheus.Counter
	DownloadDuration prometheus.Histogram

	// Pipeline metrics.
	DaysProcessed   *prometheus.CounterVec // labels: status={processed,missing,unreadable}
	RowsParsed      prometheus.Counter
	RowsMatched     prometheus.Counter
	Runs            *prometheus.CounterVec // labels: outcome={ok,no_data,error}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge

	// Dashboard result cache.
	ResultCache *prometheus.CounterVec // labels: result={hit,miss}
}

func newMetrics() *Metrics {
	return &Metrics{
		ArchiveFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_fetches_total",
			Help:      "Daily archive lookups by outcome.",
		}, []string{"outcome"}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes written to the archive cache.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of a single archive download attempt.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DaysProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_total",
			Help:      "Days visited by the pipeline by status.",
		}, []string{"status"}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Spot rows decoded from archives.",
		}),
		RowsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_matched_total",
			Help:      "Spot rows that passed the mode, prefix, and band filter.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete pipeline run.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900, 3600},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress.",
		}),
		ResultCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_cache_total",
			Help:      "Dashboard result cache lookups by result.",
		}, []string{"result"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ArchiveFetches,
		m.DownloadBytes,
		m.DownloadDuration,
		m.DaysProcessed,
		m.RowsParsed,
		m.RowsMatched,
		m.Runs,
		m.RunDuration,
		m.PipelineRunning,
		m.ResultCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
