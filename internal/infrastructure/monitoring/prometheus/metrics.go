package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the engine's metric handles, grouped by layer.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPResponseSize    HistogramVec
	HTTPActiveRequests  GaugeVec

	// Dataset lifecycle
	DatasetLoadsTotal     CounterVec
	DatasetLoadDuration   HistogramVec
	DatasetOrthogroups    GaugeVec
	DatasetSpecies        GaugeVec
	DatasetTreeLeaves     GaugeVec
	DatasetDegraded       GaugeVec
	DatasetRowsSkipped    GaugeVec
	DatasetIndexConflicts GaugeVec

	// Gene index
	GeneIndexSize          GaugeVec
	GeneIndexFallbackScans CounterVec
	GeneIndexSelfHeals     CounterVec

	// Query layer
	QueriesTotal    CounterVec
	QueryDuration   HistogramVec
	QueryResultSize SummaryVec

	// Species resolution
	SpeciesFallbackNames GaugeVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default histogram buckets per layer.  Query buckets skew low because all
// lookups run against in-memory structures.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultLoadDurationBuckets  = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultQueryDurationBuckets = []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25}
	DefaultSizeBuckets          = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
)

// NewAppMetrics registers every engine metric on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	// Dataset lifecycle
	m.DatasetLoadsTotal = collector.RegisterCounter("dataset_loads_total", "Dataset load attempts", "trigger", "outcome")
	m.DatasetLoadDuration = collector.RegisterHistogram("dataset_load_duration_seconds", "Dataset load duration", DefaultLoadDurationBuckets, "trigger")
	m.DatasetOrthogroups = collector.RegisterGauge("dataset_orthogroups", "Orthogroups in the active dataset")
	m.DatasetSpecies = collector.RegisterGauge("dataset_species", "Species columns in the active dataset")
	m.DatasetTreeLeaves = collector.RegisterGauge("dataset_tree_leaves", "Leaves in the active phylogenetic tree")
	m.DatasetDegraded = collector.RegisterGauge("dataset_degraded", "1 when the placeholder tree is active after a parse failure")
	m.DatasetRowsSkipped = collector.RegisterGauge("dataset_rows_skipped", "Malformed rows skipped in the latest load", "artifact")
	m.DatasetIndexConflicts = collector.RegisterGauge("dataset_index_conflicts", "Genes claimed by more than one orthogroup in the latest load")

	// Gene index
	m.GeneIndexSize = collector.RegisterGauge("gene_index_size", "Entries in the gene-to-orthogroup index")
	m.GeneIndexFallbackScans = collector.RegisterCounter("gene_index_fallback_scans_total", "Linear table scans after an index miss", "outcome")
	m.GeneIndexSelfHeals = collector.RegisterCounter("gene_index_self_heals_total", "Index entries inserted after a fallback scan hit")

	// Queries
	m.QueriesTotal = collector.RegisterCounter("queries_total", "Search queries served", "kind", "outcome")
	m.QueryDuration = collector.RegisterHistogram("query_duration_seconds", "Search query duration", DefaultQueryDurationBuckets, "kind")
	m.QueryResultSize = collector.RegisterSummary("query_result_size", "Results returned per query", nil, "kind")

	// Species resolution
	m.SpeciesFallbackNames = collector.RegisterGauge("species_fallback_names", "Species codes carrying synthesized display names")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// DatasetStats captures the gauges refreshed after each load.
type DatasetStats struct {
	Orthogroups        int
	Species            int
	TreeLeaves         int
	IndexSize          int
	IndexConflicts     int
	SkippedTableRows   int
	SkippedSpeciesRows int
	FallbackNames      int
	Degraded           bool
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording helpers.  All tolerate a nil *AppMetrics so callers that run
// without metrics skip the wiring entirely.
// ─────────────────────────────────────────────────────────────────────────────

// RecordHTTPRequest updates the HTTP request metrics for one response.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordDatasetLoad records one load attempt.  trigger is "initial" or
// "reload"; outcome is "success", "degraded" or "failure".
func RecordDatasetLoad(m *AppMetrics, trigger, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DatasetLoadsTotal.WithLabelValues(trigger, outcome).Inc()
	m.DatasetLoadDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// SetDatasetStats refreshes the dataset gauges after a successful load.
func SetDatasetStats(m *AppMetrics, s DatasetStats) {
	if m == nil {
		return
	}
	m.DatasetOrthogroups.WithLabelValues().Set(float64(s.Orthogroups))
	m.DatasetSpecies.WithLabelValues().Set(float64(s.Species))
	m.DatasetTreeLeaves.WithLabelValues().Set(float64(s.TreeLeaves))
	m.GeneIndexSize.WithLabelValues().Set(float64(s.IndexSize))
	m.DatasetIndexConflicts.WithLabelValues().Set(float64(s.IndexConflicts))
	m.DatasetRowsSkipped.WithLabelValues("table").Set(float64(s.SkippedTableRows))
	m.DatasetRowsSkipped.WithLabelValues("species").Set(float64(s.SkippedSpeciesRows))
	m.SpeciesFallbackNames.WithLabelValues().Set(float64(s.FallbackNames))
	degraded := 0.0
	if s.Degraded {
		degraded = 1.0
	}
	m.DatasetDegraded.WithLabelValues().Set(degraded)
}

// RecordQuery records one search query.  kind names the search
// ("gene", "species", "clade", "common_ancestor", "orthologues"); outcome is
// "hit", "miss" or "error".
func RecordQuery(m *AppMetrics, kind, outcome string, duration time.Duration, resultCount int) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	m.QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.QueryResultSize.WithLabelValues(kind).Observe(float64(resultCount))
}

// RecordIndexFallback records a linear scan taken after an index miss.  A hit
// also counts a self-heal, since the found entry is inserted back into the
// index.
func RecordIndexFallback(m *AppMetrics, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.GeneIndexFallbackScans.WithLabelValues("hit").Inc()
		m.GeneIndexSelfHeals.WithLabelValues().Inc()
		return
	}
	m.GeneIndexFallbackScans.WithLabelValues("miss").Inc()
}

// RecordError counts one error against a component.
func RecordError(m *AppMetrics, component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// SetHealthStatus flips a component's health gauge.
func SetHealthStatus(m *AppMetrics, component string, up bool) {
	if m == nil {
		return
	}
	value := 0.0
	if up {
		value = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(value)
}
