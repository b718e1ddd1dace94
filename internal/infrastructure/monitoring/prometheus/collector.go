// Package prometheus wraps the Prometheus client behind small interfaces so
// application code records metrics without importing the client directly, and
// so a registration failure degrades to a no-op instead of a panic.
package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// MetricsCollector registers metrics and serves the scrape endpoint.
// Register calls are get-or-create: asking twice for the same name yields the
// same underlying metric, and a name that cannot be registered yields a
// silent no-op vector rather than an error at every record site.
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	RegisterSummary(name, help string, objectives map[float64]float64, labels ...string) SummaryVec
	Handler() http.Handler
	MustRegister(collectors ...prometheus.Collector)
	Unregister(collector prometheus.Collector) bool
}

// CounterVec resolves labels to counters.
type CounterVec interface {
	WithLabelValues(lvs ...string) Counter
	With(labels map[string]string) Counter
}

// Counter is a monotonically increasing value.
type Counter interface {
	Inc()
	Add(delta float64)
}

// GaugeVec resolves labels to gauges.
type GaugeVec interface {
	WithLabelValues(lvs ...string) Gauge
	With(labels map[string]string) Gauge
}

// Gauge is a value that moves both ways.
type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
	Add(delta float64)
	Sub(delta float64)
}

// HistogramVec resolves labels to histograms.
type HistogramVec interface {
	WithLabelValues(lvs ...string) Histogram
	With(labels map[string]string) Histogram
}

// Histogram records observations into buckets.
type Histogram interface {
	Observe(value float64)
}

// SummaryVec resolves labels to summaries.
type SummaryVec interface {
	WithLabelValues(lvs ...string) Summary
	With(labels map[string]string) Summary
}

// Summary records observations into quantile estimates.
type Summary interface {
	Observe(value float64)
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Namespace               string
	Subsystem               string
	EnableProcessMetrics    bool
	EnableGoMetrics         bool
	DefaultHistogramBuckets []float64
	ConstLabels             map[string]string
}

// defaultObjectives is the summary quantile set used when a caller passes nil.
var defaultObjectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

type promCollector struct {
	registry *prometheus.Registry
	cfg      CollectorConfig
	log      logging.Logger

	mu    sync.Mutex
	byFQN map[string]prometheus.Collector
}

// NewMetricsCollector creates a collector with its own registry, so scrapes
// never pick up stray metrics from the global default registry.
func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.New(errors.ErrCodeValidation, "metrics namespace required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.DefaultHistogramBuckets == nil {
		cfg.DefaultHistogramBuckets = prometheus.DefBuckets
	}

	reg := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		reg.MustRegister(prometheus.NewGoCollector())
	}

	return &promCollector{
		registry: reg,
		cfg:      cfg,
		log:      logger.Named("metrics"),
		byFQN:    make(map[string]prometheus.Collector),
	}, nil
}

func (c *promCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *promCollector) MustRegister(collectors ...prometheus.Collector) {
	c.registry.MustRegister(collectors...)
}

func (c *promCollector) Unregister(collector prometheus.Collector) bool {
	return c.registry.Unregister(collector)
}

// opts assembles the shared naming fields for counters and gauges.
func (c *promCollector) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   c.cfg.Namespace,
		Subsystem:   c.cfg.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.cfg.ConstLabels,
	}
}

// add registers vec under name unless that name is already taken, in which
// case the earlier collector wins.  The bool reports whether the returned
// collector is usable; failures are logged once here, not at record sites.
func (c *promCollector) add(kind, name string, vec prometheus.Collector) (prometheus.Collector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fqn := prometheus.BuildFQName(c.cfg.Namespace, c.cfg.Subsystem, name)
	if existing, ok := c.byFQN[fqn]; ok {
		return existing, true
	}
	if err := c.registry.Register(vec); err != nil {
		c.log.Error("metric registration failed",
			logging.String("kind", kind), logging.String("name", name), logging.Err(err))
		return nil, false
	}
	c.byFQN[fqn] = vec
	return vec, true
}

func (c *promCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	got, ok := c.add("counter", name, prometheus.NewCounterVec(prometheus.CounterOpts(c.opts(name, help)), labels))
	if !ok {
		return nopCounterVec{}
	}
	v, isCounter := got.(*prometheus.CounterVec)
	if !isCounter {
		c.log.Warn("metric name already bound to another kind",
			logging.String("name", name), logging.String("want", "counter"))
		return nopCounterVec{}
	}
	return counterVec{v}
}

func (c *promCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	got, ok := c.add("gauge", name, prometheus.NewGaugeVec(prometheus.GaugeOpts(c.opts(name, help)), labels))
	if !ok {
		return nopGaugeVec{}
	}
	v, isGauge := got.(*prometheus.GaugeVec)
	if !isGauge {
		c.log.Warn("metric name already bound to another kind",
			logging.String("name", name), logging.String("want", "gauge"))
		return nopGaugeVec{}
	}
	return gaugeVec{v}
}

func (c *promCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.cfg.DefaultHistogramBuckets
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   c.cfg.Namespace,
		Subsystem:   c.cfg.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.cfg.ConstLabels,
		Buckets:     buckets,
	}, labels)

	got, ok := c.add("histogram", name, vec)
	if !ok {
		return nopHistogramVec{}
	}
	v, isHistogram := got.(*prometheus.HistogramVec)
	if !isHistogram {
		c.log.Warn("metric name already bound to another kind",
			logging.String("name", name), logging.String("want", "histogram"))
		return nopHistogramVec{}
	}
	return histogramVec{v}
}

func (c *promCollector) RegisterSummary(name, help string, objectives map[float64]float64, labels ...string) SummaryVec {
	if objectives == nil {
		objectives = defaultObjectives
	}
	vec := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:   c.cfg.Namespace,
		Subsystem:   c.cfg.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.cfg.ConstLabels,
		Objectives:  objectives,
	}, labels)

	got, ok := c.add("summary", name, vec)
	if !ok {
		return nopSummaryVec{}
	}
	v, isSummary := got.(*prometheus.SummaryVec)
	if !isSummary {
		c.log.Warn("metric name already bound to another kind",
			logging.String("name", name), logging.String("want", "summary"))
		return nopSummaryVec{}
	}
	return summaryVec{v}
}

// ─────────────────────────────────────────────────────────────────────────────
// Prometheus-backed wrappers
// ─────────────────────────────────────────────────────────────────────────────

type counterVec struct{ v *prometheus.CounterVec }

func (cv counterVec) WithLabelValues(lvs ...string) Counter { return counter{cv.v.WithLabelValues(lvs...)} }
func (cv counterVec) With(labels map[string]string) Counter { return counter{cv.v.With(labels)} }

type counter struct{ c prometheus.Counter }

func (c counter) Inc()              { c.c.Inc() }
func (c counter) Add(delta float64) { c.c.Add(delta) }

type gaugeVec struct{ v *prometheus.GaugeVec }

func (gv gaugeVec) WithLabelValues(lvs ...string) Gauge { return gauge{gv.v.WithLabelValues(lvs...)} }
func (gv gaugeVec) With(labels map[string]string) Gauge { return gauge{gv.v.With(labels)} }

type gauge struct{ g prometheus.Gauge }

func (g gauge) Set(value float64) { g.g.Set(value) }
func (g gauge) Inc()              { g.g.Inc() }
func (g gauge) Dec()              { g.g.Dec() }
func (g gauge) Add(delta float64) { g.g.Add(delta) }
func (g gauge) Sub(delta float64) { g.g.Sub(delta) }

type histogramVec struct{ v *prometheus.HistogramVec }

func (hv histogramVec) WithLabelValues(lvs ...string) Histogram { return observer{hv.v.WithLabelValues(lvs...)} }
func (hv histogramVec) With(labels map[string]string) Histogram { return observer{hv.v.With(labels)} }

type summaryVec struct{ v *prometheus.SummaryVec }

func (sv summaryVec) WithLabelValues(lvs ...string) Summary { return observer{sv.v.WithLabelValues(lvs...)} }
func (sv summaryVec) With(labels map[string]string) Summary { return observer{sv.v.With(labels)} }

// observer serves both Histogram and Summary; prometheus exposes each as an
// Observer once the labels are resolved.
type observer struct{ o prometheus.Observer }

func (o observer) Observe(value float64) { o.o.Observe(value) }

// ─────────────────────────────────────────────────────────────────────────────
// Timing helper
// ─────────────────────────────────────────────────────────────────────────────

// Timer measures a duration and records it into a histogram.
type Timer struct {
	histogram Histogram
	start     time.Time
}

// NewTimer starts a timer; call ObserveDuration when the work completes.
func NewTimer(histogram Histogram) *Timer {
	return &Timer{histogram: histogram, start: time.Now()}
}

// ObserveDuration records the elapsed seconds.
func (t *Timer) ObserveDuration() {
	if t.histogram == nil {
		return
	}
	t.histogram.Observe(time.Since(t.start).Seconds())
}
