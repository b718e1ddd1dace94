package prometheus

// No-op metric implementations, handed out when registration fails so callers
// can record unconditionally.

type nopCounterVec struct{}

func (nopCounterVec) WithLabelValues(...string) Counter { return nopCounter{} }
func (nopCounterVec) With(map[string]string) Counter    { return nopCounter{} }

type nopCounter struct{}

func (nopCounter) Inc()        {}
func (nopCounter) Add(float64) {}

type nopGaugeVec struct{}

func (nopGaugeVec) WithLabelValues(...string) Gauge { return nopGauge{} }
func (nopGaugeVec) With(map[string]string) Gauge    { return nopGauge{} }

type nopGauge struct{}

func (nopGauge) Set(float64) {}
func (nopGauge) Inc()        {}
func (nopGauge) Dec()        {}
func (nopGauge) Add(float64) {}
func (nopGauge) Sub(float64) {}

type nopHistogramVec struct{}

func (nopHistogramVec) WithLabelValues(...string) Histogram { return nopObserver{} }
func (nopHistogramVec) With(map[string]string) Histogram    { return nopObserver{} }

type nopSummaryVec struct{}

func (nopSummaryVec) WithLabelValues(...string) Summary { return nopObserver{} }
func (nopSummaryVec) With(map[string]string) Summary    { return nopObserver{} }

type nopObserver struct{}

func (nopObserver) Observe(float64) {}
