// Package telemetry exposes codec metrics through Prometheus. Every
// constructor returns a no-op metric until InitializeTelemetry has created
// the registry, so instrumented code never checks whether metrics are on.
package telemetry

import (
	"net/http"

	"github.com/maxpert/tagcodec/cfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var registry *prometheus.Registry

// Histogram records observed values such as latencies and sizes
type Histogram interface {
	Observe(float64)
}

// Counter only goes up
type Counter interface {
	Inc()
	Add(float64)
}

// Gauge tracks a value that moves both ways
type Gauge interface {
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
}

// CounterVec selects a Counter by label values
type CounterVec interface {
	With(labels ...string) Counter
}

// HistogramVec selects a Histogram by label values
type HistogramVec interface {
	With(labels ...string) Histogram
}

// NoopStat satisfies every metric interface and discards all updates
type NoopStat struct{}

func (NoopStat) Observe(float64) {}
func (NoopStat) Set(float64)     {}
func (NoopStat) Inc()            {}
func (NoopStat) Dec()            {}
func (NoopStat) Add(float64)     {}
func (NoopStat) Sub(float64)     {}

type discardCounters struct{}

func (discardCounters) With(...string) Counter { return NoopStat{} }

type discardHistograms struct{}

func (discardHistograms) With(...string) Histogram { return NoopStat{} }

// labeledCounters and labeledHistograms narrow the Prometheus vectors to
// the interfaces above
type labeledCounters struct{ vec *prometheus.CounterVec }

func (l labeledCounters) With(values ...string) Counter { return l.vec.WithLabelValues(values...) }

type labeledHistograms struct{ vec *prometheus.HistogramVec }

func (l labeledHistograms) With(values ...string) Histogram {
	return l.vec.WithLabelValues(values...)
}

func namespace() string {
	if cfg.Config == nil || cfg.Config.Prometheus.Namespace == "" {
		return "tagcodec"
	}
	return cfg.Config.Prometheus.Namespace
}

func register[C prometheus.Collector](c C) C {
	registry.MustRegister(c)
	return c
}

// NewCounter returns a registered counter, or a no-op before initialization
func NewCounter(name, help string) Counter {
	if registry == nil {
		return NoopStat{}
	}
	return register(prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace(),
		Name:      name,
		Help:      help,
	}))
}

// NewGauge returns a registered gauge, or a no-op before initialization
func NewGauge(name, help string) Gauge {
	if registry == nil {
		return NoopStat{}
	}
	return register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace(),
		Name:      name,
		Help:      help,
	}))
}

// NewCounterVec returns a registered counter vector keyed by labels
func NewCounterVec(name, help string, labels []string) CounterVec {
	if registry == nil {
		return discardCounters{}
	}
	return labeledCounters{vec: register(prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace(),
		Name:      name,
		Help:      help,
	}, labels))}
}

// NewHistogramVec returns a registered histogram vector keyed by labels
func NewHistogramVec(name, help string, labels []string, buckets []float64) HistogramVec {
	if registry == nil {
		return discardHistograms{}
	}
	return labeledHistograms{vec: register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace(),
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels))}
}

// InitializeTelemetry creates the metrics registry when Prometheus is enabled.
// Calling it more than once has no effect.
func InitializeTelemetry() {
	if !cfg.Config.Prometheus.Enabled || registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	log.Info().Str("namespace", namespace()).Msg("Prometheus metrics enabled, served by the admin server at /metrics")
}

// GetMetricsHandler returns the Prometheus scrape handler, or nil when
// metrics are disabled
func GetMetricsHandler() http.Handler {
	if registry == nil {
		return nil
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
