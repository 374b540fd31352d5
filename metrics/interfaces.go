// Package metrics records action and queue activity in a Prometheus
// compatible form.
//
// Two registries are provided:
//   - ScrapeRegistry (botd): metrics live in a Prometheus registry served on /metrics
//   - PushRegistry (botsim): samples are buffered and flushed in batches to a
//     remote write endpoint such as VictoriaMetrics
//
// ActionRecorder turns queue lifecycle events into metrics on either registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge is a value that can go up and down.
type Gauge interface {
	Set(float64)
}

// Counter only increases.
type Counter interface {
	Inc()
	// Add panics on negative values in scrape mode.
	Add(float64)
}

// Histogram samples observations such as action durations.
type Histogram interface {
	Observe(float64)
}

// GaugeVec is a Gauge with labels.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// HistogramVec is a Histogram with labels.
type HistogramVec interface {
	With(prometheus.Labels) Histogram
}

// Registry creates and registers metrics. Implementations differ in how the
// values leave the process.
type Registry interface {
	NewGauge(opts prometheus.GaugeOpts) (Gauge, error)
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounter(opts prometheus.CounterOpts) (Counter, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
	NewHistogramVec(opts prometheus.HistogramOpts, labels []string) (HistogramVec, error)
}
