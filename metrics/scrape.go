package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ScrapeRegistry implements Registry on top of a Prometheus registry which
// is exposed over HTTP.
type ScrapeRegistry struct {
	prom   *prometheus.Registry
	prefix string
}

// NewScrapeRegistry creates a registry with the Go and process collectors
// installed. A non-empty prefix becomes the namespace of every metric.
func NewScrapeRegistry(prefix string) (*ScrapeRegistry, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("registering go collector: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("registering process collector: %w", err)
	}
	return &ScrapeRegistry{prom: reg, prefix: prefix}, nil
}

// Handler serves the /metrics endpoint.
func (r *ScrapeRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Gatherer exposes the registry for tests and custom exporters.
func (r *ScrapeRegistry) Gatherer() prometheus.Gatherer {
	return r.prom
}

func (r *ScrapeRegistry) register(name string, c prometheus.Collector) error {
	if err := r.prom.Register(c); err != nil {
		return fmt.Errorf("registering %q: %w", name, err)
	}
	return nil
}

func (r *ScrapeRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	opts.Namespace = r.namespace(opts.Namespace)
	g := prometheus.NewGauge(opts)
	if err := r.register(opts.Name, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *ScrapeRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	opts.Namespace = r.namespace(opts.Namespace)
	g := prometheus.NewGaugeVec(opts, labels)
	if err := r.register(opts.Name, g); err != nil {
		return nil, err
	}
	return scrapeGaugeVec{g}, nil
}

func (r *ScrapeRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	opts.Namespace = r.namespace(opts.Namespace)
	c := prometheus.NewCounter(opts)
	if err := r.register(opts.Name, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ScrapeRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	opts.Namespace = r.namespace(opts.Namespace)
	c := prometheus.NewCounterVec(opts, labels)
	if err := r.register(opts.Name, c); err != nil {
		return nil, err
	}
	return scrapeCounterVec{c}, nil
}

func (r *ScrapeRegistry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) (HistogramVec, error) {
	opts.Namespace = r.namespace(opts.Namespace)
	h := prometheus.NewHistogramVec(opts, labels)
	if err := r.register(opts.Name, h); err != nil {
		return nil, err
	}
	return scrapeHistogramVec{h}, nil
}

func (r *ScrapeRegistry) namespace(ns string) string {
	if ns != "" {
		return ns
	}
	return r.prefix
}

// The vec wrappers only narrow the return type of With.

type scrapeGaugeVec struct{ vec *prometheus.GaugeVec }

func (g scrapeGaugeVec) With(labels prometheus.Labels) Gauge { return g.vec.With(labels) }

type scrapeCounterVec struct{ vec *prometheus.CounterVec }

func (c scrapeCounterVec) With(labels prometheus.Labels) Counter { return c.vec.With(labels) }

type scrapeHistogramVec struct{ vec *prometheus.HistogramVec }

func (h scrapeHistogramVec) With(labels prometheus.Labels) Histogram { return h.vec.With(labels) }
