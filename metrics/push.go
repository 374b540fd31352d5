package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/golang/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
)

const (
	// DefaultTimeout bounds a single remote write request.
	DefaultTimeout = 10 * time.Second
	// DefaultRetryInterval is the first wait between failed flushes.
	DefaultRetryInterval = 500 * time.Millisecond
	// DefaultMaxElapsed bounds the total time one Flush keeps retrying.
	DefaultMaxElapsed = 30 * time.Second
)

// ErrNoURL is returned by Flush when the registry has nowhere to send to.
var ErrNoURL = errors.New("metrics: push url not configured")

// PushConfig configures a PushRegistry.
type PushConfig struct {
	// URL is the base URL of the remote write endpoint, e.g. http://localhost:8428.
	URL string
	// Prefix is joined to every metric name with an underscore.
	Prefix   string
	Job      string
	Instance string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout       time.Duration
	RetryInterval time.Duration
	MaxElapsed    time.Duration
	Logger        *slog.Logger
}

// PushRegistry implements Registry by buffering the latest value of every
// series and sending them all in one remote write request per Flush.
type PushRegistry struct {
	url        string
	httpClient *http.Client
	prefix     string
	job        string
	instance   string
	retry      time.Duration
	maxElapsed time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	labels []prompb.Label
	value  float64
}

// NewPushRegistry creates a PushRegistry. Nothing is sent until Flush or Run.
func NewPushRegistry(cfg PushConfig) *PushRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	retry := cfg.RetryInterval
	if retry == 0 {
		retry = DefaultRetryInterval
	}
	maxElapsed := cfg.MaxElapsed
	if maxElapsed == 0 {
		maxElapsed = DefaultMaxElapsed
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	url := ""
	if cfg.URL != "" {
		url = strings.TrimSuffix(cfg.URL, "/") + "/api/v1/write"
	}
	return &PushRegistry{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		prefix:     cfg.Prefix,
		job:        cfg.Job,
		instance:   cfg.Instance,
		retry:      retry,
		maxElapsed: maxElapsed,
		logger:     logger,
		now:        time.Now,
		series:     make(map[string]*series),
	}
}

func (r *PushRegistry) NewGauge(opts prometheus.GaugeOpts) (Gauge, error) {
	return pushGauge{r: r, name: opts.Name}, nil
}

func (r *PushRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error) {
	return pushGaugeVec{r: r, name: opts.Name, labels: labels}, nil
}

func (r *PushRegistry) NewCounter(opts prometheus.CounterOpts) (Counter, error) {
	return pushCounter{r: r, name: opts.Name}, nil
}

func (r *PushRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error) {
	return pushCounterVec{r: r, name: opts.Name, labels: labels}, nil
}

// NewHistogramVec records the sum and count of observations. Buckets are
// not pushed.
func (r *PushRegistry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) (HistogramVec, error) {
	return pushHistogramVec{r: r, name: opts.Name, labels: labels}, nil
}

// update applies fn to the buffered value of the series name{labels}.
func (r *PushRegistry) update(name string, labels prometheus.Labels, fn func(float64) float64) {
	key := seriesKey(name, labels)

	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[key]
	if !ok {
		s = &series{labels: r.promLabels(name, labels)}
		r.series[key] = s
	}
	s.value = fn(s.value)
}

func (r *PushRegistry) promLabels(name string, labels prometheus.Labels) []prompb.Label {
	if r.prefix != "" {
		name = r.prefix + "_" + name
	}
	out := make([]prompb.Label, 0, len(labels)+3)
	out = append(out, prompb.Label{Name: "__name__", Value: name})
	if r.job != "" {
		out = append(out, prompb.Label{Name: "job", Value: r.job})
	}
	if r.instance != "" {
		out = append(out, prompb.Label{Name: "instance", Value: r.instance})
	}
	for k, v := range labels {
		out = append(out, prompb.Label{Name: k, Value: v})
	}
	// Remote write expects labels sorted by name.
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pending returns the number of buffered series.
func (r *PushRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.series)
}

// Flush sends every buffered series in one request, retrying with
// exponential backoff until the request succeeds, ctx ends or the retry
// budget runs out. Client errors are not retried.
func (r *PushRegistry) Flush(ctx context.Context) error {
	if r.url == "" {
		return ErrNoURL
	}
	req := r.writeRequest()
	if len(req.Timeseries) == 0 {
		return nil
	}
	data, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling write request: %w", err)
	}
	body := snappy.Encode(nil, data)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retry
	b.MaxElapsedTime = r.maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := r.send(ctx, body)
		if err != nil {
			r.logger.Warn("metrics push failed", "attempt", attempt, "error", err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("pushing %d series: %w", len(req.Timeseries), err)
	}
	r.logger.Debug("metrics pushed", "series", len(req.Timeseries), "attempts", attempt)
	return nil
}

func (r *PushRegistry) writeRequest() *prompb.WriteRequest {
	ts := r.now().UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	req := &prompb.WriteRequest{Timeseries: make([]prompb.TimeSeries, 0, len(keys))}
	for _, k := range keys {
		s := r.series[k]
		req.Timeseries = append(req.Timeseries, prompb.TimeSeries{
			Labels:  s.labels,
			Samples: []prompb.Sample{{Value: s.value, Timestamp: ts}},
		})
	}
	return req
}

func (r *PushRegistry) send(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("creating HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	msg, _ := io.ReadAll(resp.Body)
	err = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}

// Run flushes every interval until ctx is done, then makes a final flush
// with a fresh deadline.
func (r *PushRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), r.httpClient.Timeout)
			if err := r.Flush(final); err != nil {
				r.logger.Warn("final metrics push failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("metrics push failed", "error", err)
			}
		}
	}
}

// seriesKey builds a stable map key for name{labels}.
func seriesKey(name string, labels prometheus.Labels) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("," + k + "=" + labels[k])
	}
	return b.String()
}

type pushGauge struct {
	r      *PushRegistry
	name   string
	labels prometheus.Labels
}

func (g pushGauge) Set(v float64) {
	g.r.update(g.name, g.labels, func(float64) float64 { return v })
}

type pushGaugeVec struct {
	r      *PushRegistry
	name   string
	labels []string
}

func (g pushGaugeVec) With(labels prometheus.Labels) Gauge {
	return pushGauge{r: g.r, name: g.name, labels: labels}
}

type pushCounter struct {
	r      *PushRegistry
	name   string
	labels prometheus.Labels
}

func (c pushCounter) Inc() { c.Add(1) }

func (c pushCounter) Add(v float64) {
	c.r.update(c.name, c.labels, func(old float64) float64 { return old + v })
}

type pushCounterVec struct {
	r      *PushRegistry
	name   string
	labels []string
}

func (c pushCounterVec) With(labels prometheus.Labels) Counter {
	return pushCounter{r: c.r, name: c.name, labels: labels}
}

type pushHistogram struct {
	sum, count pushCounter
}

func (h pushHistogram) Observe(v float64) {
	h.sum.Add(v)
	h.count.Inc()
}

type pushHistogramVec struct {
	r      *PushRegistry
	name   string
	labels []string
}

func (h pushHistogramVec) With(labels prometheus.Labels) Histogram {
	return pushHistogram{
		sum:   pushCounter{r: h.r, name: h.name + "_sum", labels: labels},
		count: pushCounter{r: h.r, name: h.name + "_count", labels: labels},
	}
}
