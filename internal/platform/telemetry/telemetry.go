// Package telemetry keeps in-process HTTP and diagnosis metrics and serves
// them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Config identifies the service in exported metrics.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "meddx"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram is a thread-safe histogram with fixed bucket boundaries. Bucket
// counts are stored non-cumulative and accumulated at export time.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits, updated by CAS
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

// Observe records a single value.
func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := append([]int64(nil), h.bucketCounts...)
	h.mu.Unlock()

	var running int64
	for i, c := range raw {
		running += c
		raw[i] = running
	}
	return raw
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(addr, old, next) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Labeled series
// ---------------------------------------------------------------------------

// series maps a label tuple to a value. Label values are joined with "|",
// which never appears in a route, disease key or outcome.
type series[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	newItem func() T
}

func newSeries[T any](mk func() T) *series[T] {
	return &series[T]{items: make(map[string]T), newItem: mk}
}

func (s *series[T]) get(labels ...string) T {
	key := strings.Join(labels, "|")
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok = s.items[key]; !ok {
		v = s.newItem()
		s.items[key] = v
	}
	return v
}

func (s *series[T]) lookup(labels ...string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[strings.Join(labels, "|")]
	return v, ok
}

// sorted returns the label tuples and values in key order so the exposition
// is stable between scrapes.
func (s *series[T]) sorted() ([][]string, []T) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	labels := make([][]string, len(keys))
	values := make([]T, len(keys))
	s.mu.RLock()
	for i, k := range keys {
		labels[i] = strings.Split(k, "|")
		values[i] = s.items[k]
	}
	s.mu.RUnlock()
	return labels, values
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// durationBuckets are request and diagnosis latency boundaries in seconds.
var durationBuckets = []float64{
	0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5, 5.0, 10.0,
}

type gaugeFunc struct {
	name string
	help string
	fn   func() float64
}

// Provider holds every metric the service exports.
type Provider struct {
	cfg Config

	activeRequests int64
	httpDuration   *series[*histogram] // method, route, status_code
	diagnoses      *series[*int64]     // disease, outcome
	diagDuration   *series[*histogram] // disease

	gaugesMu sync.RWMutex
	gauges   []gaugeFunc
}

func NewProvider(cfg Config) *Provider {
	cfg.applyDefaults()
	newHist := func() *histogram { return newHistogram(durationBuckets) }
	return &Provider{
		cfg:          cfg,
		httpDuration: newSeries(newHist),
		diagnoses:    newSeries(func() *int64 { return new(int64) }),
		diagDuration: newSeries(newHist),
	}
}

// ObserveDiagnosis records one finished diagnosis. It satisfies the
// diagnosis service's Observer.
func (p *Provider) ObserveDiagnosis(disease, outcome string, elapsed time.Duration) {
	atomic.AddInt64(p.diagnoses.get(disease, outcome), 1)
	p.diagDuration.get(disease).Observe(elapsed.Seconds())
}

// DiagnosisCount returns how many diagnoses for disease ended in outcome.
func (p *Provider) DiagnosisCount(disease, outcome string) int64 {
	n, ok := p.diagnoses.lookup(disease, outcome)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(n)
}

// RegisterGauge adds a gauge whose value is read from fn at scrape time.
func (p *Provider) RegisterGauge(name, help string, fn func() float64) {
	p.gaugesMu.Lock()
	defer p.gaugesMu.Unlock()
	p.gauges = append(p.gauges, gaugeFunc{name: name, help: help, fn: fn})
}

// MetricsMiddleware records the duration of every request by method, route
// pattern and status code.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&p.activeRequests, 1)
			defer atomic.AddInt64(&p.activeRequests, -1)
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.httpDuration.get(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler serves every metric in text exposition format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP meddx_build_info Build information.\n")
		b.WriteString("# TYPE meddx_build_info gauge\n")
		fmt.Fprintf(&b, "meddx_build_info{service=%q,version=%q,environment=%q} 1\n\n",
			p.cfg.ServiceName, p.cfg.ServiceVersion, p.cfg.Environment)

		b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", atomic.LoadInt64(&p.activeRequests))

		writeHistograms(&b, "http_server_request_duration_seconds",
			"Duration of HTTP requests in seconds.",
			[]string{"method", "route", "status_code"}, p.httpDuration)

		b.WriteString("# HELP meddx_diagnoses_total Diagnoses by disease and outcome.\n")
		b.WriteString("# TYPE meddx_diagnoses_total counter\n")
		labels, counts := p.diagnoses.sorted()
		for i, l := range labels {
			fmt.Fprintf(&b, "meddx_diagnoses_total{%s} %d\n",
				formatLabels([]string{"disease", "outcome"}, l), atomic.LoadInt64(counts[i]))
		}
		b.WriteByte('\n')

		writeHistograms(&b, "meddx_diagnosis_duration_seconds",
			"Duration of diagnosis runs in seconds.",
			[]string{"disease"}, p.diagDuration)

		p.gaugesMu.RLock()
		gauges := append([]gaugeFunc(nil), p.gauges...)
		p.gaugesMu.RUnlock()
		for _, g := range gauges {
			fmt.Fprintf(&b, "# HELP %s %s\n", g.name, g.help)
			fmt.Fprintf(&b, "# TYPE %s gauge\n", g.name)
			fmt.Fprintf(&b, "%s %g\n\n", g.name, g.fn())
		}

		return c.String(http.StatusOK, b.String())
	}
}

// ---------------------------------------------------------------------------
// Prometheus format helpers
// ---------------------------------------------------------------------------

func formatLabels(names, values []string) string {
	parts := make([]string, 0, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", n, v))
	}
	return strings.Join(parts, ",")
}

func writeHistograms(b *strings.Builder, name, help string, labelNames []string, s *series[*histogram]) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)
	labels, hists := s.sorted()
	for i, l := range labels {
		writeHistogram(b, name, formatLabels(labelNames, l), hists[i])
	}
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulativeBuckets()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, h.Count())
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, h.Count())
}
