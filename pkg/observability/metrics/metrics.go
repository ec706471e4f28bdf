// Package metrics implements the observability hooks with Prometheus
// collectors.
//
// Each [Metrics] owns its own registry, so several instances (one per test,
// say) never collide on metric names:
//
//	m := metrics.New()
//	m.Install()
//	defer observability.Reset()
//	// ... use registry clients
//	samples, _ := m.Snapshot()
package metrics

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/deputy/pkg/observability"
)

const namespace = "deputy"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Cache metrics
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheEntries       *prometheus.GaugeVec
	CacheInvalidations *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Rate limit metrics
	RateLimited          *prometheus.GaugeVec
	RateLimitTransitions *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
		CacheEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cache_entries",
				Help:      "Number of entries after the last cache write",
			},
			[]string{"cache"},
		),
		CacheInvalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_invalidations_total",
				Help:      "Total number of full cache invalidations",
			},
			[]string{"cache"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of registry HTTP responses",
			},
			[]string{"method", "host", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Registry HTTP request duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "host"},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_errors_total",
				Help:      "Total number of registry requests that failed without a response",
			},
			[]string{"method", "host"},
		),

		RateLimited: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rate_limited",
				Help:      "1 while the limiter is in the limited state",
			},
			[]string{"limiter"},
		),
		RateLimitTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_transitions_total",
				Help:      "Total number of limiter state transitions",
			},
			[]string{"limiter", "state"},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Install registers m as the cache, HTTP and rate limit hooks.
func (m *Metrics) Install() {
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
	observability.SetRateLimitHooks(m)
}

func (m *Metrics) OnCacheHit(_ context.Context, cache string) {
	m.CacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, cache string) {
	m.CacheMisses.WithLabelValues(cache).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, cache string, entries int) {
	m.CacheEntries.WithLabelValues(cache).Set(float64(entries))
}

func (m *Metrics) OnCacheInvalidate(cache string) {
	m.CacheInvalidations.WithLabelValues(cache).Inc()
	m.CacheEntries.WithLabelValues(cache).Set(0)
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, host, _ string, statusCode int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, host, strconv.Itoa(statusCode)).Inc()
	m.RequestDuration.WithLabelValues(method, host).Observe(duration.Seconds())
}

func (m *Metrics) OnError(_ context.Context, method, host, _ string, _ error) {
	m.RequestErrors.WithLabelValues(method, host).Inc()
}

func (m *Metrics) OnLimited(limiter string) {
	m.RateLimited.WithLabelValues(limiter).Set(1)
	m.RateLimitTransitions.WithLabelValues(limiter, "limited").Inc()
}

func (m *Metrics) OnOpen(limiter string) {
	m.RateLimited.WithLabelValues(limiter).Set(0)
	m.RateLimitTransitions.WithLabelValues(limiter, "open").Inc()
}

// Sample is one gathered series. Histograms report their sample count.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// String renders the sample as name{labels} value.
func (s Sample) String() string {
	name := s.Name
	if s.Labels != "" {
		name += "{" + s.Labels + "}"
	}
	return name + " " + strconv.FormatFloat(s.Value, 'g', -1, 64)
}

// Snapshot gathers every series with a non-zero value, sorted by name and
// labels.
func (m *Metrics) Snapshot() ([]Sample, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			var value float64
			switch {
			case metric.GetCounter() != nil:
				value = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				value = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				value = float64(metric.GetHistogram().GetSampleCount())
			}
			if value == 0 {
				continue
			}
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+strconv.Quote(lp.GetValue()))
			}
			out = append(out, Sample{Name: mf.GetName(), Labels: strings.Join(labels, ","), Value: value})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Labels < out[j].Labels
	})
	return out, nil
}
