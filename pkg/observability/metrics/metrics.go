// Package metrics implements the observability hooks with Prometheus
// collectors.
//
// Each [Metrics] owns its registry, so tests and embedded servers can
// create as many as they like without duplicate registration panics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chris-a-talbot/sparg-viz/pkg/observability"
)

const namespace = "spargviz"

// Metrics records pipeline, cache and HTTP events.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	stageSize     *prometheus.HistogramVec
	inFlight      *prometheus.GaugeVec

	cacheEvents *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpRateLimited *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage", "status"}),
		stageTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Pipeline stage runs by outcome",
		}, []string{"stage", "status"}),
		stageSize: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_input_size",
			Help:      "Samples simulated or laid out, nodes inferred",
			Buckets:   prometheus.ExponentialBuckets(2, 2, 10),
		}, []string{"stage"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Pipeline stages currently running",
		}, []string{"stage"}),
		cacheEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache hits, misses and writes by key type",
		}, []string{"key_type", "event"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache by key type",
		}, []string{"key_type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpRateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"method", "route"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Install registers m as the pipeline, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) start(stage string, size int) {
	m.inFlight.WithLabelValues(stage).Inc()
	m.stageSize.WithLabelValues(stage).Observe(float64(size))
}

func (m *Metrics) complete(stage string, d time.Duration, err error) {
	m.inFlight.WithLabelValues(stage).Dec()
	m.stageDuration.WithLabelValues(stage, status(err)).Observe(d.Seconds())
	m.stageTotal.WithLabelValues(stage, status(err)).Inc()
}

func (m *Metrics) OnSimulateStart(_ context.Context, samples, _ int) { m.start("simulate", samples) }
func (m *Metrics) OnSimulateComplete(_ context.Context, _, _ int, d time.Duration, err error) {
	m.complete("simulate", d, err)
}
func (m *Metrics) OnLayoutStart(_ context.Context, samples int) { m.start("layout", samples) }
func (m *Metrics) OnLayoutComplete(_ context.Context, _ int, d time.Duration, err error) {
	m.complete("layout", d, err)
}

// OnRenderStart does not observe a size; artifacts have none up front.
func (m *Metrics) OnRenderStart(_ context.Context, _ string) {
	m.inFlight.WithLabelValues("render").Inc()
}
func (m *Metrics) OnRenderComplete(_ context.Context, _ string, d time.Duration, err error) {
	m.complete("render", d, err)
}
func (m *Metrics) OnInferStart(_ context.Context, nodes int) { m.start("infer", nodes) }
func (m *Metrics) OnInferComplete(_ context.Context, _ int, d time.Duration, err error) {
	m.complete("infer", d, err)
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnRequest is a no-op; requests are counted once they complete.
func (m *Metrics) OnRequest(context.Context, string, string) {}
func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
func (m *Metrics) OnRateLimited(_ context.Context, method, route string) {
	m.httpRateLimited.WithLabelValues(method, route).Inc()
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
