// Package metrics exposes prometheus instruments for backend calls, cache
// lookups, batch sessions and OCR.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	BackendDuration *prometheus.HistogramVec
	BackendErrors   *prometheus.CounterVec
	BreakerState    *prometheus.GaugeVec
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	Runs            *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	KeepAlives      *prometheus.CounterVec
	OCRDuration     *prometheus.HistogramVec
}

func New() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accessdeck_backend_request_duration_seconds",
				Help:    "Duration of calls to the remediation backend",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"endpoint", "result"},
		),
		BackendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessdeck_backend_errors_total",
				Help: "Failed backend calls by endpoint and kind",
			},
			[]string{"endpoint", "kind"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "accessdeck_backend_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessdeck_cache_hits_total",
				Help: "Report cache hits",
			},
			[]string{"cache"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessdeck_cache_misses_total",
				Help: "Report cache misses",
			},
			[]string{"cache"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessdeck_remediation_runs_total",
				Help: "Remediation runs by final state",
			},
			[]string{"state"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "accessdeck_batch_sessions_active",
				Help: "Batch sessions with a running keep-alive",
			},
		),
		KeepAlives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accessdeck_batch_keepalive_total",
				Help: "Batch session keep-alive pings by result",
			},
			[]string{"result"},
		),
		OCRDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accessdeck_ocr_duration_seconds",
				Help:    "Screenshot OCR duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"engine", "result"},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.BackendDuration,
		m.BackendErrors,
		m.BreakerState,
		m.CacheHits,
		m.CacheMisses,
		m.Runs,
		m.ActiveSessions,
		m.KeepAlives,
		m.OCRDuration,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// The helpers below accept a nil receiver so components can run without metrics.

func (m *Registry) ObserveBackend(endpoint string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BackendDuration.WithLabelValues(endpoint, result).Observe(time.Since(started).Seconds())
}

func (m *Registry) BackendError(endpoint, kind string) {
	if m == nil {
		return
	}
	m.BackendErrors.WithLabelValues(endpoint, kind).Inc()
}

func (m *Registry) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Registry) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
	} else {
		m.CacheMisses.WithLabelValues(cache).Inc()
	}
}

func (m *Registry) RunFinished(state string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(state).Inc()
}

func (m *Registry) SessionStarted() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Registry) SessionStopped() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}

func (m *Registry) KeepAlive(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.KeepAlives.WithLabelValues("ok").Inc()
	} else {
		m.KeepAlives.WithLabelValues("failed").Inc()
	}
}

func (m *Registry) ObserveOCR(engine string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OCRDuration.WithLabelValues(engine, result).Observe(time.Since(started).Seconds())
}
