// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus collectors for the HTTP server and
// the publishing pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/folio/internal/version"
)

// ServerMetrics owns a private registry so tests and multiple servers never
// collide on the global one.
type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight    prometheus.Gauge
	reqTotal    *prometheus.CounterVec
	reqDur      *prometheus.HistogramVec
	respBytes   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	buildInfo   *prometheus.GaugeVec

	revalidationsTotal        *prometheus.CounterVec
	revalidationFailuresTotal prometheus.Counter
	subscribeTotal            *prometheus.CounterVec
	ratelimitDeniedTotal      prometheus.Counter
	cacheResultsTotal         *prometheus.CounterVec
	jobRunsTotal              *prometheus.CounterVec
}

// New returns a fresh registry with the Go and process collectors plus the
// application metrics. Labels are restricted to route patterns and small
// enums to keep cardinality bounded.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304},
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "folio_build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"version", "commit", "build_time", "go_version"}),
		revalidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_revalidations_total",
			Help: "Revalidation webhooks handled by event kind",
		}, []string{"kind"}),
		revalidationFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_revalidation_failures_total",
			Help: "Revalidations where at least one tag or path failed to invalidate",
		}),
		subscribeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_subscribe_total",
			Help: "Newsletter subscribe attempts by result",
		}, []string{"result"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_ratelimit_denied_total",
			Help: "Subscribe attempts rejected by the rate limiter",
		}),
		cacheResultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_cache_results_total",
			Help: "Response cache lookups by result (hit, miss)",
		}, []string{"result"}),
		jobRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		}, []string{"job", "outcome"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.buildInfo,
		m.revalidationsTotal,
		m.revalidationFailuresTotal,
		m.subscribeTotal,
		m.ratelimitDeniedTotal,
		m.cacheResultsTotal,
		m.jobRunsTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// SetBuildInfo is called once at startup.
func (m *ServerMetrics) SetBuildInfo(vi version.Info) {
	m.buildInfo.Reset()
	m.buildInfo.With(prometheus.Labels{
		"version":    vi.Version,
		"commit":     vi.GitCommit,
		"build_time": vi.BuildTime,
		"go_version": vi.GoVersion,
	}).Set(1)
}

func (m *ServerMetrics) IncRevalidation(kind string) {
	m.revalidationsTotal.WithLabelValues(kind).Inc()
}

func (m *ServerMetrics) IncRevalidationFailure() {
	m.revalidationFailuresTotal.Inc()
}

func (m *ServerMetrics) IncSubscribe(result string) {
	m.subscribeTotal.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

// IncCache records a response cache lookup; result is "hit" or "miss".
func (m *ServerMetrics) IncCache(result string) {
	m.cacheResultsTotal.WithLabelValues(result).Inc()
}

// IncJobRun records a scheduled job run; outcome is "ok" or "error".
func (m *ServerMetrics) IncJobRun(job, outcome string) {
	m.jobRunsTotal.WithLabelValues(job, outcome).Inc()
}
