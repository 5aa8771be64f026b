package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	baselineLoadsTotal     *prometheus.CounterVec
	baselineSubmitsTotal   *prometheus.CounterVec
	baselineStepsActive    prometheus.Gauge
	reportCacheLookupTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		baselineLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baseline_category_loads_total",
			Help: "Category loads performed by baseline steps, by outcome.",
		}, []string{"outcome"})

		baselineSubmitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baseline_submissions_total",
			Help: "Baseline report submissions, by outcome.",
		}, []string{"outcome"})

		baselineStepsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "baseline_steps_active",
			Help: "Number of mounted baseline steps.",
		})

		reportCacheLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "report_cache_lookups_total",
			Help: "Report list cache lookups, by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			baselineLoadsTotal,
			baselineSubmitsTotal,
			baselineStepsActive,
			reportCacheLookupTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// BaselineLoads counts category loads by outcome (ok, error, discarded).
func BaselineLoads() *prometheus.CounterVec {
	RegisterMetrics()
	return baselineLoadsTotal
}

// BaselineSubmissions counts submit attempts by outcome.
func BaselineSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return baselineSubmitsTotal
}

// BaselineStepsActive tracks mounted steps held by the registry.
func BaselineStepsActive() prometheus.Gauge {
	RegisterMetrics()
	return baselineStepsActive
}

// ReportCacheLookups counts report cache hits and misses.
func ReportCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return reportCacheLookupTotal
}
