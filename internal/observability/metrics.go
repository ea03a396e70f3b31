package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the process-wide counter/histogram registry. It is
// constructed once at startup and shared by every component; all of its
// methods are safe for concurrent use, matching the concurrency
// discipline requires of process-wide state.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ToolCallsTotal  *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheEvictions  prometheus.Counter
	BreakerState    *prometheus.GaugeVec
	RateLimited     *prometheus.CounterVec
	ExecDuration    *prometheus.HistogramVec
	ExecTimeouts    prometheus.Counter
	ExecBusy        prometheus.Counter
}

// NewMetrics constructs and registers every collector on a fresh
// registry so tests can build isolated instances.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultimatemcp_requests_total",
			Help: "Total requests handled, by route and outcome.",
		}, []string{"route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ultimatemcp_request_duration_seconds",
			Help:    "Request handling duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultimatemcp_tool_calls_total",
			Help: "Total tool invocations, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultimatemcp_cache_hits_total",
			Help: "Cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultimatemcp_cache_misses_total",
			Help: "Cache misses.",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultimatemcp_cache_evictions_total",
			Help: "Cache evictions (TTL or capacity).",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ultimatemcp_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=half_open, 2=open.",
		}, []string{"dependency"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultimatemcp_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		ExecDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ultimatemcp_exec_duration_seconds",
			Help:    "Code execution duration in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30},
		}, []string{"language"}),
		ExecTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultimatemcp_exec_timeouts_total",
			Help: "Code executions that hit their deadline.",
		}),
		ExecBusy: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultimatemcp_exec_busy_total",
			Help: "Code executions rejected because the worker pool was saturated.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.ToolCallsTotal,
		m.CacheHits, m.CacheMisses, m.CacheEvictions,
		m.BreakerState, m.RateLimited, m.ExecDuration, m.ExecTimeouts, m.ExecBusy,
	)
	return m
}
