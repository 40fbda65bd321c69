// Package metrics exposes Prometheus counters for recommendation runs and
// HTTP traffic on a dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
)

// Run outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeInputError = "input_error"
	OutcomeError      = "error"
)

type Collector struct {
	registry        *prometheus.Registry
	runs            *prometheus.CounterVec
	warnings        *prometheus.CounterVec
	products        prometheus.Gauge
	computeDuration prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reorder_runs_total",
			Help: "Recommendation runs by outcome.",
		}, []string{"outcome"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reorder_warnings_total",
			Help: "Data quality warnings by kind.",
		}, []string{"kind"}),
		products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reorder_products_evaluated",
			Help: "Products in the most recent successful run.",
		}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reorder_compute_duration_seconds",
			Help:    "Time spent validating and computing recommendations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		c.runs, c.warnings, c.products, c.computeDuration, c.httpRequests, c.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one completed run. res is nil on failure.
func (c *Collector) ObserveRun(outcome string, took time.Duration, res *reorder.Result) {
	c.runs.WithLabelValues(outcome).Inc()
	c.computeDuration.Observe(took.Seconds())
	if res == nil {
		return
	}
	c.products.Set(float64(len(res.Recommendations)))
	for _, w := range res.Warnings {
		c.warnings.WithLabelValues(string(w.Kind)).Inc()
	}
}

// Outcome classifies a run error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case reorder.IsInputError(err):
		return OutcomeInputError
	default:
		return OutcomeError
	}
}

// Middleware records request counts and latency keyed by the matched route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
