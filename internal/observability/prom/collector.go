// Package prom exposes queuectl metrics to Prometheus. Collector implements
// statsd.Sink so the worker runtime emits once and both backends receive it.
package prom

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/target/queuectl/internal/observability/metrics"
	"github.com/target/queuectl/internal/observability/statsd"
)

const namespace = "queuectl"

// Collector owns a private registry so tests and multiple pools never collide
// on the global one.
type Collector struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	depth       *prometheus.GaugeVec
	active      prometheus.Gauge
	released    prometheus.Counter
	cleaned     prometheus.Counter
}

var _ statsd.Sink = (*Collector)(nil)

// NewCollector registers the queuectl metrics plus the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Job lifecycle transitions by outcome.",
		}, []string{"transition", "result", "error_class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Command execution time.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"transition", "result"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Jobs per state at the last stats refresh.",
		}, []string{"state"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers_active",
			Help:      "Workers running in this process.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_leases_released_total",
			Help:      "Processing jobs returned to pending after their lease went stale.",
		}),
		cleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_cleaned_total",
			Help:      "Completed jobs deleted by retention cleanup.",
		}),
	}

	c.registry.MustRegister(
		c.transitions,
		c.duration,
		c.depth,
		c.active,
		c.released,
		c.cleaned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry backing Handler.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Count maps counter names from the metrics package; others are ignored.
func (c *Collector) Count(name string, value int64, tags map[string]string) {
	if c == nil || value <= 0 {
		return
	}
	switch name {
	case metrics.JobTransition:
		c.transitions.WithLabelValues(tags["transition"], tags["result"], tags["error_class"]).Add(float64(value))
	case metrics.LeasesStale:
		c.released.Add(float64(value))
	case metrics.JobsCleaned:
		c.cleaned.Add(float64(value))
	}
}

// Gauge maps gauge names from the metrics package; others are ignored.
func (c *Collector) Gauge(name string, value float64, tags map[string]string) {
	if c == nil {
		return
	}
	switch name {
	case metrics.QueueDepth:
		c.depth.WithLabelValues(tags["state"]).Set(value)
	case metrics.WorkersActive:
		c.active.Set(value)
	}
}

// Timing maps timing names from the metrics package; others are ignored.
func (c *Collector) Timing(name string, value time.Duration, tags map[string]string) {
	if c == nil || name != metrics.JobDuration {
		return
	}
	c.duration.WithLabelValues(tags["transition"], tags["result"]).Observe(value.Seconds())
}
