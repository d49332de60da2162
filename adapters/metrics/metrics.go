// Package metrics provides Prometheus metrics collection for the module
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the engine.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Engine metrics
	RendersTotal  *prometheus.CounterVec
	ActionsTotal  *prometheus.CounterVec
	ResolvesTotal *prometheus.CounterVec

	// Registry metrics
	ModulesLoaded  prometheus.Gauge
	ModuleFailures prometheus.Gauge
	ReloadsTotal   *prometheus.CounterVec
}

// New creates a collector registered on reg. Pass a fresh registry in
// tests to avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tera",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tera",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tera",
				Name:      "renders_total",
				Help:      "Total number of screen renders",
			},
			[]string{"module", "screen_type"},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tera",
				Name:      "actions_total",
				Help:      "Total number of action dispatches",
			},
			[]string{"module", "action", "result"},
		),
		ResolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tera",
				Name:      "route_resolves_total",
				Help:      "Total number of route resolutions",
			},
			[]string{"result"},
		),

		ModulesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tera",
				Name:      "modules_loaded",
				Help:      "Number of modules in the current snapshot",
			},
		),
		ModuleFailures: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "tera",
				Name:      "module_failures",
				Help:      "Number of modules that failed to load in the current snapshot",
			},
		),
		ReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tera",
				Name:      "reloads_total",
				Help:      "Total number of module reloads",
			},
			[]string{"result"},
		),
	}
}

// ObserveSnapshot records the size of a freshly installed snapshot.
func (c *Collector) ObserveSnapshot(modules, failures int) {
	c.ModulesLoaded.Set(float64(modules))
	c.ModuleFailures.Set(float64(failures))
}
