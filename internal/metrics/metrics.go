// Package metrics collects run counters on a private prometheus registry and
// exports them in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	symbols   *prometheus.CounterVec
	targets   *prometheus.CounterVec
	computes  *prometheus.CounterVec
	renderDur *prometheus.HistogramVec
	lastRun   prometheus.Gauge
}

// New registers the collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		symbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "symbols_total",
			Help:      "Symbols processed, by final state.",
		}, []string{"state"}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "targets_total",
			Help:      "Output targets processed, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		computes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indicator",
			Name:      "computations_total",
			Help:      "Indicator set computations, by period.",
		}, []string{"period"}),
		renderDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time spent rendering one target.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "theme", "outcome"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
	m.registry.MustRegister(m.symbols, m.targets, m.computes, m.renderDur, m.lastRun)
	return m
}

// Registry exposes the underlying gatherer.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// SymbolFinished counts a symbol reaching a terminal state.
func (m *Metrics) SymbolFinished(state string) {
	m.symbols.WithLabelValues(state).Inc()
}

// TargetFinished counts one target outcome ("rendered", "skipped", "failed").
func (m *Metrics) TargetFinished(kind, outcome string) {
	m.targets.WithLabelValues(kind, outcome).Inc()
}

// Computed counts one indicator computation.
func (m *Metrics) Computed(period string) {
	m.computes.WithLabelValues(period).Inc()
}

// ObserveRender records a render duration.
func (m *Metrics) ObserveRender(kind, theme string, err error, d time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.renderDur.WithLabelValues(kind, theme, outcome).Observe(d.Seconds())
}

// RunFinished stamps the last-run gauge.
func (m *Metrics) RunFinished(at time.Time) {
	m.lastRun.Set(float64(at.Unix()))
}

// WriteTextfile writes every metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
