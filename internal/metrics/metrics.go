package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"swapEngine/internal/model"
)

const namespace = "swapper"

// Metrics holds the engine's collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	executions      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	associations    *prometheus.CounterVec
	catalogFallback prometheus.Gauge
}

// New creates the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Swap executions by outcome and error kind.",
		}, []string{"outcome", "kind"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per execution stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		associations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "associations_total",
			Help:      "Association checks by resulting status.",
		}, []string{"status"}),
		catalogFallback: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_fallback",
			Help:      "1 when the token catalog serves the static registry after a failed refresh.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector, for registries and pushers.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.executions, m.stageDuration, m.associations, m.catalogFallback}
}

// ObserveResult counts a finished execution.
func (m *Metrics) ObserveResult(result model.ExecutionResult) {
	if m == nil {
		return
	}
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	m.executions.WithLabelValues(outcome, result.ErrorKind.String()).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveAssociation counts an association outcome.
func (m *Metrics) ObserveAssociation(status string) {
	if m == nil {
		return
	}
	m.associations.WithLabelValues(status).Inc()
}

func (m *Metrics) SetCatalogFallback(active bool) {
	if m == nil {
		return
	}
	if active {
		m.catalogFallback.Set(1)
		return
	}
	m.catalogFallback.Set(0)
}
