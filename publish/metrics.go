package publish

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts generated artifacts by outcome.
type Metrics struct {
	artifacts *prometheus.CounterVec
}

// NewMetrics registers the generator counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otalog",
			Name:      "generated_artifacts_total",
			Help:      "Static artifacts handled by generation runs, by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.artifacts)
	return m
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(string(o)).Inc()
}

// WriteTextfile writes every metric in g to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
