package srv

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the server's Prometheus registry.
type Metrics struct {
	registry  *prometheus.Registry
	plainText *prometheus.CounterVec
	views     *prometheus.CounterVec
}

// NewMetrics creates a registry with the process and Go collectors plus the
// server's own counters.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		plainText: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otalog",
			Name:      "plaintext_responses_total",
			Help:      "Plain-text changelog responses by trigger rule and status code.",
		}, []string{"rule", "code"}),
		views: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "otalog",
			Name:      "view_responses_total",
			Help:      "Rich view responses by page and status code.",
		}, []string{"page", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.plainText,
		m.views,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
// Compression is left to the Gzip middleware.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}

func (m *Metrics) observePlainText(rule Rule, code int) {
	m.plainText.WithLabelValues(rule.String(), strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeView(page string, code int) {
	m.views.WithLabelValues(page, strconv.Itoa(code)).Inc()
}
