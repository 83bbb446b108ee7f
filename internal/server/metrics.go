package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saaskit/signupcheck/internal/model"
)

// Values of the "result" label.
const (
	resultAvailable   = "available"
	resultUnavailable = "unavailable"
	resultError       = "error"
	resultInvalid     = "invalid"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	reg    *prometheus.Registry
	checks *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signupcheck_checks_total",
			Help: "Availability checks answered, by field kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		m.checks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(kind model.Kind, result string) {
	m.checks.WithLabelValues(kind.String(), result).Inc()
}
