// Package metrics exposes quoting counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Save results.
const (
	SaveCreated = "created"
	SaveUpdated = "updated"
	SaveFailed  = "failed"
)

// Metrics holds the collectors of one server. Each instance owns its registry so
// tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	Calculations  prometheus.Counter
	Saves         *prometheus.CounterVec
	Exports       prometheus.Counter
	GatedRefusals *prometheus.CounterVec
	OpenSessions  prometheus.GaugeFunc
}

// New registers every collector. sessions reports the number of open sessions
// and may be nil.
func New(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Calculations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydropack_quote_calculations_total",
			Help: "Quote calculations run.",
		}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydropack_quote_saves_total",
			Help: "Quote saves by result.",
		}, []string{"result"}),
		Exports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydropack_document_exports_total",
			Help: "Quote documents rendered.",
		}),
		GatedRefusals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hydropack_gated_refusals_total",
			Help: "Gated requests refused because the total was out of date.",
		}, []string{"action"}),
	}
	m.OpenSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "hydropack_open_sessions",
		Help: "Quote sessions currently open.",
	}, func() float64 {
		if sessions == nil {
			return 0
		}
		return float64(sessions())
	})

	reg.MustRegister(
		m.Calculations,
		m.Saves,
		m.Exports,
		m.GatedRefusals,
		m.OpenSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Refused counts a gated action refused on a stale session.
func (m *Metrics) Refused(action string) {
	m.GatedRefusals.WithLabelValues(action).Inc()
}

// Saved counts a save attempt.
func (m *Metrics) Saved(result string) {
	m.Saves.WithLabelValues(result).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
