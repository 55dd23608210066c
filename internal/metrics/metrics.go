// Package metrics exposes Prometheus collectors for registry persistence and visits.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortlink"

const (
	resultOK    = "ok"
	resultError = "error"
)

type Metrics struct {
	saves   *prometheus.CounterVec
	visits  prometheus.Counter
	entries prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Snapshot writes to the persistence store by result.",
		}, []string{"result"}),
		visits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "visits_total",
			Help:      "Recorded redirects to known short codes.",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "entries",
			Help:      "Number of entries held by the registry.",
		}),
	}

	reg.MustRegister(m.saves, m.visits, m.entries)

	return m
}

func (m *Metrics) ObserveSave(err error) {
	if err != nil {
		m.saves.WithLabelValues(resultError).Inc()
		return
	}
	m.saves.WithLabelValues(resultOK).Inc()
}

func (m *Metrics) ObserveVisit() {
	m.visits.Inc()
}

func (m *Metrics) SetEntries(n int) {
	m.entries.Set(float64(n))
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
