package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the board's Prometheus collectors on a private
// registry so tests can create isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	MutationsTotal *prometheus.CounterVec
	SavesTotal     *prometheus.CounterVec
	ReloadsTotal   prometheus.Counter
	HistoryTotal   *prometheus.CounterVec
}

// New creates and registers the board collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planboard_mutations_total",
				Help: "Total number of board mutations applied",
			},
			[]string{"kind"},
		),
		SavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planboard_saves_total",
				Help: "Total number of save attempts by result",
			},
			[]string{"result"},
		),
		ReloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "planboard_reloads_total",
				Help: "Total number of silent reloads from the linked file",
			},
		),
		HistoryTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planboard_history_total",
				Help: "Total number of undo/redo operations",
			},
			[]string{"op"},
		),
	}
	m.Registry.MustRegister(m.MutationsTotal, m.SavesTotal, m.ReloadsTotal, m.HistoryTotal)
	return m
}
