// Package arm64 - Selection counters
package arm64

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts selection decisions. A nil *Metrics records nothing.
type Metrics struct {
	constants *prometheus.CounterVec
	atomics   *prometheus.CounterVec
	nodes     *prometheus.CounterVec
}

// NewMetrics creates the selection counters and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		constants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a64isel_constants_materialized_total",
				Help: "Integer and floating-point constants materialized, by strategy.",
			},
			[]string{"strategy"},
		),
		atomics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a64isel_atomics_lowered_total",
				Help: "Atomic read-modify-write operations lowered, by memory width.",
			},
			[]string{"width"},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a64isel_nodes_selected_total",
				Help: "Nodes visited by the selector, by dispatch kind.",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.constants, m.atomics, m.nodes)
	}
	return m
}

func (m *Metrics) constant(strategy string) {
	if m != nil {
		m.constants.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) atomic(width int) {
	if m != nil {
		m.atomics.WithLabelValues(strconv.Itoa(width)).Inc()
	}
}

func (m *Metrics) node(kind string) {
	if m != nil {
		m.nodes.WithLabelValues(kind).Inc()
	}
}
