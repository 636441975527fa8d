package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	nodes        prometheus.Gauge
	edges        prometheus.Gauge
	energy       prometheus.Gauge
	frames       prometheus.Counter
	inputDropped prometheus.Counter
}

// NewMetrics registers the engine collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "kgview_engine_ticks_total",
			Help: "Total scheduler ticks processed",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kgview_engine_tick_duration_seconds",
			Help:    "Time spent applying input and stepping physics per tick",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50µs to ~100ms
		}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "kgview_graph_nodes",
			Help: "Number of nodes in the live graph",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Name: "kgview_graph_edges",
			Help: "Number of edges in the live graph",
		}),
		energy: f.NewGauge(prometheus.GaugeOpts{
			Name: "kgview_layout_kinetic_energy",
			Help: "Sum of squared node speeds after the last physics step",
		}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Name: "kgview_frames_total",
			Help: "Frames marked for redraw",
		}),
		inputDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kgview_input_dropped_total",
			Help: "Input events dropped because the pending buffer was full",
		}),
	}
}

func (m *Metrics) observeTick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) setSize(nodes, edges int) {
	if m == nil {
		return
	}
	m.nodes.Set(float64(nodes))
	m.edges.Set(float64(edges))
}

func (m *Metrics) setEnergy(e float64) {
	if m == nil {
		return
	}
	m.energy.Set(e)
}

func (m *Metrics) frame() {
	if m == nil {
		return
	}
	m.frames.Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.inputDropped.Inc()
}
