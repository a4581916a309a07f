// Package telemetry wires Prometheus counters/gauges for the replay
// engine, following the registration style of the teacher pack's
// coinbase bot metrics module: one var block of CounterVec/Gauge values,
// registered once, served over /metrics by cmd/replayctl.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
)

// Registry bundles every metric the core publishes.
type Registry struct {
	reg *prometheus.Registry

	droppedTicks    prometheus.Counter
	malformedTicks  prometheus.Counter
	busDrops        *prometheus.CounterVec
	balanceSOL      prometheus.Gauge
	openPositions   prometheus.Gauge
	recorderFailure prometheus.Counter
}

func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		droppedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_dropped_ticks_total",
			Help: "Ticks dropped by the recorder under backpressure.",
		}),
		malformedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_malformed_ticks_total",
			Help: "Ticks skipped because they failed to parse or validate.",
		}),
		busDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_bus_queue_drops_total",
			Help: "Events dropped because a subscriber queue was full.",
		}, []string{"kind"}),
		balanceSOL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_balance_sol",
			Help: "Current wallet balance in SOL.",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_open_positions",
			Help: "1 if a position is currently open, else 0.",
		}),
		recorderFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_recorder_flush_failures_total",
			Help: "Recorder flushes that failed after their retry.",
		}),
	}

	r.reg.MustRegister(r.droppedTicks, r.malformedTicks, r.busDrops, r.balanceSOL, r.openPositions, r.recorderFailure)
	return r
}

// Registerer exposes the underlying Prometheus registry for the HTTP handler.
func (r *Registry) Registerer() *prometheus.Registry { return r.reg }

func (r *Registry) IncBusDrop(kind bus.Kind) {
	r.busDrops.WithLabelValues(string(kind)).Inc()
}

func (r *Registry) IncDroppedTicks(n int) {
	r.droppedTicks.Add(float64(n))
}

func (r *Registry) IncMalformedTick() {
	r.malformedTicks.Inc()
}

func (r *Registry) IncRecorderFailure() {
	r.recorderFailure.Inc()
}

func (r *Registry) SetBalance(sol float64) {
	r.balanceSOL.Set(sol)
}

func (r *Registry) SetOpenPositions(n int) {
	r.openPositions.Set(float64(n))
}
