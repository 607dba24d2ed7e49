package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bucknalla/go-vessel-simulator/vessel"
)

// Collector bundles Prometheus metrics for simulation runs. It satisfies
// vessel.Recorder so the simulator drives the values directly.
type Collector struct {
	gatherer prometheus.Gatherer

	RunsStarted  prometheus.Counter
	RunsFinished *prometheus.CounterVec
	TicksEmitted prometheus.Counter
	Running      prometheus.Gauge
}

var _ vessel.Recorder = (*Collector)(nil)

// NewCollector registers simulator metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	started, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vessel_runs_started_total",
		Help: "Total number of simulation runs started.",
	}), "vessel_runs_started_total")
	if err != nil {
		return nil, err
	}

	finished, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vessel_runs_finished_total",
		Help: "Total number of simulation runs finished, labeled by outcome.",
	}, []string{"outcome"}), "vessel_runs_finished_total")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vessel_ticks_emitted_total",
		Help: "Total number of position updates emitted.",
	}), "vessel_ticks_emitted_total")
	if err != nil {
		return nil, err
	}

	running, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vessel_simulation_running",
		Help: "1 while a simulation run is in progress.",
	}), "vessel_simulation_running")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		RunsStarted:  started,
		RunsFinished: finished,
		TicksEmitted: ticks,
		Running:      running,
	}, nil
}

// RunStarted implements vessel.Recorder
func (c *Collector) RunStarted(vessel.Plan) {
	if c == nil {
		return
	}
	c.RunsStarted.Inc()
	c.Running.Set(1)
}

// TickEmitted implements vessel.Recorder
func (c *Collector) TickEmitted() {
	if c == nil {
		return
	}
	c.TicksEmitted.Inc()
}

// RunFinished implements vessel.Recorder
func (c *Collector) RunFinished(phase vessel.Phase) {
	if c == nil {
		return
	}
	c.RunsFinished.WithLabelValues(phase.String()).Inc()
	c.Running.Set(0)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
