// Package app wires a scenario, the dispatch driver and the infrastructure
// adapters into a runnable simulation.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/gridopt/config"
	"github.com/kilianp07/gridopt/core/dispatch"
	"github.com/kilianp07/gridopt/core/dispatch/logging"
	"github.com/kilianp07/gridopt/core/events"
	coremetrics "github.com/kilianp07/gridopt/core/metrics"
	"github.com/kilianp07/gridopt/core/opt"
	"github.com/kilianp07/gridopt/infra/logger"
	"github.com/kilianp07/gridopt/infra/metrics"
	"github.com/kilianp07/gridopt/infra/mqtt"
	"github.com/kilianp07/gridopt/infra/solver"
	_ "github.com/kilianp07/gridopt/infra/solver/lpsolver"
	"github.com/kilianp07/gridopt/internal/eventbus"
)

// Option customizes a Simulation.
type Option func(*options)

type options struct {
	solver    opt.Solver
	publisher mqtt.Publisher
	sink      coremetrics.MetricsSink
	store     logging.LogStore
}

// WithSolver replaces the configured solver.
func WithSolver(s opt.Solver) Option { return func(o *options) { o.solver = s } }

// WithPublisher replaces the MQTT client built from the configuration.
func WithPublisher(p mqtt.Publisher) Option { return func(o *options) { o.publisher = p } }

// WithMetricsSink replaces the configured metrics sinks.
func WithMetricsSink(s coremetrics.MetricsSink) Option { return func(o *options) { o.sink = s } }

// WithLogStore replaces the configured advance log store.
func WithLogStore(s logging.LogStore) Option { return func(o *options) { o.store = s } }

// Simulation advances a dispatch model over a scenario and fans every
// advance out to metrics sinks, the MQTT publisher and the log store.
type Simulation struct {
	Model    *dispatch.MyopicDispatchModel
	Scenario *Scenario

	steps       int
	promAddr    string
	topicPrefix string
	bus         *eventbus.TypedBus[events.AdvanceEvent]
	sink        coremetrics.MetricsSink
	publisher   mqtt.Publisher
	store       logging.LogStore
	paho        *mqtt.PahoClient
	log         logger.Logger
	closeOnce   sync.Once
}

// New builds a Simulation from the configuration.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if cfg.Scenario.Empty() {
		return nil, errors.New("scenario declares no part")
	}
	log := logger.New("simulation")

	sim := &Simulation{
		steps:       cfg.Dispatch.Steps,
		promAddr:    cfg.Metrics.PrometheusAddr,
		topicPrefix: cfg.MQTT.TopicPrefix,
		bus:         eventbus.NewTyped[events.AdvanceEvent](),
		log:         log,
	}

	s := o.solver
	if s == nil {
		var err error
		if s, err = solver.New(cfg.Solver); err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
	}

	sim.sink = o.sink
	if sim.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		sim.sink = sink
	}

	sim.store = o.store
	if sim.store == nil {
		store, err := NewLogStore(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("log store: %w", err)
		}
		sim.store = store
	}

	modelOpts := []dispatch.Option{
		dispatch.WithLogger(logger.New("dispatch")),
		dispatch.WithEventBus(sim.bus),
	}
	if sim.store != nil {
		modelOpts = append(modelOpts, dispatch.WithLogStore(sim.store))
	}
	model, err := dispatch.NewMyopicDispatchModel(cfg.Scenario.Name, cfg.Dispatch, s, modelOpts...)
	if err != nil {
		_ = sim.closeStore()
		return nil, err
	}
	model.SetTimeUnit(cfg.Scenario.TimeUnit)
	sim.Model = model

	scenario, err := BuildScenario(cfg.Scenario, cfg.Dispatch.T0)
	if err != nil {
		_ = sim.closeStore()
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := scenario.Attach(model.Part); err != nil {
		_ = sim.closeStore()
		return nil, fmt.Errorf("scenario: %w", err)
	}
	sim.Scenario = scenario

	sim.publisher = o.publisher
	if sim.publisher == nil && cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = sim.closeStore()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		sim.paho = client
		sim.publisher = client
	}
	return sim, nil
}

// Run advances the model the configured number of steps and returns the
// committed schedule. Background consumers are drained before returning.
func (s *Simulation) Run(ctx context.Context) ([]events.CommittedValue, error) {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.promAddr != "" {
		go func() {
			if err := metrics.StartPromServer(bgCtx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	collectorDone := metrics.StartAdvanceCollector(bgCtx, s.bus, s.sink)
	publisherDone := mqtt.StartSchedulePublisher(bgCtx, s.bus, s.publisher, s.topicPrefix)

	s.log.Infow("simulation started", map[string]any{
		"model":   s.Model.Name(),
		"t0":      s.Model.T(),
		"horizon": s.Model.Horizon(),
		"step":    s.Model.Step(),
		"steps":   s.steps,
	})
	runErr := s.Model.Run(ctx, s.steps)

	s.bus.Close()
	<-collectorDone
	<-publisherDone
	if dropped := s.bus.Dropped(); dropped > 0 {
		s.log.Warnf("%d advance events dropped by slow consumers", dropped)
	}

	schedule, err := s.Schedule()
	if err != nil && runErr == nil {
		runErr = err
	}
	return schedule, runErr
}

// Schedule returns the values of every state variable at every committed
// time step, ordered by time then variable name.
func (s *Simulation) Schedule() ([]events.CommittedValue, error) {
	seen := map[*opt.Variable]bool{}
	var out []events.CommittedValue
	for _, t := range s.Model.Committed() {
		for _, part := range s.Model.DescendantsAndSelf() {
			vars, err := part.StateVariables(t)
			if err != nil {
				return nil, err
			}
			for _, v := range vars {
				if seen[v] {
					continue
				}
				x, err := v.Value()
				if err != nil {
					continue
				}
				seen[v] = true
				out = append(out, events.CommittedValue{Part: part.Name(), Variable: v.Name(), T: t, Value: x})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].T != out[j].T {
			return out[i].T < out[j].T
		}
		return out[i].Variable < out[j].Variable
	})
	return out, nil
}

// Close releases the MQTT connection and the log store.
func (s *Simulation) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.paho != nil {
			s.paho.Disconnect()
		}
		err = s.closeStore()
	})
	return err
}

func (s *Simulation) closeStore() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
