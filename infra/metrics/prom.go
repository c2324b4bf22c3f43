package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/gridopt/core/metrics"
)

// PromSink records solve and commit events in Prometheus metrics.
type PromSink struct {
	solves    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	size      *prometheus.GaugeVec
	committed *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "myopic_solves_total",
			Help: "Total number of window solves by status",
		}, []string{"model", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "myopic_solve_duration_seconds",
			Help:    "Duration of a window solve",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "myopic_objective",
			Help: "Objective value of the last solved window",
		}, []string{"model"}),
		size: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "myopic_window_size",
			Help: "Variables and constraints of the last solved window",
		}, []string{"model", "kind"}),
		committed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "myopic_committed_value",
			Help: "Last committed value of a state variable",
		}, []string{"model", "part", "variable"}),
	}
	var err error
	if s.solves, err = register(reg, s.solves); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, s.objective); err != nil {
		return nil, err
	}
	if s.size, err = register(reg, s.size); err != nil {
		return nil, err
	}
	if s.committed, err = register(reg, s.committed); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the collector already registered under the same
// descriptor, if any.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve updates the solve counters and gauges.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Model, ev.Status).Inc()
	s.duration.WithLabelValues(ev.Model).Observe(ev.Duration.Seconds())
	if ev.Status != coremetrics.StatusOK {
		return nil
	}
	s.objective.WithLabelValues(ev.Model).Set(ev.Objective)
	s.size.WithLabelValues(ev.Model, "variables").Set(float64(ev.Variables))
	s.size.WithLabelValues(ev.Model, "constraints").Set(float64(ev.Constraints))
	return nil
}

// RecordCommit sets the committed value gauge of every variable.
func (s *PromSink) RecordCommit(evs []coremetrics.CommitEvent) error {
	for _, ev := range evs {
		s.committed.WithLabelValues(ev.Model, ev.Part, ev.Variable).Set(ev.Value)
	}
	return nil
}
