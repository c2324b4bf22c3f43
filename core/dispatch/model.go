package dispatch

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/gridopt/core/dispatch/logging"
	"github.com/kilianp07/gridopt/core/events"
	"github.com/kilianp07/gridopt/core/logger"
	"github.com/kilianp07/gridopt/core/metrics"
	"github.com/kilianp07/gridopt/core/monitoring"
	"github.com/kilianp07/gridopt/core/opt"
	"github.com/kilianp07/gridopt/core/parts"
	"github.com/kilianp07/gridopt/internal/eventbus"
)

// Option configures a MyopicDispatchModel.
type Option func(*MyopicDispatchModel)

// WithLogger sets the logger used for advance reports.
func WithLogger(l logger.Logger) Option {
	return func(m *MyopicDispatchModel) {
		if l != nil {
			m.log = l
		}
	}
}

// WithLogStore persists one LogRecord per advance.
func WithLogStore(s logging.LogStore) Option {
	return func(m *MyopicDispatchModel) { m.store = s }
}

// WithEventBus publishes one AdvanceEvent per advance on bus.
func WithEventBus(bus *eventbus.TypedBus[events.AdvanceEvent]) Option {
	return func(m *MyopicDispatchModel) { m.bus = bus }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *MyopicDispatchModel) {
		if now != nil {
			m.now = now
		}
	}
}

// MyopicDispatchModel solves its part tree over a rolling horizon. Each
// advance optimizes Horizon time steps starting at T and commits the state
// variables of the first Step of them.
type MyopicDispatchModel struct {
	*parts.Part
	cfg       Config
	solver    opt.Solver
	t         int
	committed []int
	log       logger.Logger
	store     logging.LogStore
	bus       *eventbus.TypedBus[events.AdvanceEvent]
	now       func() time.Time
}

// NewMyopicDispatchModel creates a driver starting at cfg.T0. It fails with
// parts.ErrInsanity when the horizon is shorter than the step.
func NewMyopicDispatchModel(name string, cfg Config, solver opt.Solver, opts ...Option) (*MyopicDispatchModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		return nil, fmt.Errorf("%w: nil solver", parts.ErrInsanity)
	}
	m := &MyopicDispatchModel{
		Part:   parts.NewPart(name),
		cfg:    cfg,
		solver: solver,
		t:      cfg.T0,
		log:    logger.NopLogger{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With(map[string]any{"model": m.Name()})
	return m, nil
}

// T returns the time cursor.
func (m *MyopicDispatchModel) T() int { return m.t }

// Horizon returns the number of time steps optimized per advance.
func (m *MyopicDispatchModel) Horizon() int { return m.cfg.Horizon }

// Step returns the number of time steps committed per advance.
func (m *MyopicDispatchModel) Step() int { return m.cfg.Step }

// Window returns the time steps the next advance optimizes.
func (m *MyopicDispatchModel) Window() []int { return m.Times(m.t, m.cfg.Horizon) }

// Committed returns every time step committed so far, in order.
func (m *MyopicDispatchModel) Committed() []int {
	return append([]int(nil), m.committed...)
}

// BuildProblem assembles the problem for window: the objective minimizes the
// cost of every part at every time step and the constraints are the own
// constraints of every part at every time step.
func (m *MyopicDispatchModel) BuildProblem(window []int) (*opt.Problem, error) {
	p := opt.NewProblem()
	var costs []opt.Expr
	for _, part := range m.DescendantsAndSelf() {
		for _, tau := range window {
			c, err := part.Cost(tau)
			if err != nil {
				return nil, err
			}
			if !opt.Equal(c, opt.Const(0)) {
				costs = append(costs, c)
			}
			set, err := part.ConstraintsDepth(0, tau)
			if err != nil {
				return nil, err
			}
			if err := p.Add(set); err != nil {
				return nil, err
			}
		}
	}
	p.Objective = opt.Minimize(opt.Sum(costs...))
	return p, nil
}

// Advance solves the current window, commits the first Step time steps and
// moves the cursor. Solver errors are returned unchanged and leave the model
// untouched.
func (m *MyopicDispatchModel) Advance(ctx context.Context) (err error) {
	start := m.now()
	window := m.Window()
	ev := events.AdvanceEvent{
		RunID:  uuid.NewString(),
		Model:  m.Name(),
		T:      m.t,
		Window: window,
		Time:   start,
	}
	defer func() {
		ev.Duration = m.now().Sub(start)
		ev.Err = err
		m.report(ctx, ev)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	problem, err := m.BuildProblem(window)
	if err != nil {
		return err
	}
	ev.Variables = len(problem.VariablesWithoutValue())
	ev.Constraints = problem.Len()

	sol, err := m.solve(ctx, problem)
	if err != nil {
		return err
	}
	ev.Objective = objectiveValue(problem.Objective, sol)

	commit := window[:m.cfg.Step]
	values, err := m.commit(sol, commit)
	if err != nil {
		return err
	}
	ev.Committed = commit
	ev.Values = values
	m.committed = append(m.committed, commit...)
	m.t = m.StepTime(m.t, m.cfg.Step)
	return nil
}

// Run advances n times and stops at the first error.
func (m *MyopicDispatchModel) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := m.Advance(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *MyopicDispatchModel) solve(ctx context.Context, p *opt.Problem) (opt.Solution, error) {
	if m.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.SolveTimeout)
		defer cancel()
	}
	return m.solver.Solve(ctx, p)
}

type pending struct {
	v    *opt.Variable
	part string
	t    int
	x    float64
}

// commit assigns the solution to the state variables of times. Nothing is
// assigned when a state variable is missing from the solution.
func (m *MyopicDispatchModel) commit(sol opt.Solution, times []int) ([]events.CommittedValue, error) {
	seen := map[*opt.Variable]bool{}
	var todo []pending
	for _, part := range m.DescendantsAndSelf() {
		for _, tau := range times {
			vars, err := part.StateVariables(tau)
			if err != nil {
				return nil, err
			}
			for _, v := range vars {
				if v.HasValue() || seen[v] {
					continue
				}
				x, ok := sol[v]
				if !ok {
					return nil, fmt.Errorf("%s at t=%d: %s: %w", part, tau, v, opt.ErrNotInSolution)
				}
				seen[v] = true
				todo = append(todo, pending{v: v, part: part.Name(), t: tau, x: x})
			}
		}
	}
	values := make([]events.CommittedValue, 0, len(todo))
	for _, p := range todo {
		p.v.SetValue(p.x)
		values = append(values, events.CommittedValue{Part: p.part, Variable: p.v.Name(), T: p.t, Value: p.x})
	}
	return values, nil
}

func objectiveValue(obj opt.Objective, sol opt.Solution) float64 {
	res, err := obj.Expr.Evaluate(sol.Replacements(), opt.ConcreteEvaluators)
	if err != nil {
		return math.NaN()
	}
	f, ok := res.(float64)
	if !ok {
		return math.NaN()
	}
	return f
}

func (m *MyopicDispatchModel) report(ctx context.Context, ev events.AdvanceEvent) {
	status := metrics.StatusOf(ev.Err)
	advancesTotal.WithLabelValues(ev.Model, status).Inc()
	advanceDuration.WithLabelValues(ev.Model).Observe(ev.Duration.Seconds())
	problemSize.WithLabelValues(ev.Model, "variables").Set(float64(ev.Variables))
	problemSize.WithLabelValues(ev.Model, "constraints").Set(float64(ev.Constraints))

	if ev.Err != nil {
		m.log.Errorf("advance at t=%d failed: %v", ev.T, ev.Err)
		monitoring.CaptureException(ev.Err, map[string]string{
			"module": "myopic_dispatch",
			"model":  ev.Model,
			"t":      strconv.Itoa(ev.T),
			"status": status,
		})
	} else {
		m.log.Infow("advanced", map[string]any{
			"run_id":      ev.RunID,
			"t":           ev.T,
			"committed":   ev.Committed,
			"objective":   ev.Objective,
			"variables":   ev.Variables,
			"constraints": ev.Constraints,
			"duration_ms": float64(ev.Duration.Microseconds()) / 1000,
		})
	}

	if m.store != nil {
		if err := m.store.Append(ctx, toRecord(ev)); err != nil {
			m.log.Warnf("advance log store: %v", err)
		}
	}
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func toRecord(ev events.AdvanceEvent) logging.LogRecord {
	rec := logging.LogRecord{
		Timestamp:   ev.Time,
		RunID:       ev.RunID,
		Model:       ev.Model,
		T:           ev.T,
		Window:      ev.Window,
		Committed:   ev.Committed,
		Variables:   ev.Variables,
		Constraints: ev.Constraints,
		DurationMS:  float64(ev.Duration.Microseconds()) / 1000,
		Status:      logging.StatusOK,
	}
	if !math.IsNaN(ev.Objective) {
		rec.Objective = ev.Objective
	}
	if ev.Err != nil {
		rec.Status = logging.StatusFailed
		rec.Error = ev.Err.Error()
	}
	if len(ev.Values) > 0 {
		rec.Values = make(map[string]float64, len(ev.Values))
		for _, v := range ev.Values {
			rec.Values[v.Variable] = v.Value
		}
	}
	return rec
}
