package lpsolver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/gridopt/core/logger"
	"github.com/kilianp07/gridopt/core/opt"
)

// Default settings.
const (
	DefaultTolerance     = 1e-10
	DefaultFeasibility   = 1e-7
	DefaultMaxSupportSet = 4096
)

// Option configures a Solver.
type Option func(*Solver)

// WithTolerance sets the reduced cost tolerance passed to the simplex method.
func WithTolerance(tol float64) Option {
	return func(s *Solver) {
		if tol >= 0 {
			s.tol = tol
		}
	}
}

// WithFeasibilityTolerance sets the relative tolerance used to verify solutions.
func WithFeasibilityTolerance(tol float64) Option {
	return func(s *Solver) {
		if tol > 0 {
			s.feasTol = tol
		}
	}
}

// WithMaxSupportSets bounds the number of SOS support combinations enumerated
// per solve.
func WithMaxSupportSets(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxSupports = n
		}
	}
}

// WithLogger sets the logger used for solve diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.log = l
		}
	}
}

// Solver implements opt.Solver on top of the gonum simplex method. Only real
// variables are supported; SOS1 and SOS2 sets are solved by enumerating
// their supports.
type Solver struct {
	tol         float64
	feasTol     float64
	maxSupports int
	log         logger.Logger
}

// New returns a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{
		tol:         DefaultTolerance,
		feasTol:     DefaultFeasibility,
		maxSupports: DefaultMaxSupportSet,
		log:         logger.NopLogger{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// linearProblem is a problem with every expression reduced to affine form.
type linearProblem struct {
	vars   []*opt.Variable
	bounds []bound
	obj    affine
	sign   float64
	rows   []row
	sos    []*opt.SOS
}

// Solve implements opt.Solver.
func (s *Solver) Solve(ctx context.Context, p *opt.Problem) (sol opt.Solution, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol = nil
			err = &opt.SolverError{Status: opt.StatusNumerical, Msg: fmt.Sprintf("simplex panic: %v", r)}
		}
	}()
	lpb, err := s.linearize(p)
	if err != nil {
		return nil, err
	}
	supports, err := s.supports(lpb)
	if err != nil {
		return nil, err
	}
	s.log.Debugw("lp solve", map[string]any{
		"variables":   len(lpb.vars),
		"constraints": len(lpb.rows),
		"sos":         len(lpb.sos),
		"supports":    len(supports),
	})

	var (
		best     map[*opt.Variable]float64
		bestObj  = math.Inf(1)
		lastErr  error
		numerics error
	)
	for _, zero := range supports {
		if err := ctx.Err(); err != nil {
			return nil, &opt.SolverError{Status: opt.StatusCanceled, Err: err}
		}
		x, obj, err := s.solveSupport(lpb, zero)
		switch {
		case err == nil:
			if obj < bestObj {
				best, bestObj = x, obj
			}
		case errors.Is(err, errUnbounded) || errors.Is(err, lp.ErrUnbounded):
			return nil, &opt.SolverError{Status: opt.StatusUnbounded, Err: err}
		case errors.Is(err, errInfeasible) || errors.Is(err, lp.ErrInfeasible):
			lastErr = err
		default:
			numerics = err
		}
	}
	if best == nil {
		if numerics != nil {
			return nil, &opt.SolverError{Status: opt.StatusNumerical, Err: numerics}
		}
		return nil, &opt.SolverError{Status: opt.StatusInfeasible, Err: lastErr}
	}
	sol = make(opt.Solution, len(best))
	for v, x := range best {
		sol[v] = x
	}
	return sol, nil
}

func (s *Solver) linearize(p *opt.Problem) (*linearProblem, error) {
	vars := p.VariablesWithoutValue()
	lpb := &linearProblem{vars: vars, bounds: make([]bound, len(vars)), sign: 1}
	for i, v := range vars {
		if v.Domain() != opt.Real {
			return nil, &opt.SolverError{
				Status: opt.StatusUnsupported,
				Msg:    fmt.Sprintf("variable %s has %s domain", v, v.Domain()),
			}
		}
		lpb.bounds[i] = bound{lb: v.LB(), ub: v.UB()}
	}
	lin := newLinearizer(vars)
	obj, err := lin.expr(p.Objective.Expr)
	if err != nil {
		return nil, unsupported(err)
	}
	if p.Objective.Sense == opt.SenseMaximize {
		lpb.sign = -1
	}
	lpb.obj = obj.scale(lpb.sign)
	for _, it := range p.Constraints() {
		switch c := it.(type) {
		case *opt.Constraint:
			r, err := lin.constraint(c)
			if err != nil {
				return nil, unsupported(err)
			}
			lpb.rows = append(lpb.rows, r)
		case *opt.SOS:
			lpb.sos = append(lpb.sos, c)
		default:
			return nil, &opt.SolverError{Status: opt.StatusUnsupported, Msg: fmt.Sprintf("constraint %s", it)}
		}
	}
	return lpb, nil
}

func unsupported(err error) error {
	return &opt.SolverError{Status: opt.StatusUnsupported, Err: err}
}

// supports enumerates, for every combination of SOS supports, the variables
// forced to zero. A problem without SOS has a single empty combination.
func (s *Solver) supports(lpb *linearProblem) ([][]*opt.Variable, error) {
	combos := [][]*opt.Variable{nil}
	for _, set := range lpb.sos {
		options := sosOptions(set)
		if len(combos)*len(options) > s.maxSupports {
			return nil, &opt.SolverError{
				Status: opt.StatusUnsupported,
				Msg:    fmt.Sprintf("more than %d SOS support combinations", s.maxSupports),
			}
		}
		next := make([][]*opt.Variable, 0, len(combos)*len(options))
		for _, c := range combos {
			for _, o := range options {
				next = append(next, append(append([]*opt.Variable(nil), c...), o...))
			}
		}
		combos = next
	}
	return combos, nil
}

// sosOptions lists, per admissible support of set, the variables outside it.
func sosOptions(set *opt.SOS) [][]*opt.Variable {
	vars := set.Variables()
	width := set.Level()
	if len(vars) <= width {
		return [][]*opt.Variable{nil}
	}
	var out [][]*opt.Variable
	for start := 0; start+width <= len(vars); start++ {
		var zero []*opt.Variable
		for i, v := range vars {
			if i < start || i >= start+width {
				zero = append(zero, v)
			}
		}
		out = append(out, zero)
	}
	return out
}

func (s *Solver) solveSupport(lpb *linearProblem, zero []*opt.Variable) (map[*opt.Variable]float64, float64, error) {
	bounds := append([]bound(nil), lpb.bounds...)
	pos := make(map[*opt.Variable]int, len(lpb.vars))
	for i, v := range lpb.vars {
		pos[v] = i
	}
	for _, v := range zero {
		i, free := pos[v]
		if !free {
			if x, _ := v.Value(); x != 0 {
				return nil, 0, errInfeasible
			}
			continue
		}
		if bounds[i].lb > s.feasTol || bounds[i].ub < -s.feasTol {
			return nil, 0, errInfeasible
		}
		bounds[i] = bound{}
	}

	sf, err := standardize(lpb.vars, bounds, lpb.obj, lpb.rows, s.feasTol)
	if err != nil {
		return nil, 0, err
	}
	y := make([]float64, len(sf.c))
	if sf.a != nil {
		_, y, err = lp.Simplex(sf.c, sf.a, sf.b, s.tol, nil)
		if err != nil {
			return nil, 0, err
		}
	}
	x := sf.values(lpb.vars, y)
	if err := s.verify(lpb, bounds, x); err != nil {
		if sf.dropped > 0 {
			return nil, 0, fmt.Errorf("%w: %v", errInfeasible, err)
		}
		return nil, 0, err
	}
	return x, lpb.obj.eval(x), nil
}

func (s *Solver) verify(lpb *linearProblem, bounds []bound, x map[*opt.Variable]float64) error {
	for i, v := range lpb.vars {
		slack := s.feasTol * (1 + math.Abs(x[v]))
		if x[v] < bounds[i].lb-slack || x[v] > bounds[i].ub+slack {
			return fmt.Errorf("lpsolver: %s = %g violates its bounds", v, x[v])
		}
	}
	for _, r := range lpb.rows {
		if !r.holds(x, s.feasTol) {
			return fmt.Errorf("lpsolver: solution violates %s", r.src)
		}
	}
	return nil
}
