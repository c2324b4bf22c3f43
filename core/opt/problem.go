package opt

import "context"

// Sense is the optimization direction.
type Sense int

const (
	SenseMinimize Sense = iota
	SenseMaximize
)

func (s Sense) String() string {
	if s == SenseMaximize {
		return "maximize"
	}
	return "minimize"
}

// Objective is an expression to minimize or maximize.
type Objective struct {
	Sense Sense
	Expr  Expr
}

// Minimize returns the objective min e.
func Minimize(e Expr) Objective { return Objective{Sense: SenseMinimize, Expr: e} }

// Maximize returns the objective max e.
func Maximize(e Expr) Objective { return Objective{Sense: SenseMaximize, Expr: e} }

// Variables returns the variables of the objective expression.
func (o Objective) Variables() []*Variable {
	if o.Expr == nil {
		return nil
	}
	return o.Expr.Variables()
}

func (o Objective) String() string {
	if o.Expr == nil {
		return o.Sense.String() + " 0"
	}
	return o.Sense.String() + " " + o.Expr.String()
}

// Problem is an objective plus a set of constraints.
type Problem struct {
	Objective   Objective
	constraints ConstraintSet
}

// NewProblem returns an empty minimization problem.
func NewProblem() *Problem {
	return &Problem{Objective: Minimize(Const(0))}
}

// Add adds constraints. It accepts *Relation (wrapped as an ad hoc
// constraint), *Constraint, *SOS, slices of those and *ConstraintSet. If any
// item is invalid, nothing is added and a *ConstraintError is returned.
func (p *Problem) Add(items ...any) error {
	var batch []Item
	for _, it := range items {
		var err error
		batch, err = flattenItems(batch, it)
		if err != nil {
			return err
		}
	}
	p.constraints.Add(batch...)
	return nil
}

func flattenItems(dst []Item, item any) ([]Item, error) {
	var err error
	switch v := item.(type) {
	case *Relation:
		if v == nil {
			return dst, &ConstraintError{Item: item, Reason: "nil relation"}
		}
		return append(dst, NewConstraint(v, "Ad hoc constraint")), nil
	case *Constraint:
		if v == nil || v.Relation == nil {
			return dst, &ConstraintError{Item: item, Reason: "constraint without relation"}
		}
		return append(dst, v), nil
	case *SOS:
		if v == nil {
			return dst, &ConstraintError{Item: item, Reason: "nil SOS"}
		}
		return append(dst, v), nil
	case *ConstraintSet:
		if v == nil {
			return dst, nil
		}
		return append(dst, v.items...), nil
	case []Item:
		for _, x := range v {
			if dst, err = flattenItems(dst, x); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case []*Relation:
		for _, x := range v {
			if dst, err = flattenItems(dst, x); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case []*Constraint:
		for _, x := range v {
			if dst, err = flattenItems(dst, x); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case []*SOS:
		for _, x := range v {
			if dst, err = flattenItems(dst, x); err != nil {
				return dst, err
			}
		}
		return dst, nil
	case []any:
		for _, x := range v {
			if dst, err = flattenItems(dst, x); err != nil {
				return dst, err
			}
		}
		return dst, nil
	default:
		return dst, &ConstraintError{Item: item}
	}
}

// Constraints returns the constraints in insertion order.
func (p *Problem) Constraints() []Item { return p.constraints.Items() }

// Len returns the number of constraints.
func (p *Problem) Len() int { return p.constraints.Len() }

// VariablesWithoutValue returns the variables of the objective and of every
// constraint that have no assigned value. These are the only variables a
// solver may create.
func (p *Problem) VariablesWithoutValue() []*Variable {
	seen := make(map[*Variable]struct{})
	var out []*Variable
	collect := func(vs []*Variable) {
		for _, v := range vs {
			if v.HasValue() {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	collect(p.Objective.Variables())
	for _, it := range p.constraints.items {
		collect(it.Variables())
	}
	return out
}

// Solver solves a problem and returns a value for every variable without
// value. Failures are reported as *SolverError.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (Solution, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, p *Problem) (Solution, error)

// Solve calls f.
func (f SolverFunc) Solve(ctx context.Context, p *Problem) (Solution, error) { return f(ctx, p) }
