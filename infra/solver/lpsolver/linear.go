package lpsolver

import (
	"errors"
	"fmt"

	"github.com/kilianp07/gridopt/core/opt"
)

// errNonlinear is returned when a product of two variable terms is found.
var errNonlinear = errors.New("lpsolver: expression is not linear")

// affine is sum(coef[v]*v) + k.
type affine struct {
	coef map[*opt.Variable]float64
	k    float64
}

func constant(k float64) affine { return affine{k: k} }

func single(v *opt.Variable) affine {
	return affine{coef: map[*opt.Variable]float64{v: 1}}
}

// plus returns a + s*b.
func (a affine) plus(b affine, s float64) affine {
	out := affine{coef: make(map[*opt.Variable]float64, len(a.coef)+len(b.coef)), k: a.k + s*b.k}
	for v, c := range a.coef {
		out.coef[v] = c
	}
	for v, c := range b.coef {
		out.coef[v] += s * c
	}
	return out
}

func (a affine) scale(s float64) affine {
	out := affine{coef: make(map[*opt.Variable]float64, len(a.coef)), k: s * a.k}
	for v, c := range a.coef {
		out.coef[v] = s * c
	}
	return out
}

func (a affine) isConstant() bool {
	for _, c := range a.coef {
		if c != 0 {
			return false
		}
	}
	return true
}

func (a affine) eval(x map[*opt.Variable]float64) float64 {
	sum := a.k
	for v, c := range a.coef {
		sum += c * x[v]
	}
	return sum
}

// row is coef*x <= rhs, or coef*x == rhs when eq is set.
type row struct {
	coef map[*opt.Variable]float64
	rhs  float64
	eq   bool
	src  opt.Item
}

func (r row) holds(x map[*opt.Variable]float64, tol float64) bool {
	lhs := 0.0
	for v, c := range r.coef {
		lhs += c * x[v]
	}
	slack := tol * (1 + abs(r.rhs))
	if r.eq {
		return abs(lhs-r.rhs) <= slack
	}
	return lhs <= r.rhs+slack
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func toAffine(x any) (affine, error) {
	switch v := x.(type) {
	case float64:
		return constant(v), nil
	case affine:
		return v, nil
	default:
		return affine{}, fmt.Errorf("lpsolver: unexpected operand %v (%T)", x, x)
	}
}

func affineArgs(args []any) ([]affine, error) {
	out := make([]affine, len(args))
	for i, a := range args {
		v, err := toAffine(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func relation(eq bool) opt.Evaluator {
	return func(args ...any) (any, error) {
		as, err := affineArgs(args)
		if err != nil {
			return nil, err
		}
		if len(as) != 2 {
			return nil, fmt.Errorf("lpsolver: relation with %d operands", len(as))
		}
		d := as[0].plus(as[1], -1)
		return row{coef: d.coef, rhs: -d.k, eq: eq}, nil
	}
}

// linearEvaluators evaluate expressions whose free variables are replaced by
// affine values into affine values, and relations into rows.
var linearEvaluators = opt.Evaluators{
	opt.KindAdd: func(args ...any) (any, error) {
		as, err := affineArgs(args)
		if err != nil {
			return nil, err
		}
		return as[0].plus(as[1], 1), nil
	},
	opt.KindSub: func(args ...any) (any, error) {
		as, err := affineArgs(args)
		if err != nil {
			return nil, err
		}
		return as[0].plus(as[1], -1), nil
	},
	opt.KindSum: func(args ...any) (any, error) {
		as, err := affineArgs(args)
		if err != nil {
			return nil, err
		}
		sum := constant(0)
		for _, a := range as {
			sum = sum.plus(a, 1)
		}
		return sum, nil
	},
	opt.KindMul: func(args ...any) (any, error) {
		as, err := affineArgs(args)
		if err != nil {
			return nil, err
		}
		switch {
		case as[0].isConstant():
			return as[1].scale(as[0].k), nil
		case as[1].isConstant():
			return as[0].scale(as[1].k), nil
		default:
			return nil, errNonlinear
		}
	},
	opt.KindLess:      relation(false),
	opt.KindLessEqual: relation(false),
	opt.KindEq:        relation(true),
}

// linearizer maps the free variables of a problem to affine values.
type linearizer struct {
	repl opt.Replacements
}

func newLinearizer(vars []*opt.Variable) *linearizer {
	repl := make(opt.Replacements, len(vars))
	for _, v := range vars {
		repl.Set(v, single(v))
	}
	return &linearizer{repl: repl}
}

func (l *linearizer) expr(e opt.Expr) (affine, error) {
	res, err := e.Evaluate(l.repl, linearEvaluators)
	if err != nil {
		return affine{}, fmt.Errorf("%s: %w", e, err)
	}
	return toAffine(res)
}

func (l *linearizer) constraint(c *opt.Constraint) (row, error) {
	res, err := c.Relation.Evaluate(l.repl, linearEvaluators)
	if err != nil {
		return row{}, fmt.Errorf("%s: %w", c, err)
	}
	r, ok := res.(row)
	if !ok {
		return row{}, fmt.Errorf("lpsolver: %s did not evaluate to a relation", c)
	}
	r.src = c
	return r, nil
}
