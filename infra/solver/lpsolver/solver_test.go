package lpsolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gridopt/core/opt"
)

const delta = 1e-7

func solve(t *testing.T, p *opt.Problem) opt.Solution {
	t.Helper()
	sol, err := New().Solve(context.Background(), p)
	require.NoError(t, err)
	return sol
}

func TestSolveMaximize(t *testing.T) {
	x := opt.NewVariableCollection[int]("x", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Maximize(opt.Add(x.At(1), x.At(2)))
	require.NoError(t, p.Add(
		opt.LessEqual(opt.Add(opt.Scale(8, x.At(1)), opt.Scale(4, x.At(2))), opt.Const(11)),
		opt.LessEqual(opt.Add(opt.Scale(2, x.At(1)), opt.Scale(4, x.At(2))), opt.Const(5)),
	))

	sol := solve(t, p)
	assert.InDelta(t, 1.0, sol[x.At(1)], delta)
	assert.InDelta(t, 0.75, sol[x.At(2)], delta)
}

func TestSolveFreeVariable(t *testing.T) {
	x := opt.NewVariable("x")
	y := opt.NewVariable("y", opt.WithUpperBound(4))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(opt.Sub(x, y))
	require.NoError(t, p.Add(opt.Eq(x, opt.Const(-3))))

	sol := solve(t, p)
	assert.InDelta(t, -3.0, sol[x], delta)
	assert.InDelta(t, 4.0, sol[y], delta)
}

func TestSolveValuedVariablesAreConstants(t *testing.T) {
	x := opt.NewVariable("x")
	x.SetValue(2)
	y := opt.NewVariable("y", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(y)
	require.NoError(t, p.Add(opt.GreaterEqual(y, opt.Scale(1.5, x))))

	sol := solve(t, p)
	assert.InDelta(t, 3.0, sol[y], delta)
	_, ok := sol[x]
	assert.False(t, ok)
}

func TestSolveDependentEqualities(t *testing.T) {
	x := opt.NewVariable("x", opt.WithLowerBound(0))
	y := opt.NewVariable("y", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(x)
	require.NoError(t, p.Add(
		opt.Eq(opt.Add(x, y), opt.Const(2)),
		opt.Eq(opt.Add(opt.Scale(2, x), opt.Scale(2, y)), opt.Const(4)),
	))

	sol := solve(t, p)
	assert.InDelta(t, 0.0, sol[x], delta)
	assert.InDelta(t, 2.0, sol[y], delta)
}

func TestSolveInconsistentDependentEqualities(t *testing.T) {
	x := opt.NewVariable("x", opt.WithLowerBound(0))
	y := opt.NewVariable("y", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(x)
	require.NoError(t, p.Add(
		opt.Eq(opt.Add(x, y), opt.Const(2)),
		opt.Eq(opt.Add(opt.Scale(2, x), opt.Scale(2, y)), opt.Const(5)),
	))

	_, err := New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusInfeasible), "got %v", err)
}

func TestSolveInfeasible(t *testing.T) {
	x := opt.NewVariable("x", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(x)
	require.NoError(t, p.Add(opt.LessEqual(x, opt.Const(-1))))

	_, err := New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusInfeasible), "got %v", err)

	z := opt.NewVariable("z", opt.WithBounds(2, 1))
	p = opt.NewProblem()
	p.Objective = opt.Minimize(z)
	_, err = New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusInfeasible), "got %v", err)
}

func TestSolveTrivialConstraint(t *testing.T) {
	x := opt.NewVariable("x")
	x.SetValue(1)
	p := opt.NewProblem()
	require.NoError(t, p.Add(opt.LessEqual(x, opt.Const(0))))
	_, err := New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusInfeasible), "got %v", err)
}

func TestSolveUnbounded(t *testing.T) {
	x := opt.NewVariable("x", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Maximize(x)

	_, err := New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusUnbounded), "got %v", err)
}

func TestSolveUnsupported(t *testing.T) {
	b := opt.NewVariable("b", opt.WithDomain(opt.Binary))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(b)
	_, err := New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusUnsupported), "got %v", err)

	x := opt.NewVariable("x", opt.WithLowerBound(0))
	y := opt.NewVariable("y", opt.WithLowerBound(0))
	p = opt.NewProblem()
	p.Objective = opt.Minimize(opt.Mul(x, y))
	_, err = New().Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusUnsupported), "got %v", err)
	assert.ErrorIs(t, err, errNonlinear)
}

func TestSolveCanceled(t *testing.T) {
	x := opt.NewVariable("x", opt.WithLowerBound(0))
	p := opt.NewProblem()
	p.Objective = opt.Minimize(x)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Solve(ctx, p)
	assert.True(t, opt.IsStatus(err, opt.StatusCanceled), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolvePiecewiseSOS2(t *testing.T) {
	x, y, cons, err := opt.PiecewiseAffine([]opt.Point{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: 2, Y: 3}}, "w")
	require.NoError(t, err)
	p := opt.NewProblem()
	p.Objective = opt.Minimize(y)
	require.NoError(t, p.Add(cons))
	require.NoError(t, p.Add(opt.Eq(x, opt.Const(1.5))))

	sol := solve(t, p)
	got, err := y.Evaluate(sol.Replacements(), opt.ConcreteEvaluators)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got, delta, "adjacent breakpoints only")
}

func TestSolveSOS1(t *testing.T) {
	a := opt.NewVariable("a", opt.WithBounds(0, 10))
	b := opt.NewVariable("b", opt.WithBounds(0, 10))
	p := opt.NewProblem()
	p.Objective = opt.Maximize(opt.Add(a, opt.Scale(2, b)))
	require.NoError(t, p.Add(opt.NewSOS1([]*opt.Variable{a, b}, "one of")))

	sol := solve(t, p)
	assert.InDelta(t, 0.0, sol[a], delta)
	assert.InDelta(t, 10.0, sol[b], delta)

	_, err := New(WithMaxSupportSets(1)).Solve(context.Background(), p)
	assert.True(t, opt.IsStatus(err, opt.StatusUnsupported), "got %v", err)
}
