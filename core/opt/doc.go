// Package opt is the symbolic layer used to state linear and mixed-integer
// optimization problems.
//
// Expressions are immutable trees built from Const, *Variable and *Operation
// values:
//
//	x := opt.NewVariable("x", opt.WithLowerBound(0))
//	e := opt.Add(opt.Scale(2, x), opt.Const(3))
//
// Building an expression never touches a solver. Evaluate walks the tree with
// optional substitutions and per-kind evaluators, and Value evaluates it to a
// number, failing with ErrNoValue while a variable is unassigned.
//
// Relations (Less, LessEqual, Eq and their mirrors) are a distinct type that
// can only be added to a Problem, wrapped in a Constraint, or checked with
// Holds. A Problem gathers an Objective and a ConstraintSet and is handed to
// a Solver implementation.
package opt
