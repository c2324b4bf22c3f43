// Package lpsolver implements opt.Solver with the simplex method of
// gonum.org/v1/gonum/optimize/convex/lp.
//
// Problems are linearized through the opt evaluator mechanism, converted to
// standard form (bounded variables are shifted, free variables split, slack
// columns added for inequalities) and reduced to full row rank with an SVD
// before the simplex call. Every solution is checked against the original
// constraints. Strict inequalities are treated as non-strict.
package lpsolver
