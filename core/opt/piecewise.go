package opt

import (
	"errors"
	"sort"
)

// Point is a breakpoint of a piecewise affine function.
type Point struct {
	X, Y float64
}

// PiecewiseAffine models y = f(x) where f interpolates points. It returns the
// expressions x and y, built from a weight per breakpoint, and the constraints
// tying the weights together. Points are sorted by X.
func PiecewiseAffine(points []Point, name string) (x, y Expr, constraints []Item, err error) {
	if len(points) == 0 {
		return nil, nil, nil, errors.New("piecewise affine: no points")
	}
	pts := make([]Point, len(points))
	copy(pts, points)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	weights := NewVariableCollection[float64](name, WithBounds(0, 1))
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	vars := make([]Expr, len(pts))
	ws := make([]*Variable, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
		ws[i] = weights.At(p.X)
		vars[i] = ws[i]
	}
	return Dot(xs, vars), Dot(ys, vars), PiecewiseAffineConstraints(ws, false), nil
}

// PiecewiseAffineConstraints returns the SOS2 set over weights and the
// constraint that weights sum to one. With includeLB the weights are also
// constrained to be non-negative.
func PiecewiseAffineConstraints(weights []*Variable, includeLB bool) []Item {
	terms := make([]Expr, len(weights))
	for i, w := range weights {
		terms[i] = w
	}
	out := []Item{
		NewSOS2(weights, "Piecewise affine weights"),
		NewConstraint(Eq(Sum(terms...), Const(1)), "Piecewise affine sum"),
	}
	if includeLB {
		for _, w := range weights {
			out = append(out, NewConstraint(GreaterEqual(w, Const(0)), "Piecewise affine weight"))
		}
	}
	return out
}
