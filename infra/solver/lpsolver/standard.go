package lpsolver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/gridopt/core/opt"
)

var (
	errInfeasible = errors.New("lpsolver: infeasible bounds or constraints")
	errUnbounded  = errors.New("lpsolver: objective is unbounded")
)

const zeroTol = 1e-12

type bound struct{ lb, ub float64 }

// varMap expresses a variable as offset + sum(sign[i]*y[cols[i]]) with y >= 0.
type varMap struct {
	offset float64
	cols   []int
	signs  []float64
}

// standardForm is the LP: minimize c*y subject to a*y = b, y >= 0.
type standardForm struct {
	c       []float64
	a       *mat.Dense
	b       []float64
	vars    []varMap
	dropped int
}

type sparseRow struct {
	coef map[int]float64
	rhs  float64
}

// builder accumulates columns and equality rows.
type builder struct {
	ncols int
	rows  []sparseRow
	c     map[int]float64
}

func (b *builder) column() int {
	b.ncols++
	return b.ncols - 1
}

func (b *builder) addRow(r sparseRow) { b.rows = append(b.rows, r) }

// standardize converts the linear problem into standard form for the given
// bounds. vars and bounds share the same order.
func standardize(vars []*opt.Variable, bounds []bound, obj affine, rows []row, feasTol float64) (*standardForm, error) {
	idx := make(map[*opt.Variable]int, len(vars))
	for i, v := range vars {
		idx[v] = i
	}
	b := &builder{c: map[int]float64{}}
	maps := make([]varMap, len(vars))
	for i, bd := range bounds {
		if bd.lb > bd.ub+feasTol {
			return nil, errInfeasible
		}
		switch {
		case bd.ub-bd.lb <= zeroTol:
			maps[i] = varMap{offset: bd.lb}
		case !math.IsInf(bd.lb, -1):
			col := b.column()
			maps[i] = varMap{offset: bd.lb, cols: []int{col}, signs: []float64{1}}
			if !math.IsInf(bd.ub, 1) {
				slack := b.column()
				b.addRow(sparseRow{coef: map[int]float64{col: 1, slack: 1}, rhs: bd.ub - bd.lb})
			}
		case !math.IsInf(bd.ub, 1):
			col := b.column()
			maps[i] = varMap{offset: bd.ub, cols: []int{col}, signs: []float64{-1}}
		default:
			pos, neg := b.column(), b.column()
			maps[i] = varMap{cols: []int{pos, neg}, signs: []float64{1, -1}}
		}
	}

	for v, coef := range obj.coef {
		m := maps[idx[v]]
		for j, col := range m.cols {
			b.c[col] += coef * m.signs[j]
		}
	}

	for _, r := range rows {
		sr := sparseRow{coef: map[int]float64{}, rhs: r.rhs}
		for v, coef := range r.coef {
			m := maps[idx[v]]
			sr.rhs -= coef * m.offset
			for j, col := range m.cols {
				sr.coef[col] += coef * m.signs[j]
			}
		}
		empty := true
		for col, x := range sr.coef {
			if math.Abs(x) <= zeroTol {
				delete(sr.coef, col)
				continue
			}
			empty = false
		}
		if empty {
			ok := sr.rhs >= -feasTol*(1+math.Abs(r.rhs))
			if r.eq {
				ok = math.Abs(sr.rhs) <= feasTol*(1+math.Abs(r.rhs))
			}
			if !ok {
				return nil, errInfeasible
			}
			continue
		}
		if !r.eq {
			sr.coef[b.column()] = 1
		}
		b.addRow(sr)
	}
	return b.compact(maps)
}

// compact drops unused columns and linearly dependent rows.
func (b *builder) compact(maps []varMap) (*standardForm, error) {
	used := make([]bool, b.ncols)
	for _, r := range b.rows {
		for col := range r.coef {
			used[col] = true
		}
	}
	remap := make([]int, b.ncols)
	n := 0
	for col := range used {
		if !used[col] {
			// A free column only moves the objective.
			if b.c[col] < -zeroTol {
				return nil, errUnbounded
			}
			remap[col] = -1
			continue
		}
		remap[col] = n
		n++
	}
	for i := range maps {
		var cols []int
		var signs []float64
		for j, col := range maps[i].cols {
			if remap[col] >= 0 {
				cols = append(cols, remap[col])
				signs = append(signs, maps[i].signs[j])
			}
		}
		maps[i].cols, maps[i].signs = cols, signs
	}
	sf := &standardForm{c: make([]float64, n), vars: maps}
	for col, x := range b.c {
		if remap[col] >= 0 {
			sf.c[remap[col]] = x
		}
	}
	if len(b.rows) == 0 || n == 0 {
		return sf, nil
	}
	full := mat.NewDense(len(b.rows), n, nil)
	rhs := make([]float64, len(b.rows))
	for i, r := range b.rows {
		for col, x := range r.coef {
			full.Set(i, remap[col], x)
		}
		rhs[i] = r.rhs
	}
	keep := independentRows(full)
	sf.dropped = len(b.rows) - len(keep)
	if sf.dropped == 0 {
		sf.a, sf.b = full, rhs
		return sf, nil
	}
	sf.a = mat.NewDense(len(keep), n, nil)
	sf.b = make([]float64, len(keep))
	for i, r := range keep {
		sf.a.SetRow(i, full.RawRowView(r))
		sf.b[i] = rhs[r]
	}
	return sf, nil
}

const rankTol = 1e-10

func rank(a mat.Matrix) int {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDNone) {
		return 0
	}
	return svd.Rank(rankTol)
}

// independentRows returns a maximal set of linearly independent rows of a,
// preferring earlier rows.
func independentRows(a *mat.Dense) []int {
	m, n := a.Dims()
	all := make([]int, m)
	for i := range all {
		all[i] = i
	}
	if m <= n && rank(a) == m {
		return all
	}
	var keep []int
	for i := 0; i < m; i++ {
		cand := append(append([]int(nil), keep...), i)
		sub := mat.NewDense(len(cand), n, nil)
		for j, r := range cand {
			sub.SetRow(j, a.RawRowView(r))
		}
		if rank(sub) == len(cand) {
			keep = cand
		}
		if len(keep) == n {
			break
		}
	}
	return keep
}

// values maps a standard form solution back to the problem variables.
func (sf *standardForm) values(vars []*opt.Variable, y []float64) map[*opt.Variable]float64 {
	out := make(map[*opt.Variable]float64, len(vars))
	for i, v := range vars {
		m := sf.vars[i]
		x := m.offset
		for j, col := range m.cols {
			x += m.signs[j] * y[col]
		}
		out[v] = x
	}
	return out
}
