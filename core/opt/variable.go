package opt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// Domain is the value domain of a decision variable.
type Domain int

const (
	Real Domain = iota
	Integer
	Binary
)

// String returns the domain name.
func (d Domain) String() string {
	switch d {
	case Integer:
		return "integer"
	case Binary:
		return "binary"
	default:
		return "real"
	}
}

var (
	variableSeq   atomic.Uint64
	collectionSeq atomic.Uint64
)

// Variable is a leaf symbol of the expression algebra. Identity is the
// pointer: two variables with the same name are distinct.
type Variable struct {
	id     uint64
	name   string
	lb, ub float64
	domain Domain
	value  float64
	valued bool
}

type varParams struct {
	lb, ub float64
	domain Domain
}

// VarOption configures a Variable.
type VarOption func(*varParams)

// WithLowerBound sets the lower bound. The default is -Inf.
func WithLowerBound(lb float64) VarOption { return func(p *varParams) { p.lb = lb } }

// WithUpperBound sets the upper bound. The default is +Inf.
func WithUpperBound(ub float64) VarOption { return func(p *varParams) { p.ub = ub } }

// WithBounds sets both bounds.
func WithBounds(lb, ub float64) VarOption {
	return func(p *varParams) { p.lb, p.ub = lb, ub }
}

// WithDomain sets the variable domain.
func WithDomain(d Domain) VarOption { return func(p *varParams) { p.domain = d } }

func buildParams(opts []VarOption) varParams {
	p := varParams{lb: math.Inf(-1), ub: math.Inf(1), domain: Real}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// NewVariable creates a variable. An empty name is replaced by x<id>.
func NewVariable(name string, opts ...VarOption) *Variable {
	p := buildParams(opts)
	id := variableSeq.Add(1)
	if name == "" {
		name = "x" + strconv.FormatUint(id, 10)
	}
	return &Variable{id: id, name: name, lb: p.lb, ub: p.ub, domain: p.domain}
}

// ID returns the process-unique identifier of the variable.
func (v *Variable) ID() uint64 { return v.id }

// Name returns the display name.
func (v *Variable) Name() string { return v.name }

// LB returns the lower bound.
func (v *Variable) LB() float64 { return v.lb }

// UB returns the upper bound.
func (v *Variable) UB() float64 { return v.ub }

// Domain returns the value domain.
func (v *Variable) Domain() Domain { return v.domain }

// SetBounds replaces both bounds.
func (v *Variable) SetBounds(lb, ub float64) { v.lb, v.ub = lb, ub }

// SetValue assigns a value, fixing the variable in later problems.
func (v *Variable) SetValue(x float64) {
	v.value = x
	v.valued = true
}

// ClearValue returns the variable to the unassigned state.
func (v *Variable) ClearValue() {
	v.value = 0
	v.valued = false
}

// HasValue reports whether a value is assigned.
func (v *Variable) HasValue() bool { return v.valued }

// TakeValue assigns the value found for v in sol.
func (v *Variable) TakeValue(sol Solution) error {
	x, ok := sol[v]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInSolution, v.name)
	}
	v.SetValue(x)
	return nil
}

func (v *Variable) Evaluate(replace Replacements, _ Evaluators) (any, error) {
	if v.valued {
		return v.value, nil
	}
	if r, ok := replace.lookup(v); ok {
		return r, nil
	}
	return v, nil
}

func (v *Variable) Value() (float64, error) {
	if !v.valued {
		return 0, fmt.Errorf("%w: %s", ErrNoValue, v.name)
	}
	return v.value, nil
}

func (v *Variable) Leaves() []Expr         { return []Expr{v} }
func (v *Variable) Variables() []*Variable { return []*Variable{v} }
func (v *Variable) Key() string            { return "v#" + strconv.FormatUint(v.id, 10) }
func (v *Variable) String() string         { return v.name }
func (*Variable) isExpr()                  {}

// Solution maps decision variables to the values found by a solver.
type Solution map[*Variable]float64

// Replacements returns the solution as evaluation replacements.
func (s Solution) Replacements() Replacements {
	repl := make(Replacements, len(s))
	for v, x := range s {
		repl.Set(v, x)
	}
	return repl
}

// VariableCollection lazily creates one variable per index. Variables share
// the bounds and domain of the collection and are named name(index).
type VariableCollection[K comparable] struct {
	name  string
	opts  []VarOption
	vars  map[K]*Variable
	order []K
}

// NewVariableCollection creates an empty collection. An empty name is
// replaced by X<n>.
func NewVariableCollection[K comparable](name string, opts ...VarOption) *VariableCollection[K] {
	if name == "" {
		name = "X" + strconv.FormatUint(collectionSeq.Add(1), 10)
	}
	return &VariableCollection[K]{
		name: name,
		opts: opts,
		vars: make(map[K]*Variable),
	}
}

// NewVariableCollectionIn creates a collection named inside ns.
func NewVariableCollectionIn[K comparable](ns Namespace, name string, opts ...VarOption) *VariableCollection[K] {
	if name == "" {
		name = "X" + strconv.FormatUint(collectionSeq.Add(1), 10)
	}
	return NewVariableCollection[K](ns.Name(name), opts...)
}

// Name returns the collection name.
func (c *VariableCollection[K]) Name() string { return c.name }

// At returns the variable for index, creating it on first access.
func (c *VariableCollection[K]) At(index K) *Variable {
	if v, ok := c.vars[index]; ok {
		return v
	}
	v := NewVariable(fmt.Sprintf("%s(%v)", c.name, index), c.opts...)
	c.vars[index] = v
	c.order = append(c.order, index)
	return v
}

// Len returns the number of variables created so far.
func (c *VariableCollection[K]) Len() int { return len(c.order) }

// Indices returns the indices created so far in creation order.
func (c *VariableCollection[K]) Indices() []K {
	out := make([]K, len(c.order))
	copy(out, c.order)
	return out
}

// Variables returns the variables created so far in creation order.
func (c *VariableCollection[K]) Variables() []*Variable {
	out := make([]*Variable, len(c.order))
	for i, k := range c.order {
		out[i] = c.vars[k]
	}
	return out
}

func (c *VariableCollection[K]) String() string { return c.name }

// Tuple is a comparable key built from an integer index tuple.
type Tuple string

// TupleOf returns the key of idx. TupleOf() is the empty tuple.
func TupleOf(idx ...int) Tuple {
	parts := make([]string, len(idx))
	for i, x := range idx {
		parts[i] = strconv.Itoa(x)
	}
	return Tuple(strings.Join(parts, ","))
}

// Ints decodes the tuple.
func (t Tuple) Ints() ([]int, error) {
	if t == "" {
		return nil, nil
	}
	parts := strings.Split(string(t), ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		x, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("decode tuple %q: %w", string(t), err)
		}
		out[i] = x
	}
	return out, nil
}

// Namespace is a naming scope for variables, e.g. "plant.boiler".
type Namespace string

// Name qualifies s with the namespace.
func (ns Namespace) Name(s string) string {
	if ns == "" {
		return s
	}
	return string(ns) + "." + s
}

// Sub returns a nested namespace.
func (ns Namespace) Sub(name string) Namespace { return Namespace(ns.Name(name)) }

// Variable creates a variable named inside the namespace.
func (ns Namespace) Variable(name string, opts ...VarOption) *Variable {
	v := NewVariable(name, opts...)
	v.name = ns.Name(v.name)
	return v
}
