package parts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/kilianp07/gridopt/core/opt"
)

// Depth bounds how far Parts and ConstraintsDepth descend into the tree.
type Depth int

// Infinite descends through the whole tree.
const Infinite Depth = math.MaxInt

// Component is implemented by every model component. Types embedding *Part,
// *Node, *Cluster, *Storage or *FlowNetwork are components through the
// promoted Base method, and are addressed in the tree by that base pointer.
type Component interface {
	Base() *Part
}

// ConstraintFunc returns the constraints of a part for an index, usually a
// time step. Items may be *opt.Relation, *opt.Constraint or *opt.SOS.
type ConstraintFunc func(idx ...int) ([]opt.Item, error)

// ExprFunc returns an expression for an index.
type ExprFunc func(idx ...int) (opt.Expr, error)

// StateFunc returns the variables that are fixed when an index is committed.
type StateFunc func(idx ...int) ([]*opt.Variable, error)

type namedFunc struct {
	name string
	f    ConstraintFunc
}

var (
	nameMu       sync.Mutex
	nameCounters = map[string]int{}
)

func defaultName(kind string) string {
	nameMu.Lock()
	defer nameMu.Unlock()
	nameCounters[kind]++
	return fmt.Sprintf("%s%04d", kind, nameCounters[kind])
}

// Part is a node of the model ownership tree. A Part is not safe for
// concurrent use.
type Part struct {
	id       int64
	name     string
	children []*Part
	funcs    []namedFunc
	cost     ExprFunc
	state    StateFunc
	timeUnit int

	node *Node
}

// NewPart returns an empty part. An empty name is replaced by Part<n>.
func NewPart(name string) *Part {
	return newPart("Part", name)
}

func newPart(kind, name string) *Part {
	if name == "" {
		name = defaultName(kind)
	}
	return &Part{id: nextPartID(), name: name, timeUnit: 1}
}

// Base returns p.
func (p *Part) Base() *Part { return p }

// Name returns the part name.
func (p *Part) Name() string { return p.name }

func (p *Part) String() string { return p.name }

// Namespace returns the naming scope for variables owned by the part.
func (p *Part) Namespace() opt.Namespace { return opt.Namespace(p.name) }

// Node returns the node built on p, or nil if p is a plain part.
func (p *Part) Node() *Node { return p.node }

// Children returns the direct children in insertion order.
func (p *Part) Children() []*Part {
	out := make([]*Part, len(p.children))
	copy(out, p.children)
	return out
}

// AddPart adds c as a child. Adding p to itself or to one of its own
// descendants fails with ErrInsanity and leaves the tree unchanged. Adding an
// existing child again is a no-op.
func (p *Part) AddPart(c Component) error {
	if c == nil || c.Base() == nil {
		return fmt.Errorf("%w: cannot add nil part to %s", ErrInsanity, p)
	}
	child := c.Base()
	if child == p || reaches(child, p) {
		return fmt.Errorf("%w: cannot add %s to %s because it would generate a cyclic relationship",
			ErrInsanity, child, p)
	}
	if p.hasChild(child) {
		return nil
	}
	p.children = append(p.children, child)
	return nil
}

// AddParts adds each component in order and stops at the first error.
func (p *Part) AddParts(cs ...Component) error {
	for _, c := range cs {
		if err := p.AddPart(c); err != nil {
			return err
		}
	}
	return nil
}

// RemovePart removes c from the children. Removing a part that is not a
// child is a no-op.
func (p *Part) RemovePart(c Component) {
	if c == nil {
		return
	}
	child := c.Base()
	for i, ch := range p.children {
		if ch == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

func (p *Part) hasChild(c *Part) bool {
	for _, ch := range p.children {
		if ch == c {
			return true
		}
	}
	return false
}

// Parts returns the direct children and, for depth > 0, their parts down to
// depth-1. Each part appears once, in breadth-first order.
func (p *Part) Parts(depth Depth) []*Part {
	if depth < 0 {
		return nil
	}
	seen := map[*Part]bool{}
	var out []*Part
	level := p.children
	for d := Depth(0); len(level) > 0 && d <= depth; d++ {
		var next []*Part
		for _, c := range level {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			next = append(next, c.children...)
		}
		level = next
	}
	return out
}

// Descendants returns every part below p.
func (p *Part) Descendants() []*Part { return p.Parts(Infinite) }

// DescendantsAndSelf returns p followed by its descendants.
func (p *Part) DescendantsAndSelf() []*Part {
	out := []*Part{p}
	for _, d := range p.Descendants() {
		if d != p {
			out = append(out, d)
		}
	}
	return out
}

// Find returns the descendant named name.
func (p *Part) Find(name string) (*Part, error) {
	var match *Part
	for _, d := range p.Descendants() {
		if d.name != name {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("%w: %s has more than one part %q", ErrAmbiguousPart, p, name)
		}
		match = d
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s has no part %q", ErrPartNotFound, p, name)
	}
	return match, nil
}

// AddConstraintFunc registers a constraint function. The name is used in the
// origin of generated constraints.
func (p *Part) AddConstraintFunc(name string, f ConstraintFunc) {
	p.funcs = append(p.funcs, namedFunc{name: name, f: f})
}

// Constraints returns the constraints of p and all its descendants for idx.
func (p *Part) Constraints(idx ...int) (*opt.ConstraintSet, error) {
	return p.ConstraintsDepth(Infinite, idx...)
}

// ConstraintsDepth returns the constraints of p for idx plus those of its
// descendants down to depth. At depth 0 only p's own constraint functions are
// called. The result is recomputed on every call.
func (p *Part) ConstraintsDepth(depth Depth, idx ...int) (*opt.ConstraintSet, error) {
	set, err := p.ownConstraints(idx...)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		return set, nil
	}
	sub := depth - 1
	if depth == Infinite {
		sub = Infinite
	}
	for _, c := range p.Parts(sub) {
		own, err := c.ownConstraints(idx...)
		if err != nil {
			return nil, err
		}
		set.Union(own)
	}
	return set, nil
}

func (p *Part) ownConstraints(idx ...int) (*opt.ConstraintSet, error) {
	set := opt.NewConstraintSet()
	for _, nf := range p.funcs {
		items, err := nf.f(idx...)
		if err != nil {
			return nil, fmt.Errorf("%s: constraint %s%s: %w", p, nf.name, formatIndex(idx), err)
		}
		origin := p.name + ", " + nf.name + formatIndex(idx)
		for _, it := range items {
			prepared, err := prepare(it, origin)
			if err != nil {
				return nil, fmt.Errorf("%s: constraint %s%s: %w", p, nf.name, formatIndex(idx), err)
			}
			set.Add(prepared)
		}
	}
	return set, nil
}

func prepare(it opt.Item, origin string) (opt.Item, error) {
	switch v := it.(type) {
	case *opt.Relation:
		if v == nil {
			return nil, &opt.ConstraintError{Item: it, Reason: "nil relation"}
		}
		return &opt.Constraint{Relation: v, Origin: origin}, nil
	case *opt.Constraint:
		if v == nil || v.Relation == nil {
			return nil, &opt.ConstraintError{Item: it, Reason: "constraint without relation"}
		}
		if v.Origin != "" {
			return v, nil
		}
		c := *v
		c.Origin = origin
		return &c, nil
	case *opt.SOS:
		if v == nil {
			return nil, &opt.ConstraintError{Item: it, Reason: "nil SOS"}
		}
		if v.Origin != "" {
			return v, nil
		}
		s := *v
		s.Origin = origin
		return &s, nil
	default:
		return nil, &opt.ConstraintError{Item: it}
	}
}

func formatIndex(idx []int) string {
	parts := make([]string, len(idx))
	for i, x := range idx {
		parts[i] = strconv.Itoa(x)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// SetCost sets the cost function used by dispatch drivers.
func (p *Part) SetCost(f ExprFunc) { p.cost = f }

// Cost returns the cost of p at idx, or 0 when no cost function is set.
func (p *Part) Cost(idx ...int) (opt.Expr, error) {
	if p.cost == nil {
		return opt.Const(0), nil
	}
	e, err := p.cost(idx...)
	if err != nil {
		return nil, fmt.Errorf("%s: cost%s: %w", p, formatIndex(idx), err)
	}
	if e == nil {
		return opt.Const(0), nil
	}
	return e, nil
}

// SetStateVariables sets the function returning the variables committed by
// dispatch drivers.
func (p *Part) SetStateVariables(f StateFunc) { p.state = f }

// StateVariables returns the state variables of p at idx.
func (p *Part) StateVariables(idx ...int) ([]*opt.Variable, error) {
	if p.state == nil {
		return nil, nil
	}
	vs, err := p.state(idx...)
	if err != nil {
		return nil, fmt.Errorf("%s: state variables%s: %w", p, formatIndex(idx), err)
	}
	return vs, nil
}
