package opt

import (
	"strconv"
	"strings"
)

// Item is anything that can be added to a problem as a constraint: a
// *Relation, a *Constraint or an *SOS.
type Item interface {
	Variables() []*Variable
	Key() string
	String() string

	isItem()
}

// Constraint wraps a relation with provenance metadata.
type Constraint struct {
	Relation *Relation
	// Desc is a human-readable description.
	Desc string
	// Origin tells where the constraint was generated, e.g. "boiler, balance(3)".
	Origin string
}

// NewConstraint wraps rel.
func NewConstraint(rel *Relation, desc string) *Constraint {
	return &Constraint{Relation: rel, Desc: desc}
}

func (c *Constraint) Variables() []*Variable { return c.Relation.Variables() }

// Key is the key of the wrapped relation, so structurally identical
// constraints collapse in a ConstraintSet.
func (c *Constraint) Key() string { return c.Relation.Key() }

func (c *Constraint) String() string {
	var b strings.Builder
	b.WriteString("<Constraint")
	if c.Origin != "" {
		b.WriteString(" [" + c.Origin + "]")
	}
	if c.Desc != "" {
		b.WriteString(": " + c.Desc)
	}
	b.WriteString("> " + c.Relation.String())
	return b.String()
}

func (*Constraint) isItem() {}

// SOS is a special ordered set. Level 1 allows at most one nonzero variable,
// level 2 at most two adjacent nonzero variables.
type SOS struct {
	level  int
	vars   []*Variable
	Desc   string
	Origin string
}

// NewSOS1 creates an SOS1 constraint over vars.
func NewSOS1(vars []*Variable, desc string) *SOS { return newSOS(1, vars, desc) }

// NewSOS2 creates an SOS2 constraint over vars.
func NewSOS2(vars []*Variable, desc string) *SOS { return newSOS(2, vars, desc) }

func newSOS(level int, vars []*Variable, desc string) *SOS {
	vs := make([]*Variable, len(vars))
	copy(vs, vars)
	return &SOS{level: level, vars: vs, Desc: desc}
}

// Level returns 1 or 2.
func (s *SOS) Level() int { return s.level }

// Variables returns the ordered variables of the set.
func (s *SOS) Variables() []*Variable {
	out := make([]*Variable, len(s.vars))
	copy(out, s.vars)
	return out
}

func (s *SOS) Key() string {
	keys := make([]string, len(s.vars))
	for i, v := range s.vars {
		keys[i] = v.Key()
	}
	return "SOS" + strconv.Itoa(s.level) + "(" + strings.Join(keys, ",") + ")"
}

func (s *SOS) String() string {
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.String()
	}
	return "SOS" + strconv.Itoa(s.level) + "(" + strings.Join(names, ", ") + ")"
}

func (*SOS) isItem() {}

// ConstraintSet is an insertion-ordered set of constraints keyed by
// structure. The zero value is ready to use.
type ConstraintSet struct {
	items []Item
	index map[string]int
}

// NewConstraintSet returns a set holding items.
func NewConstraintSet(items ...Item) *ConstraintSet {
	s := &ConstraintSet{}
	s.Add(items...)
	return s
}

// Add inserts items. Bare relations are wrapped into a Constraint without
// description. An item whose key is already present is ignored.
func (s *ConstraintSet) Add(items ...Item) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	for _, it := range items {
		if r, ok := it.(*Relation); ok {
			it = NewConstraint(r, "")
		}
		k := it.Key()
		if _, ok := s.index[k]; ok {
			continue
		}
		s.index[k] = len(s.items)
		s.items = append(s.items, it)
	}
}

// Union adds every item of other.
func (s *ConstraintSet) Union(other *ConstraintSet) {
	if other == nil {
		return
	}
	s.Add(other.items...)
}

// Contains reports whether an item with the same structure is present.
func (s *ConstraintSet) Contains(item Item) bool {
	_, ok := s.index[item.Key()]
	return ok
}

// Len returns the number of items.
func (s *ConstraintSet) Len() int { return len(s.items) }

// Items returns the items in insertion order.
func (s *ConstraintSet) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Constraints returns the *Constraint items in insertion order.
func (s *ConstraintSet) Constraints() []*Constraint {
	var out []*Constraint
	for _, it := range s.items {
		if c, ok := it.(*Constraint); ok {
			out = append(out, c)
		}
	}
	return out
}
