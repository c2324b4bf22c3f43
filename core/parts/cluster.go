package parts

import (
	"fmt"

	"github.com/kilianp07/gridopt/core/opt"
)

// Cluster is a node that takes over the balance of one resource for its
// member nodes. For that resource its production, consumption and
// accumulation are the sum of its own functions and those of its direct
// members, and member flows are part of its balance. Members keep their own
// balance for every other resource.
type Cluster struct {
	*Node

	resource Resource
	cache    map[aggregateKey]ExprFunc
}

type aggregateKey struct {
	a attribute
	r Resource
}

// NewCluster returns an empty cluster for r. An empty name is replaced by
// Cluster<n>.
func NewCluster(name string, r Resource) *Cluster {
	c := &Cluster{
		Node:     newNode("Cluster", name),
		resource: r,
		cache:    map[aggregateKey]ExprFunc{},
	}
	c.Node.agg = c
	return c
}

// Resource returns the clustered resource.
func (c *Cluster) Resource() Resource { return c.resource }

// AddPart adds a member node and makes the cluster responsible for its
// balance of the clustered resource. If the node already belongs to another
// cluster for that resource the add is rolled back and ErrInsanity returned.
func (c *Cluster) AddPart(m Component) error {
	if m == nil || m.Base() == nil || m.Base().Node() == nil {
		return fmt.Errorf("%w: cluster %s only accepts nodes, got %v", ErrInsanity, c, m)
	}
	if err := c.Part.AddPart(m); err != nil {
		return err
	}
	n := m.Base().Node()
	if n.Cluster(c.resource) == c {
		return nil
	}
	if err := n.SetCluster(c); err != nil {
		c.Part.RemovePart(m)
		return err
	}
	return nil
}

// AddParts adds each member in order and stops at the first error.
func (c *Cluster) AddParts(ms ...Component) error {
	for _, m := range ms {
		if err := c.AddPart(m); err != nil {
			return err
		}
	}
	return nil
}

// RemovePart removes a member and clears its cluster membership.
func (c *Cluster) RemovePart(m Component) {
	if m == nil || m.Base() == nil {
		return
	}
	c.Part.RemovePart(m)
	if n := m.Base().Node(); n != nil && n.Cluster(c.resource) == c {
		_ = n.UnsetCluster(c)
	}
}

// Members returns the member nodes in insertion order.
func (c *Cluster) Members() []*Node {
	var out []*Node
	for _, ch := range c.Part.children {
		if ch.node != nil {
			out = append(out, ch.node)
		}
	}
	return out
}

func (c *Cluster) defines(a attribute) bool {
	if _, ok := c.Node.maps[a][c.resource]; ok {
		return true
	}
	for _, m := range c.Members() {
		if _, ok := m.view(a).Get(c.resource); ok {
			return true
		}
	}
	return false
}

func (c *Cluster) aggregate(a attribute, r Resource) (ExprFunc, bool) {
	if r != c.resource || !c.defines(a) {
		return nil, false
	}
	key := aggregateKey{a: a, r: r}
	if f, ok := c.cache[key]; ok {
		return f, true
	}
	f := func(idx ...int) (opt.Expr, error) {
		var terms []opt.Expr
		if own, ok := c.Node.maps[a][r]; ok {
			e, err := own(idx...)
			if err != nil {
				return nil, err
			}
			terms = append(terms, e)
		}
		for _, m := range c.Members() {
			mf, ok := m.view(a).Get(r)
			if !ok {
				continue
			}
			e, err := mf(idx...)
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", m, err)
			}
			terms = append(terms, e)
		}
		return opt.Sum(terms...), nil
	}
	c.cache[key] = f
	return f, true
}

func (c *Cluster) aggregatedResources(a attribute) []Resource {
	if c.defines(a) {
		return []Resource{c.resource}
	}
	return nil
}

func (c *Cluster) flowResources() []Resource {
	in, out := c.memberFlows(c.resource)
	if len(in)+len(out) > 0 {
		return []Resource{c.resource}
	}
	return nil
}

func (c *Cluster) memberFlows(r Resource) (in, out []*Flow) {
	if r != c.resource {
		return nil, nil
	}
	for _, m := range c.Members() {
		mIn, mOut := m.flows(r)
		in = append(in, mIn...)
		out = append(out, mOut...)
	}
	return in, out
}
