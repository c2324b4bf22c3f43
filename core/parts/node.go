package parts

import (
	"fmt"
	"sort"

	"github.com/kilianp07/gridopt/core/opt"
)

// Resource is a commodity balanced by nodes, e.g. "heat" or "power".
type Resource string

// Flow is the family of non-negative flow variables of one network edge,
// indexed by opt.TupleOf(idx...).
type Flow = opt.VariableCollection[opt.Tuple]

// ResourceFuncs is a read-only view of a resource map.
type ResourceFuncs interface {
	Get(r Resource) (ExprFunc, bool)
	Resources() []Resource
}

// ResourceMap maps resources to expression functions.
type ResourceMap map[Resource]ExprFunc

// Get returns the function for r.
func (m ResourceMap) Get(r Resource) (ExprFunc, bool) {
	f, ok := m[r]
	return f, ok
}

// Resources returns the keys in sorted order.
func (m ResourceMap) Resources() []Resource {
	out := make([]Resource, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sortResources(out)
	return out
}

type attribute int

const (
	attrProduction attribute = iota
	attrConsumption
	attrAccumulation
)

func (a attribute) String() string {
	switch a {
	case attrProduction:
		return "production"
	case attrConsumption:
		return "consumption"
	default:
		return "accumulation"
	}
}

// aggregator lets a node expose functions and flows it does not own.
type aggregator interface {
	aggregate(a attribute, r Resource) (ExprFunc, bool)
	aggregatedResources(a attribute) []Resource
	flowResources() []Resource
	memberFlows(r Resource) (in, out []*Flow)
}

// Node is a part with production, consumption and accumulation maps per
// resource. For every resource it knows about, a Node emits the balance
// constraint
//
//	inflow + production == outflow + consumption + accumulation
//
// unless it belongs to a Cluster for that resource.
type Node struct {
	*Part

	maps     [3]ResourceMap
	inflows  map[Resource][]*Flow
	outflows map[Resource][]*Flow
	clusters map[Resource]*Cluster
	agg      aggregator
}

// NewNode returns a node without resources. An empty name is replaced by
// Node<n>.
func NewNode(name string) *Node {
	return newNode("Node", name)
}

func newNode(kind, name string) *Node {
	n := &Node{
		Part:     newPart(kind, name),
		maps:     [3]ResourceMap{{}, {}, {}},
		inflows:  map[Resource][]*Flow{},
		outflows: map[Resource][]*Flow{},
		clusters: map[Resource]*Cluster{},
	}
	n.Part.node = n
	n.AddConstraintFunc("balance", n.balanceConstraints)
	return n
}

// SetProduction sets the production of r. A nil f removes it.
func (n *Node) SetProduction(r Resource, f ExprFunc) { n.set(attrProduction, r, f) }

// SetConsumption sets the consumption of r. A nil f removes it.
func (n *Node) SetConsumption(r Resource, f ExprFunc) { n.set(attrConsumption, r, f) }

// SetAccumulation sets the accumulation of r. A nil f removes it.
func (n *Node) SetAccumulation(r Resource, f ExprFunc) { n.set(attrAccumulation, r, f) }

func (n *Node) set(a attribute, r Resource, f ExprFunc) {
	if f == nil {
		delete(n.maps[a], r)
		return
	}
	n.maps[a][r] = f
}

// Production returns the production view of the node.
func (n *Node) Production() ResourceFuncs { return nodeView{n: n, a: attrProduction} }

// Consumption returns the consumption view of the node.
func (n *Node) Consumption() ResourceFuncs { return nodeView{n: n, a: attrConsumption} }

// Accumulation returns the accumulation view of the node.
func (n *Node) Accumulation() ResourceFuncs { return nodeView{n: n, a: attrAccumulation} }

func (n *Node) view(a attribute) ResourceFuncs { return nodeView{n: n, a: a} }

type nodeView struct {
	n *Node
	a attribute
}

func (v nodeView) Get(r Resource) (ExprFunc, bool) {
	if v.n.agg != nil {
		if f, ok := v.n.agg.aggregate(v.a, r); ok {
			return f, true
		}
	}
	return v.n.maps[v.a].Get(r)
}

func (v nodeView) Resources() []Resource {
	rs := v.n.maps[v.a].Resources()
	if v.n.agg != nil {
		rs = mergeResources(rs, v.n.agg.aggregatedResources(v.a))
	}
	return rs
}

// Inflows returns the flows entering the node for r.
func (n *Node) Inflows(r Resource) []*Flow { return append([]*Flow(nil), n.inflows[r]...) }

// Outflows returns the flows leaving the node for r.
func (n *Node) Outflows(r Resource) []*Flow { return append([]*Flow(nil), n.outflows[r]...) }

func (n *Node) addFlow(m map[Resource][]*Flow, r Resource, f *Flow) {
	for _, x := range m[r] {
		if x == f {
			return
		}
	}
	m[r] = append(m[r], f)
}

func (n *Node) removeFlow(m map[Resource][]*Flow, r Resource, f *Flow) {
	fs := m[r]
	for i, x := range fs {
		if x == f {
			m[r] = append(fs[:i], fs[i+1:]...)
			break
		}
	}
	if len(m[r]) == 0 {
		delete(m, r)
	}
}

func (n *Node) flows(r Resource) (in, out []*Flow) {
	in = append(in, n.inflows[r]...)
	out = append(out, n.outflows[r]...)
	if n.agg != nil {
		ain, aout := n.agg.memberFlows(r)
		in = append(in, ain...)
		out = append(out, aout...)
	}
	return in, out
}

// Cluster returns the cluster responsible for the balance of r, or nil.
func (n *Node) Cluster(r Resource) *Cluster { return n.clusters[r] }

// SetCluster makes c responsible for the balance of c.Resource() and adds
// the node to c if needed. It fails with ErrInsanity if a cluster is already
// set for that resource.
func (n *Node) SetCluster(c *Cluster) error {
	r := c.Resource()
	if cur, ok := n.clusters[r]; ok {
		if cur == c {
			return fmt.Errorf("%w: %s is already in cluster %s", ErrInsanity, n, c)
		}
		return fmt.Errorf("%w: %s is already in cluster %s for resource %s", ErrInsanity, n, cur, r)
	}
	n.clusters[r] = c
	if !c.hasChild(n.Part) {
		if err := c.AddPart(n); err != nil {
			delete(n.clusters, r)
			return err
		}
	}
	return nil
}

// UnsetCluster clears the membership set by SetCluster and removes the node
// from c if needed.
func (n *Node) UnsetCluster(c *Cluster) error {
	r := c.Resource()
	if n.clusters[r] != c {
		return fmt.Errorf("%w: cannot unset cluster %s of %s because it is not set", ErrInsanity, c, n)
	}
	delete(n.clusters, r)
	if c.hasChild(n.Part) {
		c.RemovePart(n)
	}
	return nil
}

// Resources returns every resource the node produces, consumes, accumulates
// or exchanges through flows.
func (n *Node) Resources() []Resource {
	rs := mergeResources(n.Production().Resources(), n.Consumption().Resources())
	rs = mergeResources(rs, n.Accumulation().Resources())
	var flowing []Resource
	for r := range n.inflows {
		flowing = append(flowing, r)
	}
	for r := range n.outflows {
		flowing = append(flowing, r)
	}
	if n.agg != nil {
		flowing = append(flowing, n.agg.flowResources()...)
	}
	return mergeResources(rs, flowing)
}

// BalanceConstraint returns the balance constraint of r at idx.
func (n *Node) BalanceConstraint(r Resource, idx ...int) (*opt.Constraint, error) {
	in, out := n.flows(r)
	key := opt.TupleOf(idx...)
	var lhs, rhs []opt.Expr
	for _, f := range in {
		lhs = append(lhs, f.At(key))
	}
	for _, f := range out {
		rhs = append(rhs, f.At(key))
	}
	terms := []struct {
		a    attribute
		side *[]opt.Expr
	}{
		{attrProduction, &lhs},
		{attrConsumption, &rhs},
		{attrAccumulation, &rhs},
	}
	for _, t := range terms {
		f, ok := n.view(t.a).Get(r)
		if !ok {
			continue
		}
		e, err := f(idx...)
		if err != nil {
			return nil, fmt.Errorf("%s: %s of %s%s: %w", n, t.a, r, formatIndex(idx), err)
		}
		*t.side = append(*t.side, e)
	}
	return &opt.Constraint{
		Relation: opt.Eq(opt.Sum(lhs...), opt.Sum(rhs...)),
		Desc:     fmt.Sprintf("Balance constraint (resource=%s)", r),
	}, nil
}

func (n *Node) balanceConstraints(idx ...int) ([]opt.Item, error) {
	var out []opt.Item
	for _, r := range n.Resources() {
		if _, clustered := n.clusters[r]; clustered {
			continue
		}
		c, err := n.BalanceConstraint(r, idx...)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func mergeResources(a, b []Resource) []Resource {
	seen := make(map[Resource]bool, len(a)+len(b))
	out := make([]Resource, 0, len(a)+len(b))
	for _, r := range append(append([]Resource(nil), a...), b...) {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sortResources(out)
	return out
}

func sortResources(rs []Resource) {
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
}
