package parts

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/gridopt/core/opt"
)

// Edge is a directed connection of a FlowNetwork.
type Edge struct {
	From, To *Node
}

func (e Edge) String() string { return fmt.Sprintf("%s --> %s", e.From, e.To) }

// flowEdge is the graph edge carrying the flow variables of an Edge.
type flowEdge struct {
	from, to *Node
	flow     *Flow
	seq      int
}

func (e flowEdge) From() graph.Node { return e.from }
func (e flowEdge) To() graph.Node   { return e.to }
func (e flowEdge) ReversedEdge() graph.Edge {
	e.from, e.to = e.to, e.from
	return e
}

// FlowNetwork connects nodes with directed, non-negative flows of one
// resource. It is the only writer of node inflows and outflows.
type FlowNetwork struct {
	*Part

	resource Resource
	graph    *simple.DirectedGraph
	seq      int
}

// NewFlowNetwork returns an empty network of r. An empty name is replaced by
// FlowNetwork<n>.
func NewFlowNetwork(name string, r Resource) *FlowNetwork {
	fn := &FlowNetwork{
		Part:     newPart("FlowNetwork", name),
		resource: r,
		graph:    simple.NewDirectedGraph(),
	}
	fn.SetStateVariables(fn.stateVariables)
	return fn
}

// Resource returns the resource carried by the network.
func (fn *FlowNetwork) Resource() Resource { return fn.resource }

func asNode(c Component) (*Node, error) {
	if c == nil || c.Base() == nil || c.Base().Node() == nil {
		return nil, fmt.Errorf("%w: flow networks connect nodes, got %v", ErrInsanity, c)
	}
	return c.Base().Node(), nil
}

// Connect adds an edge from a to b, adding both nodes as parts if needed.
// With bidirectional the reverse edge is added too. Connecting an existing
// edge again is a no-op.
func (fn *FlowNetwork) Connect(a, b Component, bidirectional bool) error {
	na, err := asNode(a)
	if err != nil {
		return err
	}
	nb, err := asNode(b)
	if err != nil {
		return err
	}
	if na == nb {
		return fmt.Errorf("%w: cannot connect %s to itself", ErrInsanity, na)
	}
	if !fn.graph.HasEdgeFromTo(na.ID(), nb.ID()) {
		if err := fn.addNodes(na, nb); err != nil {
			return err
		}
		flow := opt.NewVariableCollectionIn[opt.Tuple](fn.Namespace(),
			fmt.Sprintf("flow (%s --> %s)", na, nb), opt.WithLowerBound(0))
		fn.seq++
		fn.graph.SetEdge(flowEdge{from: na, to: nb, flow: flow, seq: fn.seq})
		na.addFlow(na.outflows, fn.resource, flow)
		nb.addFlow(nb.inflows, fn.resource, flow)
	}
	if bidirectional {
		return fn.Connect(b, a, false)
	}
	return nil
}

func (fn *FlowNetwork) addNodes(ns ...*Node) error {
	var added []*Node
	for _, n := range ns {
		if fn.hasChild(n.Part) {
			continue
		}
		if err := fn.Part.AddPart(n); err != nil {
			for _, x := range added {
				fn.Part.RemovePart(x)
			}
			return err
		}
		added = append(added, n)
	}
	return nil
}

// Disconnect removes the edge from a to b and its flows from both nodes.
func (fn *FlowNetwork) Disconnect(a, b Component) {
	na, errA := asNode(a)
	nb, errB := asNode(b)
	if errA != nil || errB != nil {
		return
	}
	e, ok := fn.edge(na, nb)
	if !ok {
		return
	}
	na.removeFlow(na.outflows, fn.resource, e.flow)
	nb.removeFlow(nb.inflows, fn.resource, e.flow)
	fn.graph.RemoveEdge(na.ID(), nb.ID())
}

func (fn *FlowNetwork) edge(a, b *Node) (flowEdge, bool) {
	e, ok := fn.graph.Edge(a.ID(), b.ID()).(flowEdge)
	return e, ok
}

// flowEdges returns the edges in connection order.
func (fn *FlowNetwork) flowEdges() []flowEdge {
	it := fn.graph.Edges()
	out := make([]flowEdge, 0, it.Len())
	for it.Next() {
		out = append(out, it.Edge().(flowEdge))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// RemovePart removes every edge touching c and then c itself.
func (fn *FlowNetwork) RemovePart(c Component) {
	if n, err := asNode(c); err == nil {
		for _, e := range fn.flowEdges() {
			if e.from == n || e.to == n {
				fn.Disconnect(e.from, e.to)
			}
		}
		fn.graph.RemoveNode(n.ID())
	}
	fn.Part.RemovePart(c)
}

// Edges returns the edges in connection order.
func (fn *FlowNetwork) Edges() []Edge {
	fes := fn.flowEdges()
	out := make([]Edge, len(fes))
	for i, e := range fes {
		out[i] = Edge{From: e.from, To: e.to}
	}
	return out
}

// Nodes returns the connected nodes in insertion order.
func (fn *FlowNetwork) Nodes() []*Node {
	var out []*Node
	for _, ch := range fn.Part.children {
		if ch.node != nil {
			out = append(out, ch.node)
		}
	}
	return out
}

// Flow returns the flow variables of the edge from a to b.
func (fn *FlowNetwork) Flow(a, b Component) (*Flow, bool) {
	na, errA := asNode(a)
	nb, errB := asNode(b)
	if errA != nil || errB != nil {
		return nil, false
	}
	e, ok := fn.edge(na, nb)
	return e.flow, ok
}

func (fn *FlowNetwork) stateVariables(idx ...int) ([]*opt.Variable, error) {
	key := opt.TupleOf(idx...)
	fes := fn.flowEdges()
	out := make([]*opt.Variable, 0, len(fes))
	for _, e := range fes {
		out = append(out, e.flow.At(key))
	}
	return out, nil
}
