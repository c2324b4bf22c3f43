package parts

import (
	"sync/atomic"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var partIDs atomic.Int64

func nextPartID() int64 { return partIDs.Add(1) }

// ID identifies the part in graphs. It implements graph.Node.
func (p *Part) ID() int64 { return p.id }

// treeGraph is a read-only graph.Graph view of the parent to child relation
// below its roots. Parts are indexed as the walk reaches them.
type treeGraph struct {
	parts map[int64]*Part
}

func newTreeGraph(roots ...*Part) treeGraph {
	g := treeGraph{parts: make(map[int64]*Part, len(roots))}
	for _, r := range roots {
		g.parts[r.id] = r
	}
	return g
}

func (g treeGraph) Node(id int64) graph.Node {
	p, ok := g.parts[id]
	if !ok {
		return nil
	}
	return p
}

func (g treeGraph) Nodes() graph.Nodes {
	roots := make([]*Part, 0, len(g.parts))
	for _, p := range g.parts {
		roots = append(roots, p)
	}
	var nodes []graph.Node
	seen := map[int64]bool{}
	for _, r := range roots {
		for _, p := range r.DescendantsAndSelf() {
			if seen[p.id] {
				continue
			}
			seen[p.id] = true
			g.parts[p.id] = p
			nodes = append(nodes, p)
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g treeGraph) From(id int64) graph.Nodes {
	p, ok := g.parts[id]
	if !ok || len(p.children) == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, len(p.children))
	for i, c := range p.children {
		g.parts[c.id] = c
		nodes[i] = c
	}
	return iterator.NewOrderedNodes(nodes)
}

func (g treeGraph) HasEdgeBetween(xid, yid int64) bool {
	return g.hasEdgeFromTo(xid, yid) || g.hasEdgeFromTo(yid, xid)
}

func (g treeGraph) Edge(uid, vid int64) graph.Edge {
	if !g.hasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.Edge{F: g.parts[uid], T: g.parts[vid]}
}

func (g treeGraph) hasEdgeFromTo(uid, vid int64) bool {
	p, ok := g.parts[uid]
	if !ok {
		return false
	}
	for _, c := range p.children {
		if c.id == vid {
			return true
		}
	}
	return false
}

// reaches reports whether target is from or one of its descendants.
func reaches(from, target *Part) bool {
	return topo.PathExistsIn(newTreeGraph(from), from, target)
}
