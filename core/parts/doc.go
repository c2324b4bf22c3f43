// Package parts composes optimization models from a tree of parts.
//
// A Part owns children and index-parametrized constraint functions. Node adds
// production, consumption and accumulation per resource and emits one balance
// constraint per resource; Cluster takes the balance of one resource over for
// its members; FlowNetwork connects nodes with flow variables; Storage is a
// node with a bounded volume.
//
// User models embed one of these types and register their functions:
//
//	type Boiler struct {
//		*parts.Node
//		fuel *opt.VariableCollection[int]
//	}
//
// Components are identified by their base *Part, so an embedding type keeps
// its identity in the tree.
package parts
