package graph

import (
	"slices"
)

// Adjacency is the read-only view the scheduler and the diamond detector
// walk. The full Index implements it, and SubView implements it as a filter
// over an existing Index, so diamond recursion shares storage with the
// parent graph instead of copying subgraphs.
type Adjacency interface {
	Nodes() []NodeID
	Outgoing(NodeID) []NodeID
	Incoming(NodeID) []NodeID
	MaxID() NodeID
}

// Index holds the adjacency indices and derived node roles for one network.
// Immutable once built.
type Index struct {
	outgoing map[NodeID][]NodeID
	incoming map[NodeID][]NodeID
	nodes    []NodeID // all nodes, ascending

	SourceNodes []NodeID
	SinkNodes   []NodeID
	ForkNodes   []NodeID
	JoinNodes   []NodeID

	maxID NodeID
}

// BuildIndex validates the network against its prior and edge probability
// maps and derives adjacency and roles. It is a pure function; acyclicity is
// not assumed here (the scheduler detects cycles), but self-loops are
// rejected immediately since no DAG can contain one.
func BuildIndex[T any](net *Network[T]) (*Index, error) {
	idx := &Index{
		outgoing: make(map[NodeID][]NodeID),
		incoming: make(map[NodeID][]NodeID),
	}

	seen := make(map[NodeID]struct{})
	note := func(n NodeID) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			idx.nodes = append(idx.nodes, n)
			if n > idx.maxID {
				idx.maxID = n
			}
		}
	}

	for n := range net.Priors {
		note(n)
	}

	for _, e := range net.Edges {
		if e.From == e.To {
			return nil, CycleError{Node: e.From}
		}
		if _, ok := net.Priors[e.From]; !ok {
			return nil, MissingDataError{Node: e.From, What: "prior"}
		}
		if _, ok := net.Priors[e.To]; !ok {
			return nil, MissingDataError{Node: e.To, What: "prior"}
		}
		if _, ok := net.EdgeProbs[e]; !ok {
			e := e
			return nil, MissingDataError{Edge: &e, What: "edge probability"}
		}
		note(e.From)
		note(e.To)
		idx.outgoing[e.From] = append(idx.outgoing[e.From], e.To)
		idx.incoming[e.To] = append(idx.incoming[e.To], e.From)
	}

	slices.Sort(idx.nodes)
	for _, n := range idx.nodes {
		slices.Sort(idx.outgoing[n])
		slices.Sort(idx.incoming[n])

		out := len(idx.outgoing[n])
		in := len(idx.incoming[n])
		if in == 0 {
			idx.SourceNodes = append(idx.SourceNodes, n)
		}
		if out == 0 {
			idx.SinkNodes = append(idx.SinkNodes, n)
		}
		if out > 1 {
			idx.ForkNodes = append(idx.ForkNodes, n)
		}
		if in > 1 {
			idx.JoinNodes = append(idx.JoinNodes, n)
		}
	}

	return idx, nil
}

func (idx *Index) Nodes() []NodeID            { return idx.nodes }
func (idx *Index) Outgoing(n NodeID) []NodeID { return idx.outgoing[n] }
func (idx *Index) Incoming(n NodeID) []NodeID { return idx.incoming[n] }
func (idx *Index) MaxID() NodeID              { return idx.maxID }

func (idx *Index) IsFork(n NodeID) bool { return len(idx.outgoing[n]) > 1 }
func (idx *Index) IsJoin(n NodeID) bool { return len(idx.incoming[n]) > 1 }

// RoleOf derives a node's role from its degrees.
func (idx *Index) RoleOf(n NodeID) Role {
	in := len(idx.incoming[n])
	out := len(idx.outgoing[n])
	switch {
	case in > 1 && out > 1:
		return RoleForkJoin
	case in > 1:
		return RoleJoin
	case out > 1:
		return RoleFork
	case in == 0:
		return RoleSource
	case out == 0:
		return RoleSink
	}
	return RoleRegular
}

// SubView is an Adjacency restricted to a node set. Lookups filter the
// parent index lazily; nothing is copied up front.
type SubView struct {
	parent Adjacency
	filter *NodeSet
	nodes  []NodeID
}

// NewSubView builds a filtered adjacency over parent containing only the
// nodes in keep.
func NewSubView(parent Adjacency, keep *NodeSet) *SubView {
	v := &SubView{parent: parent, filter: keep}
	for _, n := range parent.Nodes() {
		if keep.Has(n) {
			v.nodes = append(v.nodes, n)
		}
	}
	return v
}

func (v *SubView) Nodes() []NodeID { return v.nodes }
func (v *SubView) MaxID() NodeID   { return v.parent.MaxID() }

func (v *SubView) Outgoing(n NodeID) []NodeID {
	if !v.filter.Has(n) {
		return nil
	}
	return v.filteredNeighbors(v.parent.Outgoing(n))
}

func (v *SubView) Incoming(n NodeID) []NodeID {
	if !v.filter.Has(n) {
		return nil
	}
	return v.filteredNeighbors(v.parent.Incoming(n))
}

func (v *SubView) Contains(n NodeID) bool { return v.filter.Has(n) }

func (v *SubView) filteredNeighbors(all []NodeID) []NodeID {
	var out []NodeID
	for _, n := range all {
		if v.filter.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
