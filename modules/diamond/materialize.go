package diamond

import (
	"slices"

	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
)

// Diamond is one materialized reconvergence subgraph: the nodes lying on
// paths from a group's highest fork(s) to the join, the induced edge list,
// and the conditioning set the belief engine must enumerate to make the
// remaining paths pairwise independent.
//
// The node and edge views are filters over the parent graph's index, not
// copies; nested recursion shares storage with the outer graph.
type Diamond struct {
	Join     graph.NodeID   `json:"join"`
	Relevant *graph.NodeSet `json:"-"`
	Edges    []graph.Arc    `json:"edges"`

	// Conditioning holds the highest fork(s) plus every internal node that
	// independently feeds more than one path to the join: internal forks,
	// and boundary nodes receiving activation from outside the diamond.
	// Enumerating their joint states renders the surviving paths
	// independent. Exposed for auditing; a too-small set produces silently
	// wrong numbers, not an error.
	Conditioning []graph.NodeID `json:"conditioning"`

	Highest           []graph.NodeID `json:"highest"`
	InfluencedParents []graph.NodeID `json:"influenced_parents"`

	// Boundary lists relevant nodes (other than the highest forks) with at
	// least one predecessor outside the diamond. Non-empty boundary means
	// the subgraph leaks external dependency and is treated conservatively.
	Boundary []graph.NodeID `json:"boundary,omitempty"`
}

// Materialize builds the diamond subgraph for one ancestor group at a join.
func Materialize(adj graph.Adjacency, sched *topo.Schedule, j graph.NodeID, group *AncestorGroup) (*Diamond, error) {
	relevant := graph.NewNodeSet(adj.MaxID())
	ancJ := sched.Ancestors[j]
	for _, f := range group.Highest {
		relevant.Add(f)
		sched.Descendants[f].Each(func(n graph.NodeID) bool {
			if ancJ.Has(n) {
				relevant.Add(n)
			}
			return true
		})
	}
	relevant.Add(j)

	if relevant.Count() < 3 {
		return nil, graph.StructuralInconsistencyError{
			Join:   j,
			Reason: "diamond materialized with no interior nodes",
		}
	}

	d := &Diamond{
		Join:              j,
		Relevant:          relevant,
		Highest:           slices.Clone(group.Highest),
		InfluencedParents: slices.Clone(group.InfluencedParents),
	}

	view := graph.NewSubView(adj, relevant)
	for _, n := range view.Nodes() {
		for _, succ := range view.Outgoing(n) {
			d.Edges = append(d.Edges, graph.Arc{From: n, To: succ})
		}
	}
	slices.SortFunc(d.Edges, func(a, b graph.Arc) int {
		if a.From != b.From {
			return int(a.From) - int(b.From)
		}
		return int(a.To) - int(b.To)
	})

	d.Conditioning, d.Boundary = conditioningSet(adj, view, d)
	return d, nil
}

// conditioningSet applies the conservative selection policy: the highest
// fork(s), every internal fork (a node other than the join with more than
// one outgoing edge inside the diamond), and every boundary node fed from
// outside the diamond. This is a superset of the minimal set; enumerating
// it decouples all interior reconvergence, which conditioning on the top
// fork alone does not when the interior has fork structure of its own.
func conditioningSet(adj graph.Adjacency, view *graph.SubView, d *Diamond) (conditioning, boundary []graph.NodeID) {
	cond := graph.NewNodeSet(adj.MaxID())
	for _, f := range d.Highest {
		cond.Add(f)
	}

	isHighest := func(n graph.NodeID) bool {
		return slices.Contains(d.Highest, n)
	}

	d.Relevant.Each(func(n graph.NodeID) bool {
		if n == d.Join || isHighest(n) {
			return true
		}
		if len(view.Outgoing(n)) > 1 {
			cond.Add(n)
		}
		// Fed from outside the diamond: its activation is not a pure
		// function of the highest forks, so it must be enumerated too.
		if len(adj.Incoming(n)) > len(view.Incoming(n)) {
			cond.Add(n)
			boundary = append(boundary, n)
		}
		return true
	})

	slices.Sort(boundary)
	return cond.Members(), boundary
}
