// Package diamond finds reconvergent path structures ("diamonds") in a
// probabilistic DAG, classifies them, and deduplicates structurally
// isomorphic instances in a shared content-addressed store.
//
// A diamond exists at a join node whenever two or more of its direct
// parents share ancestry through a common fork: their path probabilities
// are then dependent and must not be combined with the independence
// assumption. Detection groups a join's parents by shared fork ancestry;
// the belief engine later conditions on each group's fork frontier.
package diamond

import (
	"fmt"
	"slices"

	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
)

// AncestorGroup is one diamond at a join: the parents whose paths
// reconverge, the shared backward closure, and the topologically highest
// fork node(s) the reconverging paths originate from.
type AncestorGroup struct {
	Ancestors         *graph.NodeSet `json:"-"`
	Highest           []graph.NodeID `json:"highest"`
	InfluencedParents []graph.NodeID `json:"influenced_parents"`
}

// GroupedStructure is the complete parent decomposition of one join node.
// Every direct parent appears in exactly one group or in
// NonDiamondParents, never both, never omitted.
type GroupedStructure struct {
	Join              graph.NodeID     `json:"join"`
	Groups            []*AncestorGroup `json:"groups"`
	NonDiamondParents []graph.NodeID   `json:"non_diamond_parents"`
}

// detection runs grouping to a closed fixpoint over the complete edge set.
// Ancestor closures are recomputed from the adjacency each pass; a grouping
// is valid only once a further pass leaves every join's structure
// unchanged. The bound exists to surface malformed input (a cycle that
// somehow escaped scheduling) instead of looping forever.
const maxFixpointPasses = 4

// Detect computes the grouped diamond structure for every join node of adj.
func Detect(adj graph.Adjacency, sched *topo.Schedule) (map[graph.NodeID]*GroupedStructure, error) {
	var prev map[graph.NodeID]*GroupedStructure
	var prevSig string

	for pass := 0; pass < maxFixpointPasses; pass++ {
		cur := detectOnce(adj, sched)
		sig := structuresSignature(cur)
		if prev != nil && sig == prevSig {
			return cur, nil
		}
		prev, prevSig = cur, sig

		// Re-derive the closures from scratch before the verification pass;
		// group membership must be stable under a full expansion, not
		// incrementally patched.
		fresh, err := topo.Build(adj)
		if err != nil {
			return nil, err
		}
		sched = fresh
	}

	return nil, graph.StructuralInconsistencyError{
		Reason: fmt.Sprintf("diamond grouping did not converge after %d passes", maxFixpointPasses),
	}
}

func detectOnce(adj graph.Adjacency, sched *topo.Schedule) map[graph.NodeID]*GroupedStructure {
	out := make(map[graph.NodeID]*GroupedStructure)

	for _, j := range adj.Nodes() {
		parents := adj.Incoming(j)
		if len(parents) < 2 {
			continue
		}
		out[j] = groupParents(adj, sched, j, parents)
	}

	return out
}

// groupParents merges a join's parents by shared fork ancestry using
// union-find: two parents belong together iff some fork node is an ancestor
// of (or is) both of them, since both are then inside that fork's
// descendant cone and their activation events are correlated.
func groupParents(adj graph.Adjacency, sched *topo.Schedule, j graph.NodeID, parents []graph.NodeID) *GroupedStructure {
	reach := make([]*graph.NodeSet, len(parents))
	forks := make([]*graph.NodeSet, len(parents))
	for i, p := range parents {
		r := sched.Ancestors[p].Clone()
		r.Add(p)
		reach[i] = r

		f := graph.NewNodeSet(adj.MaxID())
		r.Each(func(n graph.NodeID) bool {
			if len(adj.Outgoing(n)) > 1 {
				f.Add(n)
			}
			return true
		})
		forks[i] = f
	}

	parent := make([]int, len(parents))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		parent[find(a)] = find(b)
	}

	for i := 0; i < len(parents); i++ {
		for k := i + 1; k < len(parents); k++ {
			if forks[i].Intersects(forks[k]) {
				union(i, k)
			}
		}
	}

	members := make(map[int][]int)
	for i := range parents {
		root := find(i)
		members[root] = append(members[root], i)
	}

	gs := &GroupedStructure{Join: j}
	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	slices.Sort(roots)

	for _, root := range roots {
		idxs := members[root]
		if len(idxs) < 2 {
			gs.NonDiamondParents = append(gs.NonDiamondParents, parents[idxs[0]])
			continue
		}

		group := &AncestorGroup{
			Ancestors: graph.NewNodeSet(adj.MaxID()),
		}
		sharedForks := graph.NewNodeSet(adj.MaxID())
		for a := 0; a < len(idxs); a++ {
			group.Ancestors.UnionWith(reach[idxs[a]])
			group.InfluencedParents = append(group.InfluencedParents, parents[idxs[a]])
			for b := a + 1; b < len(idxs); b++ {
				sharedForks.UnionWith(forks[idxs[a]].Intersect(forks[idxs[b]]))
			}
		}
		slices.Sort(group.InfluencedParents)
		group.Highest = highestForks(sharedForks, sched)
		gs.Groups = append(gs.Groups, group)
	}

	slices.Sort(gs.NonDiamondParents)
	return gs
}

// highestForks picks the shared forks that have no other shared fork among
// their own ancestors: the origins the reconverging paths diverge from.
func highestForks(shared *graph.NodeSet, sched *topo.Schedule) []graph.NodeID {
	var out []graph.NodeID
	shared.Each(func(f graph.NodeID) bool {
		dominated := false
		shared.Each(func(other graph.NodeID) bool {
			if other != f && sched.Ancestors[f].Has(other) {
				dominated = true
				return false
			}
			return true
		})
		if !dominated {
			out = append(out, f)
		}
		return true
	})
	slices.Sort(out)
	return out
}

// structuresSignature flattens a detection result deterministically so two
// fixpoint passes can be compared for convergence.
func structuresSignature(m map[graph.NodeID]*GroupedStructure) string {
	joins := make([]graph.NodeID, 0, len(m))
	for j := range m {
		joins = append(joins, j)
	}
	slices.Sort(joins)

	var sig []byte
	for _, j := range joins {
		gs := m[j]
		sig = fmt.Appendf(sig, "j%d:", j)
		for _, g := range gs.Groups {
			sig = fmt.Appendf(sig, "g%v>%v;", g.Highest, g.InfluencedParents)
		}
		sig = fmt.Appendf(sig, "n%v|", gs.NonDiamondParents)
	}
	return string(sig)
}
