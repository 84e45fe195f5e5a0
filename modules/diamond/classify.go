package diamond

import (
	"slices"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// Classification is the read-only structural taxonomy of one diamond, used
// for diagnostics and for dedup-store reporting. None of it affects
// propagation correctness except ExternalConnectivity, which the
// conditioning policy already folds into the conditioning set.
type Classification struct {
	ForkStructure     string `json:"fork_structure"`     // single | multiple
	InternalStructure string `json:"internal_structure"` // linear | branching | nested
	PathTopology      string `json:"path_topology"`      // parallel | branching | interleaved
	JoinStructure     string `json:"join_structure"`     // direct | staged

	ExternalConnectivity bool `json:"external_connectivity"`
	Degenerate           bool `json:"degenerate"`

	ForkCount     int `json:"fork_count"`
	SubgraphSize  int `json:"subgraph_size"`
	InternalForks int `json:"internal_forks"`
	InternalJoins int `json:"internal_joins"`
	PathCount     int `json:"path_count"`

	ComplexityScore       float64 `json:"complexity_score"`
	OptimizationPotential float64 `json:"optimization_potential"`
	BottleneckRisk        float64 `json:"bottleneck_risk"`
}

// pathEnumerationCap bounds the simple-path walk; beyond it PathCount
// saturates instead of exploding on dense interiors.
const pathEnumerationCap = 4096

// Classify derives the taxonomy of a materialized diamond. Pure; the only
// failure mode is a malformed (empty) input.
func Classify(adj graph.Adjacency, d *Diamond) (Classification, error) {
	if d == nil || d.Relevant == nil || d.Relevant.Count() == 0 {
		var join graph.NodeID
		if d != nil {
			join = d.Join
		}
		return Classification{}, graph.StructuralInconsistencyError{Join: join, Reason: "classification of empty diamond"}
	}

	inView := make(map[graph.NodeID]int)
	outView := make(map[graph.NodeID][]graph.NodeID)
	for _, e := range d.Edges {
		inView[e.To]++
		outView[e.From] = append(outView[e.From], e.To)
	}

	c := Classification{
		ForkCount:    len(d.Highest),
		SubgraphSize: d.Relevant.Count(),
	}

	isHighest := func(n graph.NodeID) bool { return slices.Contains(d.Highest, n) }

	d.Relevant.Each(func(n graph.NodeID) bool {
		if n == d.Join {
			return true
		}
		if len(outView[n]) > 1 && !isHighest(n) {
			c.InternalForks++
		}
		if inView[n] > 1 {
			c.InternalJoins++
		}
		// An edge leaving the diamond means downstream consumers outside
		// the subgraph depend on its interior state.
		if len(adj.Outgoing(n)) > len(outView[n]) {
			c.ExternalConnectivity = true
		}
		return true
	})

	c.PathCount = countPaths(outView, d)

	if c.ForkCount > 1 {
		c.ForkStructure = "multiple"
	} else {
		c.ForkStructure = "single"
	}

	switch {
	case c.InternalJoins > 0:
		c.InternalStructure = "nested"
	case c.InternalForks > 0:
		c.InternalStructure = "branching"
	default:
		c.InternalStructure = "linear"
	}

	switch {
	case c.InternalJoins > 0 && c.InternalForks > 0:
		c.PathTopology = "interleaved"
	case c.InternalForks > 0:
		c.PathTopology = "branching"
	default:
		c.PathTopology = "parallel"
	}

	if c.InternalJoins > 0 {
		c.JoinStructure = "staged"
	} else {
		c.JoinStructure = "direct"
	}

	c.Degenerate = c.ForkCount == 1 && c.PathCount == 2 &&
		c.InternalForks == 0 && c.InternalJoins == 0

	// Weighted blend of the size drivers of conditioning cost. Diagnostic
	// only.
	c.ComplexityScore = float64(c.SubgraphSize) +
		4*float64(c.InternalForks+len(d.Boundary)) +
		2*float64(c.InternalJoins) +
		float64(c.PathCount)/4

	if c.SubgraphSize > 0 {
		c.OptimizationPotential = float64(c.InternalForks+c.InternalJoins) / float64(c.SubgraphSize)
	}
	c.BottleneckRisk = float64(inView[d.Join]) / float64(max(1, c.PathCount))

	return c, nil
}

// countPaths enumerates simple paths from each highest fork to the join
// inside the view, saturating at pathEnumerationCap.
func countPaths(outView map[graph.NodeID][]graph.NodeID, d *Diamond) int {
	var count int
	var walk func(n graph.NodeID)
	walk = func(n graph.NodeID) {
		if count >= pathEnumerationCap {
			return
		}
		if n == d.Join {
			count++
			return
		}
		for _, succ := range outView[n] {
			walk(succ)
		}
	}
	for _, f := range d.Highest {
		walk(f)
	}
	return count
}
