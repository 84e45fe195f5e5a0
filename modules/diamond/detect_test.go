package diamond

import (
	"slices"
	"testing"

	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
)

func buildFixture(t *testing.T, edges []graph.Arc) (*graph.Index, *topo.Schedule) {
	t.Helper()
	net := &graph.Network[float64]{
		Edges:     edges,
		Priors:    make(map[graph.NodeID]float64),
		EdgeProbs: make(map[graph.Arc]float64),
	}
	for _, e := range edges {
		net.Priors[e.From] = 1
		net.Priors[e.To] = 1
		net.EdgeProbs[e] = 1
	}
	idx, err := graph.BuildIndex(net)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	sched, err := topo.Build(idx)
	if err != nil {
		t.Fatalf("topo.Build: %v", err)
	}
	return idx, sched
}

// 1 -> {2, 3} -> 4: the minimal reconvergence.
func simpleDiamond() []graph.Arc {
	return []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 3, To: 4},
	}
}

func TestDetectSimpleDiamond(t *testing.T) {
	idx, sched := buildFixture(t, simpleDiamond())

	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	gs := structures[4]
	if gs == nil {
		t.Fatal("no structure at join 4")
	}
	if len(gs.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(gs.Groups))
	}
	if len(gs.NonDiamondParents) != 0 {
		t.Errorf("NonDiamondParents = %v, want none", gs.NonDiamondParents)
	}

	g := gs.Groups[0]
	if !slices.Equal(g.Highest, []graph.NodeID{1}) {
		t.Errorf("Highest = %v, want [1]", g.Highest)
	}
	if !slices.Equal(g.InfluencedParents, []graph.NodeID{2, 3}) {
		t.Errorf("InfluencedParents = %v, want [2 3]", g.InfluencedParents)
	}
}

func TestDetectIndependentParents(t *testing.T) {
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 1, To: 3},
		{From: 2, To: 3},
	})

	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	gs := structures[3]
	if gs == nil {
		t.Fatal("no structure at join 3")
	}
	if len(gs.Groups) != 0 {
		t.Errorf("groups = %d, want 0 for independent parents", len(gs.Groups))
	}
	if !slices.Equal(gs.NonDiamondParents, []graph.NodeID{1, 2}) {
		t.Errorf("NonDiamondParents = %v, want [1 2]", gs.NonDiamondParents)
	}
}

func TestDetectMixedParents(t *testing.T) {
	// Fork 1 feeds parents 2 and 3; source 4 feeds the join independently.
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 5},
		{From: 3, To: 5},
		{From: 4, To: 5},
	})

	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	gs := structures[5]
	if len(gs.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(gs.Groups))
	}
	if !slices.Equal(gs.Groups[0].InfluencedParents, []graph.NodeID{2, 3}) {
		t.Errorf("InfluencedParents = %v, want [2 3]", gs.Groups[0].InfluencedParents)
	}
	if !slices.Equal(gs.NonDiamondParents, []graph.NodeID{4}) {
		t.Errorf("NonDiamondParents = %v, want [4]", gs.NonDiamondParents)
	}
}

// Every direct parent of every join must land in exactly one group or in
// NonDiamondParents.
func TestDetectParentCoverage(t *testing.T) {
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 6},
		{From: 3, To: 6},
		{From: 4, To: 6},
		{From: 5, To: 6},
		{From: 4, To: 7},
		{From: 6, To: 8},
		{From: 7, To: 8},
	})

	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	for j, gs := range structures {
		seen := make(map[graph.NodeID]int)
		for _, g := range gs.Groups {
			for _, p := range g.InfluencedParents {
				seen[p]++
			}
		}
		for _, p := range gs.NonDiamondParents {
			seen[p]++
		}
		for _, p := range idx.Incoming(j) {
			if seen[p] != 1 {
				t.Errorf("join %d: parent %d covered %d times, want exactly once", j, p, seen[p])
			}
		}
		if len(seen) != len(idx.Incoming(j)) {
			t.Errorf("join %d: %d parents covered, join has %d", j, len(seen), len(idx.Incoming(j)))
		}
	}
}

func TestDetectSharedForkJoinsGroups(t *testing.T) {
	// Join 8's parents 6 and 7 share fork 4 through different routes; the
	// diamond at 6 must not hide the correlation at 8.
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 4, To: 6},
		{From: 4, To: 5},
		{From: 5, To: 7},
		{From: 6, To: 8},
		{From: 7, To: 8},
	})

	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	gs := structures[8]
	if len(gs.Groups) != 1 {
		t.Fatalf("groups at 8 = %d, want 1", len(gs.Groups))
	}
	if !slices.Equal(gs.Groups[0].Highest, []graph.NodeID{4}) {
		t.Errorf("Highest = %v, want [4]", gs.Groups[0].Highest)
	}
}

func TestMaterializeSimpleDiamond(t *testing.T) {
	idx, sched := buildFixture(t, simpleDiamond())
	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	d, err := Materialize(idx, sched, 4, structures[4].Groups[0])
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if got := d.Relevant.Members(); !slices.Equal(got, []graph.NodeID{1, 2, 3, 4}) {
		t.Errorf("Relevant = %v, want [1 2 3 4]", got)
	}
	if len(d.Edges) != 4 {
		t.Errorf("edges = %d, want 4", len(d.Edges))
	}
	if !slices.Equal(d.Conditioning, []graph.NodeID{1}) {
		t.Errorf("Conditioning = %v, want just the top fork", d.Conditioning)
	}
	if len(d.Boundary) != 0 {
		t.Errorf("Boundary = %v, want none", d.Boundary)
	}
}

func TestMaterializeInternalFork(t *testing.T) {
	// Fork 1 -> {2, 3}; 2 forks again into {4, 5}; all of 3, 4, 5 reach
	// join 6. Node 2 must join the conditioning set.
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 2, To: 5},
		{From: 3, To: 6},
		{From: 4, To: 6},
		{From: 5, To: 6},
	})
	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	gs := structures[6]
	if len(gs.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(gs.Groups))
	}
	d, err := Materialize(idx, sched, 6, gs.Groups[0])
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !slices.Equal(d.Conditioning, []graph.NodeID{1, 2}) {
		t.Errorf("Conditioning = %v, want [1 2]", d.Conditioning)
	}
}

func TestMaterializeBoundaryNode(t *testing.T) {
	// Node 3 is inside the diamond but also fed by 7, which is outside it.
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 3, To: 4},
		{From: 7, To: 3},
	})
	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	d, err := Materialize(idx, sched, 4, structures[4].Groups[0])
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !slices.Equal(d.Boundary, []graph.NodeID{3}) {
		t.Errorf("Boundary = %v, want [3]", d.Boundary)
	}
	if !slices.Contains(d.Conditioning, 3) {
		t.Errorf("Conditioning = %v, must include boundary node 3", d.Conditioning)
	}
}
