package diamond

import (
	"testing"

	"github.com/beliefdag/beliefdag/modules/graph"
)

func materializeOne(t *testing.T, edges []graph.Arc, join graph.NodeID) (*graph.Index, *Diamond) {
	t.Helper()
	idx, sched := buildFixture(t, edges)
	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	gs := structures[join]
	if gs == nil || len(gs.Groups) != 1 {
		t.Fatalf("expected one group at join %d, got %+v", join, gs)
	}
	d, err := Materialize(idx, sched, join, gs.Groups[0])
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	return idx, d
}

func TestClassifySimpleDiamond(t *testing.T) {
	idx, d := materializeOne(t, simpleDiamond(), 4)

	c, err := Classify(idx, d)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if c.ForkStructure != "single" {
		t.Errorf("ForkStructure = %q, want single", c.ForkStructure)
	}
	if c.InternalStructure != "linear" {
		t.Errorf("InternalStructure = %q, want linear", c.InternalStructure)
	}
	if c.PathTopology != "parallel" {
		t.Errorf("PathTopology = %q, want parallel", c.PathTopology)
	}
	if c.JoinStructure != "direct" {
		t.Errorf("JoinStructure = %q, want direct", c.JoinStructure)
	}
	if c.PathCount != 2 {
		t.Errorf("PathCount = %d, want 2", c.PathCount)
	}
	if !c.Degenerate {
		t.Error("the minimal diamond must classify as degenerate")
	}
	if c.ExternalConnectivity {
		t.Error("ExternalConnectivity = true for a closed diamond")
	}
	if c.SubgraphSize != 4 {
		t.Errorf("SubgraphSize = %d, want 4", c.SubgraphSize)
	}
}

func TestClassifyBranchingInterior(t *testing.T) {
	idx, d := materializeOne(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 2, To: 5},
		{From: 3, To: 6},
		{From: 4, To: 6},
		{From: 5, To: 6},
	}, 6)

	c, err := Classify(idx, d)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if c.InternalForks != 1 {
		t.Errorf("InternalForks = %d, want 1", c.InternalForks)
	}
	if c.InternalStructure != "branching" {
		t.Errorf("InternalStructure = %q, want branching", c.InternalStructure)
	}
	if c.PathTopology != "branching" {
		t.Errorf("PathTopology = %q, want branching", c.PathTopology)
	}
	if c.PathCount != 3 {
		t.Errorf("PathCount = %d, want 3", c.PathCount)
	}
	if c.Degenerate {
		t.Error("branching interior must not classify as degenerate")
	}
}

func TestClassifyNestedInterior(t *testing.T) {
	// An internal join (5) on the way to the outer join (6).
	idx, d := materializeOne(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 5},
		{From: 3, To: 5},
		{From: 1, To: 6},
		{From: 5, To: 6},
	}, 6)

	c, err := Classify(idx, d)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if c.InternalJoins == 0 {
		t.Error("InternalJoins = 0, want at least one")
	}
	if c.InternalStructure != "nested" {
		t.Errorf("InternalStructure = %q, want nested", c.InternalStructure)
	}
	if c.JoinStructure != "staged" {
		t.Errorf("JoinStructure = %q, want staged", c.JoinStructure)
	}
}

func TestClassifyExternalConnectivity(t *testing.T) {
	// Node 2 also feeds 9, which is outside the diamond at join 4.
	idx, d := materializeOne(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 3, To: 4},
		{From: 2, To: 9},
	}, 4)

	c, err := Classify(idx, d)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !c.ExternalConnectivity {
		t.Error("ExternalConnectivity = false, want true with an edge leaving the subgraph")
	}
}

func TestClassifyRejectsEmpty(t *testing.T) {
	idx, _ := buildFixture(t, simpleDiamond())
	if _, err := Classify(idx, &Diamond{}); err == nil {
		t.Fatal("expected error for empty diamond")
	}
}
