package graph

import (
	"testing"
)

func testNetwork(edges []Arc, priors map[NodeID]float64) *Network[float64] {
	net := &Network[float64]{
		Edges:     edges,
		Priors:    priors,
		EdgeProbs: make(map[Arc]float64, len(edges)),
	}
	for _, e := range edges {
		net.EdgeProbs[e] = 0.5
	}
	return net
}

func TestBuildIndexRoles(t *testing.T) {
	// s -> f -> {a, b} -> j -> t
	net := testNetwork([]Arc{
		{1, 2},
		{2, 3},
		{2, 4},
		{3, 5},
		{4, 5},
		{5, 6},
	}, map[NodeID]float64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 6: 1})

	idx, err := BuildIndex(net)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	tests := []struct {
		node NodeID
		want Role
	}{
		{1, RoleSource},
		{2, RoleFork},
		{3, RoleRegular},
		{4, RoleRegular},
		{5, RoleJoin},
		{6, RoleSink},
	}
	for _, tt := range tests {
		if got := idx.RoleOf(tt.node); got != tt.want {
			t.Errorf("RoleOf(%d) = %v, want %v", tt.node, got, tt.want)
		}
	}

	if len(idx.ForkNodes) != 1 || idx.ForkNodes[0] != 2 {
		t.Errorf("ForkNodes = %v, want [2]", idx.ForkNodes)
	}
	if len(idx.JoinNodes) != 1 || idx.JoinNodes[0] != 5 {
		t.Errorf("JoinNodes = %v, want [5]", idx.JoinNodes)
	}
	if len(idx.SourceNodes) != 1 || idx.SourceNodes[0] != 1 {
		t.Errorf("SourceNodes = %v, want [1]", idx.SourceNodes)
	}
}

func TestBuildIndexForkJoin(t *testing.T) {
	net := testNetwork([]Arc{
		{1, 3}, {2, 3},
		{3, 4}, {3, 5},
	}, map[NodeID]float64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1})

	idx, err := BuildIndex(net)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if got := idx.RoleOf(3); got != RoleForkJoin {
		t.Errorf("RoleOf(3) = %v, want forkjoin", got)
	}
}

func TestBuildIndexMissingPrior(t *testing.T) {
	net := testNetwork([]Arc{{1, 2}}, map[NodeID]float64{1: 1})

	_, err := BuildIndex(net)
	if err == nil {
		t.Fatal("expected error for missing prior")
	}
	mde, ok := err.(MissingDataError)
	if !ok {
		t.Fatalf("error type = %T, want MissingDataError", err)
	}
	if mde.Node != 2 {
		t.Errorf("MissingDataError.Node = %d, want 2", mde.Node)
	}
}

func TestBuildIndexMissingEdgeProb(t *testing.T) {
	net := &Network[float64]{
		Edges:     []Arc{{1, 2}},
		Priors:    map[NodeID]float64{1: 1, 2: 1},
		EdgeProbs: map[Arc]float64{},
	}
	_, err := BuildIndex(net)
	if err == nil {
		t.Fatal("expected error for missing edge probability")
	}
	mde, ok := err.(MissingDataError)
	if !ok {
		t.Fatalf("error type = %T, want MissingDataError", err)
	}
	if mde.Edge == nil {
		t.Fatal("MissingDataError.Edge is nil")
	}
}

func TestBuildIndexSelfLoop(t *testing.T) {
	net := testNetwork([]Arc{{1, 1}}, map[NodeID]float64{1: 1})
	_, err := BuildIndex(net)
	if err == nil {
		t.Fatal("expected error for self loop")
	}
	if _, ok := err.(CycleError); !ok {
		t.Fatalf("error type = %T, want CycleError", err)
	}
}

func TestSubViewFilters(t *testing.T) {
	net := testNetwork([]Arc{
		{1, 2}, {1, 3}, {2, 4}, {3, 4}, {4, 5},
	}, map[NodeID]float64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1})
	idx, err := BuildIndex(net)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	keep := NewNodeSet(idx.MaxID())
	keep.Add(1)
	keep.Add(2)
	keep.Add(4)
	view := NewSubView(idx, keep)

	if got := view.Nodes(); len(got) != 3 {
		t.Errorf("view.Nodes() = %v, want 3 nodes", got)
	}
	if got := view.Outgoing(1); len(got) != 1 || got[0] != 2 {
		t.Errorf("view.Outgoing(1) = %v, want [2]", got)
	}
	if got := view.Incoming(4); len(got) != 1 || got[0] != 2 {
		t.Errorf("view.Incoming(4) = %v, want [2]", got)
	}
	if got := view.Outgoing(5); got != nil {
		t.Errorf("view.Outgoing(5) = %v, want nil for filtered node", got)
	}
}
