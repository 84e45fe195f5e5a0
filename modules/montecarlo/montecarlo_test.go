package montecarlo

import (
	"math"
	"testing"

	"github.com/beliefdag/beliefdag/modules/graph"
)

func buildNet(t *testing.T, edges []graph.Arc, priors map[graph.NodeID]float64, edgeProbs map[graph.Arc]float64) (*graph.Network[float64], *graph.Index) {
	t.Helper()
	net := &graph.Network[float64]{Edges: edges, Priors: priors, EdgeProbs: edgeProbs}
	idx, err := graph.BuildIndex(net)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	return net, idx
}

func TestEstimateChain(t *testing.T) {
	net, idx := buildNet(t,
		[]graph.Arc{{From: 1, To: 2}, {From: 2, To: 3}},
		map[graph.NodeID]float64{1: 1, 2: 1, 3: 1},
		map[graph.Arc]float64{
			{From: 1, To: 2}: 0.8,
			{From: 2, To: 3}: 0.5,
		},
	)

	est := Estimate(net, idx, 200000, 1)

	want := map[graph.NodeID]float64{1: 1, 2: 0.8, 3: 0.4}
	for n, w := range want {
		if math.Abs(est[n]-w) > 0.01 {
			t.Errorf("estimate(%d) = %v, want %v ± 0.01", n, est[n], w)
		}
	}
}

func TestEstimateDiamond(t *testing.T) {
	// belief(4) = 2p - p^2 = 0.75 at p = 0.5.
	net, idx := buildNet(t,
		[]graph.Arc{
			{From: 1, To: 2}, {From: 1, To: 3},
			{From: 2, To: 4}, {From: 3, To: 4},
		},
		map[graph.NodeID]float64{1: 1, 2: 1, 3: 1, 4: 1},
		map[graph.Arc]float64{
			{From: 1, To: 2}: 1,
			{From: 1, To: 3}: 1,
			{From: 2, To: 4}: 0.5,
			{From: 3, To: 4}: 0.5,
		},
	)

	est := Estimate(net, idx, 200000, 7)
	if math.Abs(est[4]-0.75) > 0.01 {
		t.Errorf("estimate(4) = %v, want 0.75 ± 0.01", est[4])
	}
}

func TestEstimateDeterministicForSeed(t *testing.T) {
	net, idx := buildNet(t,
		[]graph.Arc{{From: 1, To: 2}},
		map[graph.NodeID]float64{1: 0.9, 2: 0.8},
		map[graph.Arc]float64{{From: 1, To: 2}: 0.7},
	)

	a := Estimate(net, idx, 50000, 99)
	b := Estimate(net, idx, 50000, 99)
	for n, v := range a {
		if b[n] != v {
			t.Errorf("estimate(%d) differs across runs with the same seed: %v vs %v", n, v, b[n])
		}
	}
}
