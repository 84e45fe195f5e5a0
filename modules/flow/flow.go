// Package flow contains the propagation peers that reuse the topological
// traversal skeleton with a different combination objective: capacity
// analysis (widest bottleneck) and critical-path analysis (longest
// duration). Max/min and max/+ are insensitive to shared ancestry, so
// neither peer needs the diamond machinery.
package flow

import (
	"math"

	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
)

// capacityStrategy: a node can carry the best bottleneck over any single
// incoming route; an edge caps what flows across it.
type capacityStrategy struct {
	supply map[graph.NodeID]float64
	caps   map[graph.Arc]float64
}

func (s capacityStrategy) Source(n graph.NodeID) float64 {
	return s.supply[n]
}

func (s capacityStrategy) EdgeValue(from, to graph.NodeID) float64 {
	if c, ok := s.caps[graph.Arc{From: from, To: to}]; ok {
		return c
	}
	return math.Inf(1)
}

func (s capacityStrategy) Combine(n graph.NodeID, parents []topo.ParentValue[float64]) float64 {
	best := 0.0
	for _, p := range parents {
		if v := math.Min(p.Val, p.Edge); v > best {
			best = v
		}
	}
	return best
}

// Capacity computes, per node, the widest single-route bottleneck
// deliverable from the sources.
func Capacity(adj graph.Adjacency, sched *topo.Schedule, supply map[graph.NodeID]float64, caps map[graph.Arc]float64) map[graph.NodeID]float64 {
	return topo.Walk[float64](adj, sched, capacityStrategy{supply: supply, caps: caps})
}

// cpmStrategy: a node finishes after its slowest predecessor path plus its
// own duration; an edge contributes its lag.
type cpmStrategy struct {
	durations map[graph.NodeID]float64
	lags      map[graph.Arc]float64
}

func (s cpmStrategy) Source(n graph.NodeID) float64 {
	return s.durations[n]
}

func (s cpmStrategy) EdgeValue(from, to graph.NodeID) float64 {
	return s.lags[graph.Arc{From: from, To: to}]
}

func (s cpmStrategy) Combine(n graph.NodeID, parents []topo.ParentValue[float64]) float64 {
	worst := 0.0
	for _, p := range parents {
		if v := p.Val + p.Edge; v > worst {
			worst = v
		}
	}
	return worst + s.durations[n]
}

// CriticalPath computes per-node earliest completion times: the classic CPM
// forward pass over the shared schedule.
func CriticalPath(adj graph.Adjacency, sched *topo.Schedule, durations map[graph.NodeID]float64, lags map[graph.Arc]float64) map[graph.NodeID]float64 {
	return topo.Walk[float64](adj, sched, cpmStrategy{durations: durations, lags: lags})
}
