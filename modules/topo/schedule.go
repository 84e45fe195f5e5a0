// Package topo computes topological iteration sets and per-node
// ancestor/descendant closures for a DAG, and exposes the level-ordered
// traversal skeleton that every propagation mode (belief, capacity,
// critical path) walks.
package topo

import (
	"github.com/gammazero/deque"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// Schedule is the topological layering of one adjacency view plus the full
// reachability closures. Immutable once built.
type Schedule struct {
	// Levels[k] holds every node whose predecessors all live in levels
	// 0..k-1, with k minimal. Each node appears exactly once.
	Levels [][]graph.NodeID

	// LevelOf is the inverse of Levels.
	LevelOf map[graph.NodeID]int

	// Ancestors[n] is every node from which n is reachable; Descendants[n]
	// every node reachable from n. Both exclude n itself.
	Ancestors   map[graph.NodeID]*graph.NodeSet
	Descendants map[graph.NodeID]*graph.NodeSet
}

// Build runs frontier expansion over adj. A node enters the next level once
// all of its predecessors have been placed; if no progress can be made while
// nodes remain, the input contains a cycle.
func Build(adj graph.Adjacency) (*Schedule, error) {
	nodes := adj.Nodes()
	sched := &Schedule{
		LevelOf:     make(map[graph.NodeID]int, len(nodes)),
		Ancestors:   make(map[graph.NodeID]*graph.NodeSet, len(nodes)),
		Descendants: make(map[graph.NodeID]*graph.NodeSet, len(nodes)),
	}

	pending := make(map[graph.NodeID]int, len(nodes))
	var frontier deque.Deque[graph.NodeID]
	for _, n := range nodes {
		in := len(adj.Incoming(n))
		pending[n] = in
		if in == 0 {
			frontier.PushBack(n)
		}
	}

	placed := 0
	for frontier.Len() > 0 {
		levelsize := frontier.Len()
		level := make([]graph.NodeID, 0, levelsize)

		// Drain exactly the current generation; successors unlocked by this
		// generation queue up behind it.
		for i := 0; i < levelsize; i++ {
			n := frontier.PopFront()
			level = append(level, n)
			sched.LevelOf[n] = len(sched.Levels)
			placed++
		}
		for _, n := range level {
			for _, succ := range adj.Outgoing(n) {
				pending[succ]--
				if pending[succ] == 0 {
					frontier.PushBack(succ)
				}
			}
		}
		sched.Levels = append(sched.Levels, level)
	}

	if placed != len(nodes) {
		for _, n := range nodes {
			if pending[n] > 0 {
				return nil, graph.CycleError{Node: n}
			}
		}
		// Unreachable for well-formed adjacency, but don't return a partial
		// schedule under any circumstances.
		return nil, graph.CycleError{}
	}

	sched.buildClosures(adj)
	return sched, nil
}

// buildClosures accumulates ancestor sets level by level (every dependency
// is already complete when its level is processed), then descendants by the
// mirrored pass over the levels in reverse.
func (sched *Schedule) buildClosures(adj graph.Adjacency) {
	capacity := adj.MaxID()

	for _, level := range sched.Levels {
		for _, n := range level {
			anc := graph.NewNodeSet(capacity)
			for _, pred := range adj.Incoming(n) {
				anc.Add(pred)
				anc.UnionWith(sched.Ancestors[pred])
			}
			sched.Ancestors[n] = anc
		}
	}

	for li := len(sched.Levels) - 1; li >= 0; li-- {
		for _, n := range sched.Levels[li] {
			desc := graph.NewNodeSet(capacity)
			for _, succ := range adj.Outgoing(n) {
				desc.Add(succ)
				desc.UnionWith(sched.Descendants[succ])
			}
			sched.Descendants[n] = desc
		}
	}
}

// NodeCount returns the number of scheduled nodes.
func (sched *Schedule) NodeCount() int {
	return len(sched.LevelOf)
}
