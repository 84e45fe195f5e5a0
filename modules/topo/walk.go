package topo

import (
	"runtime"
	"sync"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// ParentValue is one incoming contribution seen by a Strategy: the already
// computed value of a predecessor plus the annotation of the connecting
// edge.
type ParentValue[T any] struct {
	Node graph.NodeID
	Val  T
	Edge T
}

// Strategy is one propagation objective over the shared DAG walk. The
// belief engine has its own diamond-aware walker; capacity and critical
// path analysis plug in here directly, since max/min and max/+ combination
// is insensitive to shared ancestry.
type Strategy[T any] interface {
	// Source produces the value of a node with no predecessors.
	Source(n graph.NodeID) T
	// Combine folds the parent contributions into the node's value.
	Combine(n graph.NodeID, parents []ParentValue[T]) T
	// EdgeValue annotates the edge from -> to.
	EdgeValue(from, to graph.NodeID) T
}

// Walk runs strategy over the schedule: levels strictly in order, nodes
// within one level in parallel. Every node reads only values from earlier
// levels and writes only its own slot, so the only synchronization needed
// is the level barrier.
func Walk[T any](adj graph.Adjacency, sched *Schedule, strategy Strategy[T]) map[graph.NodeID]T {
	out := make(map[graph.NodeID]T, sched.NodeCount())
	var mu sync.Mutex

	workers := runtime.NumCPU()

	for _, level := range sched.Levels {
		var wg sync.WaitGroup
		work := make(chan graph.NodeID)

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for n := range work {
					preds := adj.Incoming(n)
					var val T
					if len(preds) == 0 {
						val = strategy.Source(n)
					} else {
						parents := make([]ParentValue[T], 0, len(preds))
						for _, p := range preds {
							mu.Lock()
							pv := out[p]
							mu.Unlock()
							parents = append(parents, ParentValue[T]{
								Node: p,
								Val:  pv,
								Edge: strategy.EdgeValue(p, n),
							})
						}
						val = strategy.Combine(n, parents)
					}
					mu.Lock()
					out[n] = val
					mu.Unlock()
				}
			}()
		}

		for _, n := range level {
			work <- n
		}
		close(work)
		wg.Wait()
	}

	return out
}
