// Package montecarlo estimates per-node activation probabilities by
// sampling the network. It is a verification peer of the exact engine,
// never a production code path: cross-checking beliefs against sampled
// frequencies is how conditioning-set gaps are caught, since an
// insufficient conditioning set produces silently wrong numbers rather
// than an error.
package montecarlo

import (
	"math/rand"
	"runtime"
	"sync"

	"github.com/puzpuzpuz/xsync"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// Estimate samples the network and returns per-node activation
// frequencies. Sampling is sharded across workers; each shard derives its
// own rng from the seed, so identical (network, samples, seed) inputs give
// identical estimates regardless of scheduling.
func Estimate(net *graph.Network[float64], idx *graph.Index, samples int, seed int64) map[graph.NodeID]float64 {
	workers := runtime.NumCPU()
	if workers > samples {
		workers = 1
	}

	counters := make(map[graph.NodeID]*xsync.Counter, len(idx.Nodes()))
	for _, n := range idx.Nodes() {
		counters[n] = new(xsync.Counter)
	}

	var wg sync.WaitGroup
	per := samples / workers
	for w := 0; w < workers; w++ {
		count := per
		if w == workers-1 {
			count = samples - per*(w)
		}
		wg.Add(1)
		go func(shard int, count int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(shard)*0x9e3779b9))
			for i := 0; i < count; i++ {
				sampleOnce(net, idx, rng, counters)
			}
		}(w, count)
	}
	wg.Wait()

	out := make(map[graph.NodeID]float64, len(counters))
	for n, c := range counters {
		out[n] = float64(c.Value()) / float64(samples)
	}
	return out
}

// sampleOnce draws one world (node and edge successes) and walks
// activation forward from the sources in topological fashion: a non-source
// node activates iff its own draw succeeded and at least one incoming edge
// delivers from an activated parent.
func sampleOnce(net *graph.Network[float64], idx *graph.Index, rng *rand.Rand, counters map[graph.NodeID]*xsync.Counter) {
	nodeUp := make(map[graph.NodeID]bool, len(idx.Nodes()))
	edgeUp := make(map[graph.Arc]bool, len(net.Edges))

	// Draw in index order so a shard rng consumes the same stream for
	// every sample; map iteration order would break seed reproducibility.
	for _, n := range idx.Nodes() {
		nodeUp[n] = rng.Float64() < net.Priors[n]
	}
	for _, e := range net.Edges {
		edgeUp[e] = rng.Float64() < net.EdgeProbs[e]
	}

	active := make(map[graph.NodeID]bool, len(idx.Nodes()))
	// Index node order is ascending, not topological; iterate to fixpoint
	// instead of assuming an order. Converges in at most depth passes.
	changed := true
	for changed {
		changed = false
		for _, n := range idx.Nodes() {
			if active[n] || !nodeUp[n] {
				continue
			}
			preds := idx.Incoming(n)
			on := len(preds) == 0
			for _, p := range preds {
				if active[p] && edgeUp[graph.Arc{From: p, To: n}] {
					on = true
					break
				}
			}
			if on {
				active[n] = true
				changed = true
			}
		}
	}

	for n, on := range active {
		if on {
			counters[n].Inc()
		}
	}
}
