package diamond

import (
	"encoding/binary"
	"slices"

	"github.com/OneOfOne/xxhash"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// Signature is the content address of a diamond's structure under
// relabeling: two diamonds that are isomorphic as propagation problems
// (same shape, same conditioning positions) hash to the same signature.
// Priors and edge probabilities are deliberately not part of the key.
type Signature uint64

// Canonicalize computes the structural signature via iterative color
// refinement followed by a deterministic relabeling. Refinement by in/out
// degree and neighbor colors is not a perfect isomorphism invariant, so the
// store backs every signature with an exact check on collision.
func Canonicalize(d *Diamond) Signature {
	nodes := d.Relevant.Members()
	rank := make(map[graph.NodeID]int, len(nodes))
	for i, n := range nodes {
		rank[n] = i
	}

	in := make([][]int, len(nodes))
	out := make([][]int, len(nodes))
	for _, e := range d.Edges {
		f, t := rank[e.From], rank[e.To]
		out[f] = append(out[f], t)
		in[t] = append(in[t], f)
	}

	cond := make([]bool, len(nodes))
	for _, c := range d.Conditioning {
		cond[rank[c]] = true
	}

	// Initial colors: local degree structure plus role flags.
	colors := make([]uint64, len(nodes))
	for i := range nodes {
		h := xxhash.New64()
		var seed [4]uint64
		seed[0] = uint64(len(in[i]))
		seed[1] = uint64(len(out[i]))
		if cond[i] {
			seed[2] = 1
		}
		if nodes[i] == d.Join {
			seed[3] = 1
		}
		hashWords(h, seed[:])
		colors[i] = h.Sum64()
	}

	// Refine: a node's color absorbs the sorted colors of its neighborhoods.
	// log2(n) rounds separate everything degree refinement can separate.
	rounds := 1
	for n := len(nodes); n > 1; n /= 2 {
		rounds++
	}
	scratch := make([]uint64, 0, len(nodes))
	for r := 0; r < rounds; r++ {
		next := make([]uint64, len(nodes))
		for i := range nodes {
			h := xxhash.New64()
			hashWords(h, []uint64{colors[i]})
			scratch = scratch[:0]
			for _, p := range in[i] {
				scratch = append(scratch, colors[p])
			}
			slices.Sort(scratch)
			hashWords(h, scratch)
			scratch = scratch[:0]
			for _, s := range out[i] {
				scratch = append(scratch, colors[s])
			}
			slices.Sort(scratch)
			hashWords(h, scratch)
			next[i] = h.Sum64()
		}
		colors = next
	}

	// Relabel by final color; symmetric nodes share a color, and any
	// consistent order within a symmetry class encodes the same structure.
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if colors[a] != colors[b] {
			if colors[a] < colors[b] {
				return -1
			}
			return 1
		}
		return 0
	})
	label := make([]int, len(nodes))
	for newlabel, old := range order {
		label[old] = newlabel
	}

	type arc struct{ f, t int }
	arcs := make([]arc, 0, len(d.Edges))
	for _, e := range d.Edges {
		arcs = append(arcs, arc{label[rank[e.From]], label[rank[e.To]]})
	}
	slices.SortFunc(arcs, func(a, b arc) int {
		if a.f != b.f {
			return a.f - b.f
		}
		return a.t - b.t
	})

	condlabels := make([]int, 0, len(d.Conditioning))
	for _, c := range d.Conditioning {
		condlabels = append(condlabels, label[rank[c]])
	}
	slices.Sort(condlabels)

	h := xxhash.New64()
	hashWords(h, []uint64{uint64(len(nodes)), uint64(label[rank[d.Join]])})
	for _, a := range arcs {
		hashWords(h, []uint64{uint64(a.f), uint64(a.t)})
	}
	for _, c := range condlabels {
		hashWords(h, []uint64{uint64(c)})
	}
	return Signature(h.Sum64())
}

func hashWords(h *xxhash.XXHash64, words []uint64) {
	var buf [8]byte
	for _, w := range words {
		binary.LittleEndian.PutUint64(buf[:], w)
		h.Write(buf[:])
	}
}

// Isomorphic is the exact fallback used on signature collision: a
// backtracking search for a bijection between the two node sets preserving
// edges, the join and conditioning positions. Diamonds are small, and the
// search is only ever reached when refinement already agreed, so brute
// force with degree pruning suffices.
func Isomorphic(a, b *Diamond) bool {
	an := a.Relevant.Members()
	bn := b.Relevant.Members()
	if len(an) != len(bn) || len(a.Edges) != len(b.Edges) ||
		len(a.Conditioning) != len(b.Conditioning) {
		return false
	}

	type profile struct {
		in, out int
		cond    bool
		join    bool
	}
	profiles := func(d *Diamond, nodes []graph.NodeID) (map[graph.NodeID]profile, map[graph.NodeID]map[graph.NodeID]bool) {
		prof := make(map[graph.NodeID]profile, len(nodes))
		adj := make(map[graph.NodeID]map[graph.NodeID]bool, len(nodes))
		for _, n := range nodes {
			prof[n] = profile{join: n == d.Join}
		}
		for _, e := range d.Edges {
			p := prof[e.From]
			p.out++
			prof[e.From] = p
			p = prof[e.To]
			p.in++
			prof[e.To] = p
			if adj[e.From] == nil {
				adj[e.From] = make(map[graph.NodeID]bool)
			}
			adj[e.From][e.To] = true
		}
		for _, c := range d.Conditioning {
			p := prof[c]
			p.cond = true
			prof[c] = p
		}
		return prof, adj
	}

	aprof, aadj := profiles(a, an)
	bprof, badj := profiles(b, bn)

	mapping := make(map[graph.NodeID]graph.NodeID, len(an))
	used := make(map[graph.NodeID]bool, len(bn))

	var assign func(i int) bool
	assign = func(i int) bool {
		if i == len(an) {
			return true
		}
		x := an[i]
		for _, y := range bn {
			if used[y] || aprof[x] != bprof[y] {
				continue
			}
			ok := true
			for prev, py := range mapping {
				if aadj[x][prev] != badj[y][py] || aadj[prev][x] != badj[py][y] {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			mapping[x] = y
			used[y] = true
			if assign(i + 1) {
				return true
			}
			delete(mapping, x)
			used[y] = false
		}
		return false
	}

	return assign(0)
}
