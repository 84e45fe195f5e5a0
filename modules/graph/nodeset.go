package graph

import "math/bits"

// NodeSet is a fixed-capacity bitset over node IDs. Ancestor and descendant
// closures are stored as NodeSets; intersection tests during diamond
// detection dominate the runtime, so this is words-and-popcount rather than
// a map.
type NodeSet struct {
	words []uint64
}

func NewNodeSet(capacity NodeID) *NodeSet {
	return &NodeSet{words: make([]uint64, (int(capacity)+64)/64)}
}

func (s *NodeSet) Add(n NodeID) {
	w := int(n) / 64
	if w >= len(s.words) {
		grown := make([]uint64, w+1)
		copy(grown, s.words)
		s.words = grown
	}
	s.words[w] |= 1 << (uint(n) % 64)
}

func (s *NodeSet) Has(n NodeID) bool {
	w := int(n) / 64
	if s == nil || w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(n)%64)) != 0
}

func (s *NodeSet) Count() int {
	var c int
	for _, w := range s.words {
		c += bits.OnesCount64(w)
	}
	return c
}

func (s *NodeSet) Clone() *NodeSet {
	c := &NodeSet{words: make([]uint64, len(s.words))}
	copy(c.words, s.words)
	return c
}

// UnionWith adds all members of other to s.
func (s *NodeSet) UnionWith(other *NodeSet) {
	if other == nil {
		return
	}
	if len(other.words) > len(s.words) {
		grown := make([]uint64, len(other.words))
		copy(grown, s.words)
		s.words = grown
	}
	for i, w := range other.words {
		s.words[i] |= w
	}
}

// Intersect returns a new set with the members common to both.
func (s *NodeSet) Intersect(other *NodeSet) *NodeSet {
	n := len(s.words)
	if len(other.words) < n {
		n = len(other.words)
	}
	out := &NodeSet{words: make([]uint64, n)}
	for i := 0; i < n; i++ {
		out.words[i] = s.words[i] & other.words[i]
	}
	return out
}

// Intersects reports whether the two sets share at least one member,
// without allocating.
func (s *NodeSet) Intersects(other *NodeSet) bool {
	n := len(s.words)
	if len(other.words) < n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		if s.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

// Each calls f for every member in ascending order, stopping if f returns
// false.
func (s *NodeSet) Each(f func(NodeID) bool) {
	for wi, w := range s.words {
		for w != 0 {
			bit := bits.TrailingZeros64(w)
			if !f(NodeID(wi*64 + bit)) {
				return
			}
			w &= w - 1
		}
	}
}

// Members returns the set contents as a sorted slice.
func (s *NodeSet) Members() []NodeID {
	out := make([]NodeID, 0, s.Count())
	s.Each(func(n NodeID) bool {
		out = append(out, n)
		return true
	})
	return out
}
