package graph

import (
	"slices"
	"testing"
)

func TestNodeSetBasics(t *testing.T) {
	s := NewNodeSet(200)
	for _, n := range []NodeID{0, 1, 63, 64, 127, 199} {
		s.Add(n)
	}

	if got := s.Count(); got != 6 {
		t.Errorf("Count() = %d, want 6", got)
	}
	if !s.Has(63) || !s.Has(64) {
		t.Error("word-boundary members missing")
	}
	if s.Has(2) || s.Has(128) {
		t.Error("Has reports members never added")
	}

	want := []NodeID{0, 1, 63, 64, 127, 199}
	if got := s.Members(); !slices.Equal(got, want) {
		t.Errorf("Members() = %v, want %v", got, want)
	}
}

func TestNodeSetGrowsPastCapacity(t *testing.T) {
	s := NewNodeSet(10)
	s.Add(500)
	if !s.Has(500) {
		t.Error("Add past initial capacity lost the member")
	}
	if s.Has(501) {
		t.Error("neighbor bit set")
	}
}

func TestNodeSetUnionIntersect(t *testing.T) {
	a := NewNodeSet(100)
	b := NewNodeSet(100)
	for _, n := range []NodeID{1, 2, 3, 70} {
		a.Add(n)
	}
	for _, n := range []NodeID{3, 4, 70} {
		b.Add(n)
	}

	if !a.Intersects(b) {
		t.Error("Intersects false for overlapping sets")
	}

	inter := a.Intersect(b)
	if got := inter.Members(); !slices.Equal(got, []NodeID{3, 70}) {
		t.Errorf("Intersect = %v, want [3 70]", got)
	}

	a.UnionWith(b)
	if got := a.Members(); !slices.Equal(got, []NodeID{1, 2, 3, 4, 70}) {
		t.Errorf("UnionWith = %v, want [1 2 3 4 70]", got)
	}

	c := NewNodeSet(100)
	c.Add(99)
	if a.Intersects(c) {
		t.Error("Intersects true for disjoint sets")
	}
}

func TestNodeSetClone(t *testing.T) {
	a := NewNodeSet(64)
	a.Add(5)
	b := a.Clone()
	b.Add(6)
	if a.Has(6) {
		t.Error("Clone shares storage with original")
	}
}

func TestNodeSetEachStops(t *testing.T) {
	s := NewNodeSet(64)
	for n := NodeID(0); n < 10; n++ {
		s.Add(n)
	}
	var visited int
	s.Each(func(NodeID) bool {
		visited++
		return visited < 3
	})
	if visited != 3 {
		t.Errorf("Each visited %d members after early stop, want 3", visited)
	}
}
