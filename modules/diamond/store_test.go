package diamond

import (
	"testing"
	"time"

	"github.com/beliefdag/beliefdag/modules/graph"
)

func TestCanonicalizeRelabelInvariant(t *testing.T) {
	// The same shape built twice with disjoint node IDs.
	_, d1 := materializeOne(t, simpleDiamond(), 4)
	_, d2 := materializeOne(t, []graph.Arc{
		{From: 11, To: 12},
		{From: 11, To: 13},
		{From: 12, To: 14},
		{From: 13, To: 14},
	}, 14)

	if Canonicalize(d1) != Canonicalize(d2) {
		t.Error("isomorphic diamonds got different signatures")
	}
	if !Isomorphic(d1, d2) {
		t.Error("Isomorphic = false for relabeled copies")
	}
}

func TestCanonicalizeSeparatesShapes(t *testing.T) {
	_, two := materializeOne(t, simpleDiamond(), 4)
	_, three := materializeOne(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 1, To: 5},
		{From: 2, To: 4},
		{From: 3, To: 4},
		{From: 5, To: 4},
	}, 4)

	if Canonicalize(two) == Canonicalize(three) {
		t.Error("two-path and three-path diamonds share a signature")
	}
	if Isomorphic(two, three) {
		t.Error("Isomorphic = true for different shapes")
	}
}

func TestBuildStoreDeduplicates(t *testing.T) {
	// Two disjoint copies of the minimal diamond plus one three-path
	// diamond: three instances, two unique shapes.
	idx, sched := buildFixture(t, []graph.Arc{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 2, To: 4},
		{From: 3, To: 4},

		{From: 11, To: 12},
		{From: 11, To: 13},
		{From: 12, To: 14},
		{From: 13, To: 14},

		{From: 21, To: 22},
		{From: 21, To: 23},
		{From: 21, To: 24},
		{From: 22, To: 25},
		{From: 23, To: 25},
		{From: 24, To: 25},
	})

	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	store, err := BuildStore(idx, sched, structures)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}

	stats := store.Stats()
	if stats.Instances != 3 {
		t.Errorf("Instances = %d, want 3", stats.Instances)
	}
	if stats.Unique != 2 {
		t.Errorf("Unique = %d, want 2", stats.Unique)
	}

	a, ok := store.Lookup(GroupRef{Join: 4, Group: 0})
	if !ok {
		t.Fatal("no instance for join 4")
	}
	b, ok := store.Lookup(GroupRef{Join: 14, Group: 0})
	if !ok {
		t.Fatal("no instance for join 14")
	}
	if a.Signature != b.Signature || a.Variant != b.Variant {
		t.Error("isomorphic instances resolved to different canonical entries")
	}

	c, ok := store.Lookup(GroupRef{Join: 25, Group: 0})
	if !ok {
		t.Fatal("no instance for join 25")
	}
	if c.Signature == a.Signature && c.Variant == a.Variant {
		t.Error("three-path diamond shares a canonical entry with the two-path shape")
	}

	// Classification is computed once per shape and shared.
	ca, ok := store.ClassificationOf(a)
	if !ok {
		t.Fatal("no classification for instance a")
	}
	cb, ok := store.ClassificationOf(b)
	if !ok {
		t.Fatal("no classification for instance b")
	}
	if ca != cb {
		t.Error("shared shape produced different classifications")
	}
	if ca.PathCount != 2 {
		t.Errorf("PathCount = %d, want 2", ca.PathCount)
	}
}

func TestStoreInstancesIteration(t *testing.T) {
	idx, sched := buildFixture(t, simpleDiamond())
	structures, err := Detect(idx, sched)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	store, err := BuildStore(idx, sched, structures)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}

	var count int
	store.Instances(func(inst *Instance) bool {
		count++
		if inst.Diamond == nil {
			t.Error("instance without a diamond")
		}
		return true
	})
	if count != 1 {
		t.Errorf("iterated %d instances, want 1", count)
	}
}

func TestGroupRefTextRoundTrip(t *testing.T) {
	ref := GroupRef{Join: 4, Group: 2}
	text, err := ref.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "4/2" {
		t.Errorf("MarshalText = %q, want %q", text, "4/2")
	}

	var back GroupRef
	if err := back.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if back != ref {
		t.Errorf("round trip = %+v, want %+v", back, ref)
	}

	if err := back.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("expected error for malformed ref")
	}
}

func TestBuildStoreSurfacesEveryGroupError(t *testing.T) {
	// A join carrying more failing groups than there are joins: every
	// error must be deliverable without blocking the workers.
	idx, sched := buildFixture(t, simpleDiamond())

	bogus := &AncestorGroup{Highest: []graph.NodeID{2}}
	structures := map[graph.NodeID]*GroupedStructure{
		4: {
			Join:   4,
			Groups: []*AncestorGroup{bogus, bogus, bogus, bogus},
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := BuildStore(idx, sched, structures)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected materialization error for degenerate groups")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("BuildStore deadlocked on error delivery")
	}
}
