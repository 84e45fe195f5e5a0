package diamond

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	gsync "github.com/SaveTheRbtz/generic-sync-map-go"
	"github.com/puzpuzpuz/xsync"

	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
)

// GroupRef addresses one diamond instance: the group ordinal within a
// join's grouped structure.
type GroupRef struct {
	Join  graph.NodeID `json:"join"`
	Group int          `json:"group"`
}

// MarshalText renders the ref as "join/group" so it can key JSON maps
// (struct map keys are not serializable).
func (r GroupRef) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(r.Join), 10) + "/" + strconv.Itoa(r.Group)), nil
}

func (r *GroupRef) UnmarshalText(text []byte) error {
	join, group, ok := strings.Cut(string(text), "/")
	if !ok {
		return fmt.Errorf("malformed group ref %q", text)
	}
	j, err := strconv.ParseUint(join, 10, 32)
	if err != nil {
		return fmt.Errorf("malformed group ref %q: %w", text, err)
	}
	g, err := strconv.Atoi(group)
	if err != nil {
		return fmt.Errorf("malformed group ref %q: %w", text, err)
	}
	r.Join, r.Group = graph.NodeID(j), g
	return nil
}

// Store is the content-addressed diamond store. Structurally isomorphic
// diamonds across the whole graph share one canonical entry, which
// amortizes classification and subgraph bookkeeping; numeric results are
// still computed per instance by the belief engine.
//
// The signature map is the only shared mutable state during construction,
// and LoadOrStore keeps it at-most-one-entry per isomorphism class under
// concurrent insertion.
type Store struct {
	entries   gsync.MapOf[Signature, *storeEntry]
	instances gsync.MapOf[GroupRef, *Instance]

	inserted   *xsync.Counter
	collisions *xsync.Counter
	unique     *xsync.Counter
}

// storeEntry is one signature bucket. Refinement hashing can collide, so a
// bucket holds every representative with that signature and membership is
// decided by the exact isomorphism check.
type storeEntry struct {
	mu       sync.Mutex
	variants []*canonicalDiamond
}

type canonicalDiamond struct {
	Diamond        *Diamond
	Classification Classification
}

// Instance ties one (join, group) occurrence to its materialized diamond
// and the canonical signature it resolved to.
type Instance struct {
	Ref       GroupRef  `json:"ref"`
	Diamond   *Diamond  `json:"diamond"`
	Signature Signature `json:"signature"`
	Variant   int       `json:"variant"`
}

// StoreStats is the diagnostic summary exposed by the webservice.
type StoreStats struct {
	Instances  int64 `json:"instances"`
	Unique     int64 `json:"unique"`
	Collisions int64 `json:"collisions"`
}

func NewStore() *Store {
	return &Store{
		inserted:   new(xsync.Counter),
		collisions: new(xsync.Counter),
		unique:     new(xsync.Counter),
	}
}

// BuildStore materializes and deduplicates every detected diamond.
// Individual diamonds depend only on their own relevant nodes and edges,
// so joins are processed as a fork-join map.
func BuildStore(adj graph.Adjacency, sched *topo.Schedule, structures map[graph.NodeID]*GroupedStructure) (*Store, error) {
	s := NewStore()

	joins := make([]graph.NodeID, 0, len(structures))
	groups := 0
	for j, st := range structures {
		joins = append(joins, j)
		groups += len(st.Groups)
	}

	workers := runtime.NumCPU()
	work := make(chan graph.NodeID)
	// At most one error per group; sized so workers never block on send.
	errs := make(chan error, groups)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range work {
				for gi, group := range structures[j].Groups {
					d, err := Materialize(adj, sched, j, group)
					if err != nil {
						errs <- err
						continue
					}
					if _, err := s.Insert(adj, GroupRef{Join: j, Group: gi}, d); err != nil {
						errs <- err
					}
				}
			}
		}()
	}

	for _, j := range joins {
		work <- j
	}
	close(work)
	wg.Wait()
	close(errs)

	if err := <-errs; err != nil {
		return nil, err
	}
	return s, nil
}

// Insert deduplicates d against the store and records the instance. The
// returned Instance points at d itself; its Signature and Variant identify
// the canonical entry it shares with isomorphic diamonds elsewhere.
func (s *Store) Insert(adj graph.Adjacency, ref GroupRef, d *Diamond) (*Instance, error) {
	sig := Canonicalize(d)

	entry, _ := s.entries.LoadOrStore(sig, &storeEntry{})

	entry.mu.Lock()
	variant := -1
	for i, existing := range entry.variants {
		if Isomorphic(existing.Diamond, d) {
			variant = i
			break
		}
	}
	if variant < 0 {
		classification, err := Classify(adj, d)
		if err != nil {
			entry.mu.Unlock()
			return nil, err
		}
		entry.variants = append(entry.variants, &canonicalDiamond{
			Diamond:        d,
			Classification: classification,
		})
		variant = len(entry.variants) - 1
		s.unique.Inc()
		if variant > 0 {
			s.collisions.Inc()
		}
	}
	entry.mu.Unlock()

	inst := &Instance{Ref: ref, Diamond: d, Signature: sig, Variant: variant}
	s.instances.Store(ref, inst)
	s.inserted.Inc()
	return inst, nil
}

// Lookup returns the instance recorded for a (join, group) reference.
func (s *Store) Lookup(ref GroupRef) (*Instance, bool) {
	return s.instances.Load(ref)
}

// ClassificationOf returns the canonical classification an instance shares.
func (s *Store) ClassificationOf(inst *Instance) (Classification, bool) {
	entry, ok := s.entries.Load(inst.Signature)
	if !ok {
		return Classification{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if inst.Variant >= len(entry.variants) {
		return Classification{}, false
	}
	return entry.variants[inst.Variant].Classification, true
}

// Instances iterates all recorded instances.
func (s *Store) Instances(f func(*Instance) bool) {
	s.instances.Range(func(_ GroupRef, inst *Instance) bool {
		return f(inst)
	})
}

func (s *Store) Stats() StoreStats {
	return StoreStats{
		Instances:  s.inserted.Value(),
		Unique:     s.unique.Value(),
		Collisions: s.collisions.Value(),
	}
}
