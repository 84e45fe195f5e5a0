// Package analyze wires the pipeline together: parsed network -> indices ->
// schedule -> diamond structures -> dedup store, and runs the requested
// propagation modes over it. Both the batch commands and the webservice
// work through a Session.
package analyze

import (
	"time"

	"github.com/beliefdag/beliefdag/modules/belief"
	"github.com/beliefdag/beliefdag/modules/diamond"
	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
	"github.com/beliefdag/beliefdag/modules/ui"
)

// Session holds the immutable per-network computation state. Everything in
// it is computed once: propagation runs (any number of them, any domain)
// only read from it.
type Session struct {
	Net        *graph.Network[float64]
	Idx        *graph.Index
	Sched      *topo.Schedule
	Structures map[graph.NodeID]*diamond.GroupedStructure
	Store      *diamond.Store
}

// NewSession builds all structural state for a parsed network.
func NewSession(net *graph.Network[float64]) (*Session, error) {
	start := time.Now()

	idx, err := graph.BuildIndex(net)
	if err != nil {
		return nil, err
	}

	sched, err := topo.Build(idx)
	if err != nil {
		return nil, err
	}

	structures, err := diamond.Detect(idx, sched)
	if err != nil {
		return nil, err
	}

	store, err := diamond.BuildStore(idx, sched, structures)
	if err != nil {
		return nil, err
	}

	stats := store.Stats()
	ui.Info().Msgf("Indexed %v nodes / %v edges in %v levels: %v joins, %v diamond instances (%v unique shapes) in %v",
		len(idx.Nodes()), len(net.Edges), len(sched.Levels), len(idx.JoinNodes), stats.Instances, stats.Unique, time.Since(start).Round(time.Millisecond))

	return &Session{
		Net:        net,
		Idx:        idx,
		Sched:      sched,
		Structures: structures,
		Store:      store,
	}, nil
}

// Propagate runs the belief engine over the session in the given domain.
func Propagate[T any](s *Session, alg belief.Algebra[T]) (*belief.Result[T], error) {
	lifted, err := belief.LiftNetwork(alg, s.Net)
	if err != nil {
		return nil, err
	}
	p := &belief.Propagator[T]{
		Alg:        alg,
		Net:        lifted,
		Idx:        s.Idx,
		Sched:      s.Sched,
		Structures: s.Structures,
		Store:      s.Store,
	}
	return p.Run()
}

// Classifications assembles per-instance diamond classifications for
// diagnostics.
type ClassifiedInstance struct {
	Ref            diamond.GroupRef       `json:"ref"`
	Signature      diamond.Signature      `json:"signature"`
	Conditioning   []graph.NodeID         `json:"conditioning"`
	Classification diamond.Classification `json:"classification"`
}

func (s *Session) Classifications() []ClassifiedInstance {
	var out []ClassifiedInstance
	s.Store.Instances(func(inst *diamond.Instance) bool {
		c, ok := s.Store.ClassificationOf(inst)
		if !ok {
			return true
		}
		out = append(out, ClassifiedInstance{
			Ref:            inst.Ref,
			Signature:      inst.Signature,
			Conditioning:   inst.Diamond.Conditioning,
			Classification: c,
		})
		return true
	})
	return out
}
