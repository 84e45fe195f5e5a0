package belief

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/beliefdag/beliefdag/modules/diamond"
	"github.com/beliefdag/beliefdag/modules/graph"
	"github.com/beliefdag/beliefdag/modules/topo"
	"github.com/beliefdag/beliefdag/modules/ui"
)

// MaxConditioningNodes caps the joint-state enumeration per diamond. State
// count is exponential in the conditioning set, so inputs whose diamonds
// defeat the conservative policy this badly are rejected rather than left
// to run for days.
const MaxConditioningNodes = 20

// Propagator computes exact marginal activation probabilities for every
// node, level by level, resolving each join's diamonds by conditioning on
// their fork frontier and recursing over the diamond subgraph.
type Propagator[T any] struct {
	Alg        Algebra[T]
	Net        *graph.Network[T]
	Idx        *graph.Index
	Sched      *topo.Schedule
	Structures map[graph.NodeID]*diamond.GroupedStructure
	Store      *diamond.Store

	// Workers bounds intra-level parallelism; 0 means NumCPU.
	Workers int
}

// Result is the completed belief table for one run. It is fully built
// before being returned and never mutated afterwards.
type Result[T any] struct {
	RunID   uuid.UUID          `json:"run_id"`
	Beliefs map[graph.NodeID]T `json:"beliefs"`

	// Conditioning audits the conditioning set the engine chose per
	// diamond instance, for external verification of the decoupling.
	Conditioning map[diamond.GroupRef][]graph.NodeID `json:"conditioning"`
}

// Run processes iteration sets in order. No node is computed before all of
// its predecessors' beliefs exist; nodes within one level only read earlier
// levels, so they are computed in parallel and merged at the level barrier.
func (p *Propagator[T]) Run() (*Result[T], error) {
	runid, _ := uuid.NewV7()
	res := &Result[T]{
		RunID:        runid,
		Beliefs:      make(map[graph.NodeID]T, p.Sched.NodeCount()),
		Conditioning: make(map[diamond.GroupRef][]graph.NodeID),
	}

	for ref, cond := range p.auditConditioning() {
		res.Conditioning[ref] = cond
	}

	pb := ui.ProgressBar("Propagating beliefs", p.Sched.NodeCount())
	defer pb.Finish()

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	for _, level := range p.Sched.Levels {
		type slot struct {
			node graph.NodeID
			val  T
			err  error
		}
		slots := make([]slot, len(level))

		var wg sync.WaitGroup
		work := make(chan int)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range work {
					n := level[i]
					val, err := p.nodeBelief(n, res.Beliefs)
					slots[i] = slot{node: n, val: val, err: err}
				}
			}()
		}
		for i := range level {
			work <- i
		}
		close(work)
		wg.Wait()

		for _, s := range slots {
			if s.err != nil {
				return nil, s.err
			}
			res.Beliefs[s.node] = s.val
		}
		pb.Add(len(level))
	}

	return res, nil
}

func (p *Propagator[T]) auditConditioning() map[diamond.GroupRef][]graph.NodeID {
	out := make(map[diamond.GroupRef][]graph.NodeID)
	if p.Store == nil {
		return out
	}
	p.Store.Instances(func(inst *diamond.Instance) bool {
		out[inst.Ref] = inst.Diamond.Conditioning
		return true
	})
	return out
}

// nodeBelief applies the per-role update rule.
func (p *Propagator[T]) nodeBelief(n graph.NodeID, beliefs map[graph.NodeID]T) (T, error) {
	var zero T
	prior, ok := p.Net.Priors[n]
	if !ok {
		return zero, graph.MissingDataError{Node: n, What: "prior"}
	}

	parents := p.Idx.Incoming(n)
	if len(parents) == 0 {
		return prior, nil
	}

	gs := p.Structures[n]
	if gs == nil || len(gs.Groups) == 0 {
		// Structurally guaranteed independent parents: each contributes the
		// event {parent active AND its edge delivers}.
		contribs := make([]T, 0, len(parents))
		for _, parent := range parents {
			contribs = append(contribs, p.delivery(parent, n, beliefs))
		}
		return p.Alg.And(prior, OrIndependent(p.Alg, contribs)), nil
	}

	// Distinct ancestor groups and non-diamond parents are independent by
	// construction of the grouping, so their contributions combine by
	// inclusion-exclusion; only the interior of each group needs the
	// conditioning machinery.
	contribs := make([]T, 0, len(gs.Groups)+len(gs.NonDiamondParents))
	for gi := range gs.Groups {
		inst, ok := p.Store.Lookup(diamond.GroupRef{Join: n, Group: gi})
		if !ok {
			return zero, graph.StructuralInconsistencyError{Join: n, Reason: fmt.Sprintf("group %d missing from diamond store", gi)}
		}
		contrib, err := p.diamondContribution(inst.Diamond, beliefs)
		if err != nil {
			return zero, err
		}
		contribs = append(contribs, contrib)
	}
	for _, parent := range gs.NonDiamondParents {
		contribs = append(contribs, p.delivery(parent, n, beliefs))
	}

	return p.Alg.And(prior, OrIndependent(p.Alg, contribs)), nil
}

// delivery is the event "parent is active and the edge parent->n fires".
func (p *Propagator[T]) delivery(parent, n graph.NodeID, beliefs map[graph.NodeID]T) T {
	return p.Alg.And(beliefs[parent], p.Net.EdgeProbs[graph.Arc{From: parent, To: n}])
}

// diamondContribution resolves one ancestor group: enumerate the joint
// activation states of the conditioning nodes, weight each state by its
// probability, and inside each state compute the join's conditional
// delivery over the diamond's subgraph, where the conditioning renders the
// surviving paths pairwise independent. The states mix by the law of total
// probability.
func (p *Propagator[T]) diamondContribution(d *diamond.Diamond, beliefs map[graph.NodeID]T) (T, error) {
	var zero T

	cond := slices.Clone(d.Conditioning)
	if len(cond) > MaxConditioningNodes {
		return zero, graph.StructuralInconsistencyError{
			Join:   d.Join,
			Reason: fmt.Sprintf("conditioning set of %d nodes exceeds the %d-node enumeration cap", len(cond), MaxConditioningNodes),
		}
	}
	// Enumeration order must follow the topology so each node's state
	// weight conditions only on already-fixed upstream states.
	slices.SortFunc(cond, func(a, b graph.NodeID) int {
		if la, lb := p.Sched.LevelOf[a], p.Sched.LevelOf[b]; la != lb {
			return la - lb
		}
		return int(a) - int(b)
	})

	view := newDiamondView(d, p.Sched)

	total := p.Alg.Zero()
	for state := uint(0); state < 1<<len(cond); state++ {
		weight := p.stateWeight(view, cond, state, beliefs)
		contrib := p.conditionalDelivery(view, cond, state, beliefs)
		total = p.Alg.Add(total, p.Alg.And(weight, contrib))
	}
	return total, nil
}

// stateWeight computes P(joint state) by sequential clamping: the i-th
// conditioning node's marginal is evaluated inside the diamond with all
// earlier conditioning nodes fixed, so dependence between conditioning
// nodes routed through the diamond interior is accounted for. Conditioning
// nodes with no unclamped parents in the view (the fork frontier) take
// their already-computed global beliefs.
func (p *Propagator[T]) stateWeight(view *diamondView, cond []graph.NodeID, state uint, beliefs map[graph.NodeID]T) T {
	weight := p.Alg.One()
	clamps := make(map[graph.NodeID]T, len(cond))

	for i, c := range cond {
		sub := p.viewBeliefs(view, clamps, beliefs)
		marginal := sub[c]

		if state&(1<<uint(i)) != 0 {
			weight = p.Alg.And(weight, marginal)
			clamps[c] = p.Alg.One()
		} else {
			weight = p.Alg.And(weight, p.Alg.Complement(marginal))
			clamps[c] = p.Alg.Zero()
		}
	}
	return weight
}

// conditionalDelivery computes P(at least one influenced parent delivers to
// the join | state): the same propagation algorithm run over the diamond's
// filtered subgraph with the conditioning nodes as fixed boundary sources.
func (p *Propagator[T]) conditionalDelivery(view *diamondView, cond []graph.NodeID, state uint, beliefs map[graph.NodeID]T) T {
	clamps := make(map[graph.NodeID]T, len(cond))
	for i, c := range cond {
		if state&(1<<uint(i)) != 0 {
			clamps[c] = p.Alg.One()
		} else {
			clamps[c] = p.Alg.Zero()
		}
	}

	sub := p.viewBeliefs(view, clamps, beliefs)

	deliveries := make([]T, 0, len(view.d.InfluencedParents))
	for _, parent := range view.d.InfluencedParents {
		deliveries = append(deliveries, p.Alg.And(sub[parent], p.Net.EdgeProbs[graph.Arc{From: parent, To: view.d.Join}]))
	}
	return OrIndependent(p.Alg, deliveries)
}

// viewBeliefs runs the propagation recursion over a diamond's private
// view: level order inherited from the global schedule, clamped nodes
// pinned to their state, everything else combined from its in-view parents
// under the independence the clamps establish. Writes go to a private
// sub-table, never to the shared beliefs map.
func (p *Propagator[T]) viewBeliefs(view *diamondView, clamps map[graph.NodeID]T, beliefs map[graph.NodeID]T) map[graph.NodeID]T {
	sub := make(map[graph.NodeID]T, len(view.order))

	for _, n := range view.order {
		if v, ok := clamps[n]; ok {
			sub[n] = v
			continue
		}
		parents := view.incoming[n]
		if len(parents) == 0 {
			// Fork frontier evaluated before being clamped: the marginal
			// comes from the already-complete outer table.
			sub[n] = beliefs[n]
			continue
		}
		contribs := make([]T, 0, len(parents))
		for _, parent := range parents {
			contribs = append(contribs, p.Alg.And(sub[parent], p.Net.EdgeProbs[graph.Arc{From: parent, To: n}]))
		}
		// Boundary nodes also receive activation from outside the diamond.
		// External parents carry no interior dependence, so their global
		// beliefs contribute directly.
		for _, ext := range p.Idx.Incoming(n) {
			if view.d.Relevant.Has(ext) {
				continue
			}
			contribs = append(contribs, p.Alg.And(beliefs[ext], p.Net.EdgeProbs[graph.Arc{From: ext, To: n}]))
		}
		sub[n] = p.Alg.And(p.Net.Priors[n], OrIndependent(p.Alg, contribs))
	}
	return sub
}

// diamondView is the filtered, read-only walk order of one diamond's
// interior (join excluded): nodes in global level order, in-view incoming
// adjacency resolved once.
type diamondView struct {
	d        *diamond.Diamond
	order    []graph.NodeID
	incoming map[graph.NodeID][]graph.NodeID
}

func newDiamondView(d *diamond.Diamond, sched *topo.Schedule) *diamondView {
	v := &diamondView{
		d:        d,
		incoming: make(map[graph.NodeID][]graph.NodeID),
	}
	for _, e := range d.Edges {
		if e.To == d.Join {
			continue
		}
		v.incoming[e.To] = append(v.incoming[e.To], e.From)
	}
	d.Relevant.Each(func(n graph.NodeID) bool {
		if n != d.Join {
			v.order = append(v.order, n)
		}
		return true
	})
	slices.SortFunc(v.order, func(a, b graph.NodeID) int {
		if la, lb := sched.LevelOf[a], sched.LevelOf[b]; la != lb {
			return la - lb
		}
		return int(a) - int(b)
	})
	return v
}

// LiftNetwork converts a parsed scalar network into any belief domain,
// validating every value on the way in.
func LiftNetwork[T any](alg Algebra[T], net *graph.Network[float64]) (*graph.Network[T], error) {
	out := &graph.Network[T]{
		Edges:     slices.Clone(net.Edges),
		Priors:    make(map[graph.NodeID]T, len(net.Priors)),
		EdgeProbs: make(map[graph.Arc]T, len(net.EdgeProbs)),
	}
	for n, f := range net.Priors {
		v, err := alg.FromFloat(f)
		if err != nil {
			return nil, fmt.Errorf("prior of node %d: %w", n, err)
		}
		out.Priors[n] = v
	}
	for e, f := range net.EdgeProbs {
		v, err := alg.FromFloat(f)
		if err != nil {
			return nil, fmt.Errorf("probability of edge %d->%d: %w", e.From, e.To, err)
		}
		out.EdgeProbs[e] = v
	}
	return out, nil
}
