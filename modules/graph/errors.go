package graph

import "fmt"

// CycleError means the input was not a DAG. Detected by the scheduler when
// frontier expansion stops making progress; Node is one of the nodes left
// unplaced.
type CycleError struct {
	Node NodeID
}

func (e CycleError) Error() string {
	return fmt.Sprintf("input graph contains a cycle (node %d could not be scheduled)", e.Node)
}

// MissingDataError means an edge references a node without a prior, or an
// edge without an activation value. The core never substitutes defaults.
type MissingDataError struct {
	Node NodeID
	Edge *Arc
	What string
}

func (e MissingDataError) Error() string {
	if e.Edge != nil {
		return fmt.Sprintf("missing %s for edge %d->%d", e.What, e.Edge.From, e.Edge.To)
	}
	return fmt.Sprintf("missing %s for node %d", e.What, e.Node)
}

// StructuralInconsistencyError signals a bug in diamond detection or
// malformed upstream data: the group fixpoint failed to converge, or a
// materialized diamond turned out empty.
type StructuralInconsistencyError struct {
	Join   NodeID
	Reason string
}

func (e StructuralInconsistencyError) Error() string {
	return fmt.Sprintf("structural inconsistency at join %d: %s", e.Join, e.Reason)
}

// NumericDomainError is raised at value construction time for probabilities
// outside [0,1], inverted intervals or malformed p-box bounds.
type NumericDomainError struct {
	Reason string
}

func (e NumericDomainError) Error() string {
	return "numeric domain error: " + e.Reason
}
