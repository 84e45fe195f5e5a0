package graph

// NodeID identifies a node in a probabilistic network. IDs do not need to be
// contiguous, but index structures size themselves to the highest ID seen.
type NodeID uint32

// Arc is a directed edge between two nodes.
type Arc struct {
	From NodeID `json:"from"`
	To   NodeID `json:"to"`
}

// Network is the raw parsed input: an edge list plus per-node priors and
// per-edge activation values in some numeric domain. It is never mutated
// after construction; everything downstream works from an Index built on it.
type Network[T any] struct {
	Edges     []Arc
	Priors    map[NodeID]T
	EdgeProbs map[Arc]T
}

// Role classifies a node by its local degree structure. Roles are derived
// from the index, never stored on the node itself.
type Role int

const (
	RoleRegular Role = iota
	RoleSource
	RoleSink
	RoleFork
	RoleJoin
	RoleForkJoin // both fork and join
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	case RoleFork:
		return "fork"
	case RoleJoin:
		return "join"
	case RoleForkJoin:
		return "forkjoin"
	}
	return "regular"
}
