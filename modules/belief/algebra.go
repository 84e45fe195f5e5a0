// Package belief implements the diamond-aware exact inference engine. The
// propagation algorithm is written once against a small combination
// algebra; scalar probabilities, probability intervals and probability
// boxes each supply one implementation of it.
package belief

// Algebra is the numeric contract of one belief domain.
type Algebra[T any] interface {
	Zero() T
	One() T

	// And combines two independent events that must both occur.
	And(a, b T) T

	// Add is the total-probability sum used to mix conditioning states.
	// Weights across an enumeration sum to one, so the result stays in
	// domain.
	Add(a, b T) T

	// Complement is the probability of the event not occurring.
	Complement(a T) T

	// FromFloat lifts a parsed scalar into the domain, rejecting values
	// outside [0,1] with a NumericDomainError.
	FromFloat(f float64) (T, error)

	// Validate rejects malformed values at construction time.
	Validate(a T) error
}

// OrIndependent is the inclusion-exclusion step for pairwise independent
// events, folded through the complement: P(at least one) = 1 - ∏(1 - p).
// For independent events this equals the full alternating-sign expansion.
func OrIndependent[T any](alg Algebra[T], terms []T) T {
	if len(terms) == 0 {
		return alg.Zero()
	}
	none := alg.One()
	for _, t := range terms {
		none = alg.And(none, alg.Complement(t))
	}
	return alg.Complement(none)
}
