package belief

import (
	"fmt"
	"math"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// Interval bounds an imprecisely known probability.
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// NewInterval validates bounds at construction; malformed intervals are
// rejected immediately rather than surfacing as nonsense beliefs later.
func NewInterval(lo, hi float64) (Interval, error) {
	iv := Interval{Lo: lo, Hi: hi}
	if err := (IntervalAlgebra{}).Validate(iv); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// IntervalAlgebra combines interval-valued probabilities. Bounds are
// monotone under multiplication and complement, so endpoint arithmetic is
// exact for the operations the propagator needs.
type IntervalAlgebra struct{}

func (IntervalAlgebra) Zero() Interval { return Interval{} }
func (IntervalAlgebra) One() Interval  { return Interval{Lo: 1, Hi: 1} }

func (IntervalAlgebra) And(a, b Interval) Interval {
	return Interval{Lo: a.Lo * b.Lo, Hi: a.Hi * b.Hi}
}

func (IntervalAlgebra) Add(a, b Interval) Interval {
	return Interval{Lo: min(1, a.Lo+b.Lo), Hi: min(1, a.Hi+b.Hi)}
}

func (IntervalAlgebra) Complement(a Interval) Interval {
	return Interval{Lo: 1 - a.Hi, Hi: 1 - a.Lo}
}

func (IntervalAlgebra) FromFloat(f float64) (Interval, error) {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return Interval{}, graph.NumericDomainError{Reason: fmt.Sprintf("probability %v outside [0,1]", f)}
	}
	return Interval{Lo: f, Hi: f}, nil
}

func (IntervalAlgebra) Validate(a Interval) error {
	if math.IsNaN(a.Lo) || math.IsNaN(a.Hi) || a.Lo < 0 || a.Hi > 1 || a.Lo > a.Hi {
		return graph.NumericDomainError{Reason: fmt.Sprintf("malformed interval [%v,%v]", a.Lo, a.Hi)}
	}
	return nil
}
