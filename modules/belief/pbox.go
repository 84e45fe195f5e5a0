package belief

import (
	"fmt"
	"math"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// PBox bounds an uncertain probability with a discretized probability box:
// Lo[i] and Hi[i] bound the value at quantile i of a fixed grid. A
// degenerate p-box (Lo == Hi everywhere) is a scalar; a p-box constant
// across the grid is an interval.
type PBox struct {
	Lo []float64 `json:"lo"`
	Hi []float64 `json:"hi"`
}

// PBoxAlgebra combines p-boxes elementwise on a fixed quantile grid; every
// operation is the interval operation applied per grid point, which keeps
// the bounds conservative.
type PBoxAlgebra struct {
	Steps int
}

const DefaultPBoxSteps = 32

func (p PBoxAlgebra) steps() int {
	if p.Steps <= 0 {
		return DefaultPBoxSteps
	}
	return p.Steps
}

func (p PBoxAlgebra) constant(v float64) PBox {
	n := p.steps()
	b := PBox{Lo: make([]float64, n), Hi: make([]float64, n)}
	for i := range b.Lo {
		b.Lo[i] = v
		b.Hi[i] = v
	}
	return b
}

func (p PBoxAlgebra) Zero() PBox { return p.constant(0) }
func (p PBoxAlgebra) One() PBox  { return p.constant(1) }

func (p PBoxAlgebra) And(a, b PBox) PBox {
	n := p.steps()
	out := PBox{Lo: make([]float64, n), Hi: make([]float64, n)}
	for i := 0; i < n; i++ {
		out.Lo[i] = a.Lo[i] * b.Lo[i]
		out.Hi[i] = a.Hi[i] * b.Hi[i]
	}
	return out
}

func (p PBoxAlgebra) Add(a, b PBox) PBox {
	n := p.steps()
	out := PBox{Lo: make([]float64, n), Hi: make([]float64, n)}
	for i := 0; i < n; i++ {
		out.Lo[i] = min(1, a.Lo[i]+b.Lo[i])
		out.Hi[i] = min(1, a.Hi[i]+b.Hi[i])
	}
	return out
}

func (p PBoxAlgebra) Complement(a PBox) PBox {
	n := p.steps()
	out := PBox{Lo: make([]float64, n), Hi: make([]float64, n)}
	for i := 0; i < n; i++ {
		// Complementing swaps and reflects the bounding curves.
		out.Lo[i] = 1 - a.Hi[n-1-i]
		out.Hi[i] = 1 - a.Lo[n-1-i]
	}
	return out
}

func (p PBoxAlgebra) FromFloat(f float64) (PBox, error) {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return PBox{}, graph.NumericDomainError{Reason: fmt.Sprintf("probability %v outside [0,1]", f)}
	}
	return p.constant(f), nil
}

func (p PBoxAlgebra) Validate(a PBox) error {
	n := p.steps()
	if len(a.Lo) != n || len(a.Hi) != n {
		return graph.NumericDomainError{Reason: fmt.Sprintf("p-box has %d/%d steps, want %d", len(a.Lo), len(a.Hi), n)}
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(a.Lo[i]) || math.IsNaN(a.Hi[i]) || a.Lo[i] < 0 || a.Hi[i] > 1 || a.Lo[i] > a.Hi[i] {
			return graph.NumericDomainError{Reason: fmt.Sprintf("p-box bounds inverted at step %d: [%v,%v]", i, a.Lo[i], a.Hi[i])}
		}
	}
	return nil
}
