package belief

import (
	"fmt"
	"math"

	"github.com/beliefdag/beliefdag/modules/graph"
)

// ProbAlgebra is the plain scalar probability domain.
type ProbAlgebra struct{}

func (ProbAlgebra) Zero() float64 { return 0 }
func (ProbAlgebra) One() float64  { return 1 }

func (ProbAlgebra) And(a, b float64) float64 { return a * b }
func (ProbAlgebra) Add(a, b float64) float64 { return a + b }

func (ProbAlgebra) Complement(a float64) float64 { return 1 - a }

func (ProbAlgebra) FromFloat(f float64) (float64, error) {
	if math.IsNaN(f) || f < 0 || f > 1 {
		return 0, graph.NumericDomainError{Reason: fmt.Sprintf("probability %v outside [0,1]", f)}
	}
	return f, nil
}

func (ProbAlgebra) Validate(a float64) error {
	_, err := ProbAlgebra{}.FromFloat(a)
	return err
}
