package matching

import (
	"errors"
	"fmt"
	"math"
)

// weightSumTolerance is how far the weight sum may drift from 1.0.
const weightSumTolerance = 1e-9

// ErrInvalidWeights is returned when a Weights value cannot be used for scoring.
var ErrInvalidWeights = errors.New("invalid matching weights")

// Weights defines the contribution of each factor to the total score.
type Weights struct {
	Expertise    float64
	Industry     float64
	Stage        float64
	Availability float64
}

// DefaultWeights returns the production weighting.
func DefaultWeights() Weights {
	return Weights{
		Expertise:    0.4,
		Industry:     0.3,
		Stage:        0.2,
		Availability: 0.1,
	}
}

// Validate checks that every weight is in [0,1] and that they sum to 1.0.
func (w Weights) Validate() error {
	factors := []struct {
		name  string
		value float64
	}{
		{"expertise", w.Expertise},
		{"industry", w.Industry},
		{"stage", w.Stage},
		{"availability", w.Availability},
	}

	sum := 0.0
	for _, f := range factors {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s weight %v must be between 0 and 1", ErrInvalidWeights, f.name, f.value)
		}
		sum += f.value
	}

	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %v, expected 1.0", ErrInvalidWeights, sum)
	}

	return nil
}
