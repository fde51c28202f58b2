package aqmsim

import (
	"math"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned when a probability is built from a value outside [0,1]
var ErrOutOfRange = errors.New("probability out of range [0,1]")

// Probability is a real number in the closed interval [0,1].  The zero
// value is a valid probability of 0.
type Probability struct {
	p float64
}

// NewProbability validates p and wraps it
func NewProbability(p float64) (Probability, error) {
	if math.IsNaN(p) || p < 0.0 || p > 1.0 {
		return Probability{}, errors.Wrapf(ErrOutOfRange, "got %v", p)
	}
	return Probability{p: p}, nil
}

// MustProbability is NewProbability for constants known to be in range
func MustProbability(p float64) Probability {
	prob, err := NewProbability(p)
	if err != nil {
		panic(err)
	}
	return prob
}

// Value returns the wrapped number
func (prob Probability) Value() float64 {
	return prob.p
}
