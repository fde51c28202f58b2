package aqmsim

// red.go implements Random Early Detection.  Every decision samples the
// queue length, folds it into an exponentially weighted moving average,
// and maps the average onto a drop probability:
//
//	avg <= low          p = 0
//	low < avg <= high   p = maxDropProb * (avg - low) / (high - low)
//	avg > high          p = 1
//
// An arrival is admitted when a uniform draw d satisfies p <= d.  Short bursts
// barely move the average, so only sustained congestion produces drops.

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidRange is returned for a RED range with low < 0 or high <= low
	ErrInvalidRange = errors.New("invalid RED range")

	// ErrInvalidWeight is returned for a RED weight outside [0,1]
	ErrInvalidWeight = errors.New("invalid RED weight")
)

// U01Source draws uniform numbers in [0,1].  *rngstream.RngStream satisfies it.
type U01Source interface {
	RandU01() float64
}

// REDParams carries the construction parameters of a RED policy
type REDParams struct {
	Low         float64     // average at or below which nothing is dropped
	High        float64     // average above which everything is dropped
	Weight      float64     // smoothing weight of the latest sample
	MaxDropProb Probability // drop probability reached at High
}

// Validate applies the range checks on the parameters
func (rp REDParams) Validate() error {
	if math.IsNaN(rp.Low) || rp.Low < 0.0 {
		return errors.Wrapf(ErrInvalidRange, "low %v is negative", rp.Low)
	}
	if math.IsNaN(rp.High) || !(rp.High > rp.Low) {
		return errors.Wrapf(ErrInvalidRange, "high %v must exceed low %v", rp.High, rp.Low)
	}
	if math.IsNaN(rp.Weight) || rp.Weight < 0.0 || rp.Weight > 1.0 {
		return errors.Wrapf(ErrInvalidWeight, "weight %v not in [0,1]", rp.Weight)
	}
	return nil
}

// RandomEarlyDetection is the RED admission policy.  Its average is mutated on
// every decision; the policy is owned by the single admission manager goroutine.
type RandomEarlyDetection struct {
	sample func() float64 // reads the current queue length
	params REDParams
	rng    U01Source

	avg   float64 // running weighted average of the queue length
	state PolicyState
}

// CreateRED is a constructor for a RED policy sampling queue
func CreateRED(queue QueueView, params REDParams, rng U01Source) (*RandomEarlyDetection, error) {
	sample := func() float64 { return float64(queue.Len()) }
	return CreateREDFromSampler(sample, params, rng)
}

// CreateREDFromSampler builds a RED policy on an arbitrary occupancy sampler.
// The average starts at the occupancy observed now.
func CreateREDFromSampler(sample func() float64, params REDParams, rng U01Source) (*RandomEarlyDetection, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	red := new(RandomEarlyDetection)
	red.sample = sample
	red.params = params
	red.rng = rng
	red.avg = sample()
	red.state = PolicyState{Name: REDName, Average: red.avg}
	return red, nil
}

func (red *RandomEarlyDetection) Name() string { return REDName }

// Params returns the construction parameters
func (red *RandomEarlyDetection) Params() REDParams {
	return red.params
}

// Average returns the current smoothed queue length
func (red *RandomEarlyDetection) Average() float64 {
	return red.avg
}

// Decide updates the average and admits with probability 1 - p
func (red *RandomEarlyDetection) Decide() bool {
	length := red.sample()
	red.avg = ewma(red.avg, length, red.params.Weight)
	p := red.dropProb(red.avg)
	d := red.rng.RandU01()

	red.state = PolicyState{Name: REDName, Length: int(length), Average: red.avg, DropProb: p, Dice: d}
	return p <= d
}

func (red *RandomEarlyDetection) State() PolicyState {
	return red.state
}

// dropProb evaluates the piecewise linear drop curve at avg
func (red *RandomEarlyDetection) dropProb(avg float64) float64 {
	low, high := red.params.Low, red.params.High
	switch {
	case avg <= low:
		return 0.0
	case avg > high:
		return 1.0
	}
	return red.params.MaxDropProb.Value() * (avg - low) / (high - low)
}

// ewma blends sample into avg with the given weight
func ewma(avg, sample, weight float64) float64 {
	return (1.0-weight)*avg + weight*sample
}
