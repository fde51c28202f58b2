package aqmsim

// policy.go defines the admission policy abstraction consulted by the
// admission manager once per arriving packet, and the two simple policies.
// Random Early Detection lives in red.go.

// names under which the policies are known to configuration and traces
const (
	AllGoInName   string = "allgoin"
	ThresholdName string = "threshold"
	REDName       string = "red"
)

var policyKinds []string = []string{AllGoInName, ThresholdName, REDName}

// QueueView is the read-only face of a queue that policies sample
type QueueView interface {
	Len() int
}

// PolicyState is a snapshot of a policy's view at its most recent decision.
// Fields that a policy does not compute are left at zero.
type PolicyState struct {
	Name     string  `json:"name" yaml:"name"`
	Length   int     `json:"length" yaml:"length"`     // queue length sampled
	Average  float64 `json:"average" yaml:"average"`   // smoothed queue length
	DropProb float64 `json:"dropprob" yaml:"dropprob"` // probability of rejection
	Dice     float64 `json:"dice" yaml:"dice"`         // uniform draw compared against DropProb
}

// AdmissionPolicy decides whether the next arriving packet may enter the queue.
// Decide is called exactly once per arrival, before any push, and must not block.
// Implementations may mutate internal state and are driven by a single goroutine.
type AdmissionPolicy interface {
	Name() string
	Decide() bool
	State() PolicyState
}

// AllGoIn admits everything
type AllGoIn struct{}

func (AllGoIn) Name() string { return AllGoInName }

func (AllGoIn) Decide() bool { return true }

func (AllGoIn) State() PolicyState { return PolicyState{Name: AllGoInName} }

// Threshold admits a packet while the queue holds fewer than threshold packets
type Threshold struct {
	queue     QueueView
	threshold int
	lastLen   int
}

// CreateThreshold is a constructor
func CreateThreshold(queue QueueView, threshold int) *Threshold {
	return &Threshold{queue: queue, threshold: threshold}
}

func (th *Threshold) Name() string { return ThresholdName }

// Decide is true iff the current queue length is below the threshold
func (th *Threshold) Decide() bool {
	th.lastLen = th.queue.Len()
	return th.lastLen < th.threshold
}

func (th *Threshold) State() PolicyState {
	return PolicyState{Name: ThresholdName, Length: th.lastLen, Average: float64(th.lastLen)}
}
