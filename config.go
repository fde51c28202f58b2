package aqmsim

// config.go holds the description of an experiment: queue size, producer
// and consumer delay bounds, how long to run, and which admission policy to
// use with what parameters.  Like the other descriptors it is serializable
// to json and to yaml, and can be built in code or read from a file.

import (
	"encoding/json"
	"os"
	"time"

	"github.com/iti/rngstream"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidConfig is returned by SimCfg.Validate
	ErrInvalidConfig = errors.New("invalid simulation configuration")

	// ErrUnknownPolicy is returned when a policy kind is not recognized
	ErrUnknownPolicy = errors.New("unknown admission policy")
)

// run modes
const (
	RealTimeMode string = "realtime"
	VirtualMode  string = "virtual"
)

// PolicyCfg selects an admission policy and carries its parameters.
// Only the fields of the selected kind are consulted.
type PolicyCfg struct {
	Kind string `json:"kind" yaml:"kind"`

	// threshold policy
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	// red policy
	Low         float64 `json:"low,omitempty" yaml:"low,omitempty"`
	High        float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Weight      float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	MaxDropProb float64 `json:"maxdropprob,omitempty" yaml:"maxdropprob,omitempty"`
}

// SimCfg describes one simulation run
type SimCfg struct {
	Name     string `json:"name" yaml:"name"`
	Capacity int    `json:"capacity" yaml:"capacity"`

	// upper bounds, in milliseconds, of the uniformly distributed waits
	MaxProducerDelay int `json:"maxproducerdelay" yaml:"maxproducerdelay"`
	MaxConsumerDelay int `json:"maxconsumerdelay" yaml:"maxconsumerdelay"`

	// number of packets to produce before stopping, 0 for no limit
	Packets int `json:"packets" yaml:"packets"`

	// realtime or virtual
	Mode string `json:"mode" yaml:"mode"`

	// seconds of virtual time to simulate, virtual mode only
	Horizon float64 `json:"horizon" yaml:"horizon"`

	// file the trace is written to, empty for no trace
	TraceFile string `json:"tracefile,omitempty" yaml:"tracefile,omitempty"`

	Policy PolicyCfg `json:"policy" yaml:"policy"`
}

// CreateSimCfg is a constructor filling in defaults: a 1024 slot queue,
// real-time mode and the AllGoIn policy
func CreateSimCfg(name string) *SimCfg {
	cfg := new(SimCfg)
	cfg.Name = name
	cfg.Capacity = DefaultCapacity
	cfg.MaxProducerDelay = 100
	cfg.MaxConsumerDelay = 100
	cfg.Mode = RealTimeMode
	cfg.Policy = PolicyCfg{Kind: AllGoInName}
	return cfg
}

// ProducerDelay returns the producer's delay bound as a duration
func (cfg *SimCfg) ProducerDelay() time.Duration {
	return time.Duration(cfg.MaxProducerDelay) * time.Millisecond
}

// ConsumerDelay returns the consumer's delay bound as a duration
func (cfg *SimCfg) ConsumerDelay() time.Duration {
	return time.Duration(cfg.MaxConsumerDelay) * time.Millisecond
}

// Validate checks every field, gathering all the problems found into one error
func (cfg *SimCfg) Validate() error {
	errs := []error{}

	if cfg.Capacity < 1 {
		errs = append(errs, errors.Errorf("capacity %d must be positive", cfg.Capacity))
	}
	if cfg.MaxProducerDelay < 1 {
		errs = append(errs, errors.Errorf("producer delay %dms must be positive", cfg.MaxProducerDelay))
	}
	if cfg.MaxConsumerDelay < 1 {
		errs = append(errs, errors.Errorf("consumer delay %dms must be positive", cfg.MaxConsumerDelay))
	}
	if cfg.Packets < 0 {
		errs = append(errs, errors.Errorf("packet limit %d is negative", cfg.Packets))
	}

	switch cfg.Mode {
	case RealTimeMode:
	case VirtualMode:
		if !(cfg.Horizon > 0.0) && cfg.Packets == 0 {
			errs = append(errs, errors.New("virtual mode needs a positive horizon or a packet limit"))
		}
	default:
		errs = append(errs, errors.Errorf("mode %q is neither %q nor %q", cfg.Mode, RealTimeMode, VirtualMode))
	}

	if err := cfg.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Wrap(ErrInvalidConfig, ReportErrs(errs).Error())
}

// Validate checks the parameters of the selected policy kind
func (pc *PolicyCfg) Validate() error {
	if !slices.Contains(policyKinds, pc.Kind) {
		return errors.Wrapf(ErrUnknownPolicy, "%q", pc.Kind)
	}
	switch pc.Kind {
	case ThresholdName:
		if pc.Threshold < 0 {
			return errors.Errorf("threshold %d is negative", pc.Threshold)
		}
	case REDName:
		params, err := pc.REDParams()
		if err != nil {
			return err
		}
		// an absent weight decodes as 0, which would freeze the average
		if !(pc.Weight > 0.0) {
			return errors.Wrapf(ErrInvalidWeight, "weight %v must be positive", pc.Weight)
		}
		return params.Validate()
	}
	return nil
}

// REDParams converts the red fields into REDParams
func (pc *PolicyCfg) REDParams() (REDParams, error) {
	maxp, err := NewProbability(pc.MaxDropProb)
	if err != nil {
		return REDParams{}, errors.Wrap(err, "maxdropprob")
	}
	return REDParams{Low: pc.Low, High: pc.High, Weight: pc.Weight, MaxDropProb: maxp}, nil
}

// BuildPolicy creates the admission policy selected by pc, sampling queue.
// RED draws from a random stream of its own.
func (pc *PolicyCfg) BuildPolicy(queue QueueView) (AdmissionPolicy, error) {
	switch pc.Kind {
	case AllGoInName:
		return AllGoIn{}, nil

	case ThresholdName:
		return CreateThreshold(queue, pc.Threshold), nil

	case REDName:
		params, err := pc.REDParams()
		if err != nil {
			return nil, err
		}
		red, err := CreateRED(queue, params, rngstream.New("red"))
		if err != nil {
			return nil, err
		}
		return red, nil
	}
	return nil, errors.Wrapf(ErrUnknownPolicy, "%q", pc.Kind)
}

// WriteToFile stores the SimCfg to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cfg *SimCfg) WriteToFile(filename string) error {
	bytes, err := marshalByExt(filename, *cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, bytes, 0o644); err != nil {
		return errors.Wrapf(err, "writing configuration %s", filename)
	}
	return nil
}

// ReadSimCfg deserializes a byte slice holding a representation of a SimCfg.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  Fields absent from the input keep the defaults of CreateSimCfg.
func ReadSimCfg(filename string, useYAML bool, dict []byte) (*SimCfg, error) {
	var err error

	// if the dict slice of bytes is empty we get them from the file whose name is an argument
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "reading configuration %s", filename)
		}
	}

	cfg := CreateSimCfg(filename)
	if useYAML {
		err = yaml.Unmarshal(dict, cfg)
	} else {
		err = json.Unmarshal(dict, cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	CfgLog.WithField("name", cfg.Name).Debug("configuration read")
	return cfg, nil
}

// ReportErrs transforms a list of errors into one error whose message
// joins those of the list
func ReportErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, err := range errs[1:] {
		msg += ", " + err.Error()
	}
	return errors.New(msg)
}
