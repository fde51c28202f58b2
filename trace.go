package aqmsim

import (
	"encoding/json"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/iti/evt/vrtime"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TraceRecord is the serializable form of one Event
type TraceRecord struct {
	Time     float64 `json:"time" yaml:"time"`   // seconds since the start of the run
	Ticks    int64   `json:"ticks" yaml:"ticks"` // ticks variable of time
	Kind     string  `json:"kind" yaml:"kind"`
	Packet   int     `json:"packet" yaml:"packet"`
	Outcome  string  `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	QueueLen int     `json:"qlen" yaml:"qlen"`
	Policy   string  `json:"policy,omitempty" yaml:"policy,omitempty"`
	Average  float64 `json:"average" yaml:"average"`
	DropProb float64 `json:"dropprob" yaml:"dropprob"`
	Dice     float64 `json:"dice" yaml:"dice"`
}

// TraceManager gathers a record of every event of a run.  When InUse is false
// it ignores what it is given, so it can be wired in unconditionally.
type TraceManager struct {
	mu sync.Mutex

	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// unique id of this run
	RunID string `json:"runid" yaml:"runid"`

	// all trace records for this run, in the order observed
	Records []TraceRecord `json:"records" yaml:"records"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.RunID = uuid.NewString()
	tm.Records = make([]TraceRecord, 0)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace stores a record stamped with vrt
func (tm *TraceManager) AddTrace(vrt vrtime.Time, rec TraceRecord) {
	if !tm.InUse {
		return
	}
	rec.Time = vrt.Seconds()
	rec.Ticks = vrt.Ticks()

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.Records = append(tm.Records, rec)
}

// Observe makes the TraceManager an Observer
func (tm *TraceManager) Observe(evt Event) {
	tm.AddTrace(evt.Time, recordOf(evt))
}

// recordOf maps an Event onto a TraceRecord, leaving the time fields unset
func recordOf(evt Event) TraceRecord {
	rec := TraceRecord{
		Kind:     evt.Kind.String(),
		Packet:   int(evt.Packet),
		Outcome:  evt.Outcome.String(),
		QueueLen: evt.QueueLen,
	}
	if evt.Kind == Arrival {
		rec.Policy = evt.Policy.Name
		rec.Average = evt.Policy.Average
		rec.DropProb = evt.Policy.DropProb
		rec.Dice = evt.Policy.Dice
	}
	return rec
}

// Snapshot returns a copy of the records gathered so far
func (tm *TraceManager) Snapshot() []TraceRecord {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return append([]TraceRecord(nil), tm.Records...)
}

// WriteToFile stores the trace to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tm *TraceManager) WriteToFile(filename string) error {
	if !tm.InUse {
		return nil
	}
	tm.mu.Lock()
	bytes, err := marshalByExt(filename, tm)
	written := len(tm.Records)
	tm.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, bytes, 0o644); err != nil {
		return errors.Wrapf(err, "writing trace %s", filename)
	}
	TraceLog.WithField("file", filename).Infof("wrote %d records", written)
	return nil
}

// ReadTrace deserializes a byte slice holding a representation of a TraceManager.
// If dict is empty the file whose name is given is read to acquire the bytes.
func ReadTrace(filename string, useYAML bool, dict []byte) (*TraceManager, error) {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "reading trace %s", filename)
		}
	}

	example := TraceManager{}
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decoding trace")
	}
	return &example, nil
}

// UseYAML reports whether the extension of filename selects yaml over json
func UseYAML(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// marshalByExt serializes v to yaml or json as chosen by the extension of filename
func marshalByExt(filename string, v any) ([]byte, error) {
	ext := strings.ToLower(path.Ext(filename))
	switch {
	case UseYAML(filename):
		return yaml.Marshal(v)
	case ext == ".json":
		return json.MarshalIndent(v, "", "\t")
	}
	return nil, errors.Errorf("%s: extension must be .yaml, .yml or .json", filename)
}
