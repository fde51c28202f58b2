package aqmsim

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlCfg = `
name: red-run
capacity: 64
maxproducerdelay: 20
maxconsumerdelay: 40
mode: virtual
horizon: 30
policy:
  kind: red
  low: 5
  high: 15
  weight: 0.02
  maxdropprob: 0.1
`

const jsonCfg = `{"name": "threshold-run", "packets": 100, "policy": {"kind": "threshold", "threshold": 10}}`

func TestReadSimCfgYAML(t *testing.T) {
	cfg, err := ReadSimCfg("", true, []byte(yamlCfg))
	require.NoError(t, err)

	want := &SimCfg{
		Name:             "red-run",
		Capacity:         64,
		MaxProducerDelay: 20,
		MaxConsumerDelay: 40,
		Mode:             VirtualMode,
		Horizon:          30,
		Policy:           PolicyCfg{Kind: REDName, Low: 5, High: 15, Weight: 0.02, MaxDropProb: 0.1},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("unexpected configuration (-want +got):\n%s", diff)
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20*time.Millisecond, cfg.ProducerDelay())
	assert.Equal(t, 40*time.Millisecond, cfg.ConsumerDelay())
}

func TestReadSimCfgJSONKeepsDefaults(t *testing.T) {
	cfg, err := ReadSimCfg("", false, []byte(jsonCfg))
	require.NoError(t, err)

	assert.Equal(t, "threshold-run", cfg.Name)
	assert.Equal(t, DefaultCapacity, cfg.Capacity)
	assert.Equal(t, RealTimeMode, cfg.Mode)
	assert.Equal(t, 100, cfg.Packets)
	assert.Equal(t, PolicyCfg{Kind: ThresholdName, Threshold: 10}, cfg.Policy)
	require.NoError(t, cfg.Validate())
}

func TestReadSimCfgErrors(t *testing.T) {
	_, err := ReadSimCfg(filepath.Join(t.TempDir(), "missing.yaml"), true, nil)
	assert.Error(t, err)

	_, err = ReadSimCfg("", false, []byte("{not json"))
	assert.Error(t, err)
}

func TestSimCfgWriteAndRead(t *testing.T) {
	for _, ext := range []string{".yaml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			cfg := CreateSimCfg("roundtrip")
			cfg.Policy = PolicyCfg{Kind: REDName, Low: 1, High: 4, Weight: 0.5, MaxDropProb: 0.3}
			filename := filepath.Join(t.TempDir(), "cfg"+ext)

			require.NoError(t, cfg.WriteToFile(filename))
			read, err := ReadSimCfg(filename, UseYAML(filename), nil)
			require.NoError(t, err)
			assert.Equal(t, cfg, read)
		})
	}

	assert.Error(t, CreateSimCfg("x").WriteToFile(filepath.Join(t.TempDir(), "cfg.txt")))
}

func TestSimCfgValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *SimCfg)
		valid  bool
	}{
		{name: "defaults", modify: func(cfg *SimCfg) {}, valid: true},
		{name: "zero capacity", modify: func(cfg *SimCfg) { cfg.Capacity = 0 }},
		{name: "zero producer delay", modify: func(cfg *SimCfg) { cfg.MaxProducerDelay = 0 }},
		{name: "zero consumer delay", modify: func(cfg *SimCfg) { cfg.MaxConsumerDelay = 0 }},
		{name: "negative packets", modify: func(cfg *SimCfg) { cfg.Packets = -1 }},
		{name: "unknown mode", modify: func(cfg *SimCfg) { cfg.Mode = "batch" }},
		{name: "virtual without bound", modify: func(cfg *SimCfg) { cfg.Mode = VirtualMode }},
		{name: "virtual with packets", modify: func(cfg *SimCfg) { cfg.Mode = VirtualMode; cfg.Packets = 10 }, valid: true},
		{name: "unknown policy", modify: func(cfg *SimCfg) { cfg.Policy.Kind = "codel" }},
		{name: "negative threshold", modify: func(cfg *SimCfg) { cfg.Policy = PolicyCfg{Kind: ThresholdName, Threshold: -2} }},
		{name: "red negative low", modify: func(cfg *SimCfg) {
			cfg.Policy = PolicyCfg{Kind: REDName, Low: -1, High: 3, Weight: 0.1, MaxDropProb: 0.1}
		}},
		{name: "red maxp out of range", modify: func(cfg *SimCfg) {
			cfg.Policy = PolicyCfg{Kind: REDName, Low: 1, High: 3, Weight: 0.1, MaxDropProb: 1.5}
		}},
		{name: "red weight missing", modify: func(cfg *SimCfg) {
			cfg.Policy = PolicyCfg{Kind: REDName, Low: 1, High: 3, MaxDropProb: 0.1}
		}},
		{name: "red weight one", modify: func(cfg *SimCfg) {
			cfg.Policy = PolicyCfg{Kind: REDName, Low: 1, High: 2, Weight: 1.0, MaxDropProb: 1.0}
		}, valid: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := CreateSimCfg(tc.name)
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestBuildPolicy(t *testing.T) {
	q := CreateQueue(8)
	q.TryPush(1)
	q.TryPush(2)

	policy, err := (&PolicyCfg{Kind: AllGoInName}).BuildPolicy(q)
	require.NoError(t, err)
	assert.Equal(t, AllGoInName, policy.Name())

	policy, err = (&PolicyCfg{Kind: ThresholdName, Threshold: 2}).BuildPolicy(q)
	require.NoError(t, err)
	assert.Equal(t, ThresholdName, policy.Name())
	assert.False(t, policy.Decide())

	policy, err = (&PolicyCfg{Kind: REDName, Low: 4, High: 8, Weight: 0.5, MaxDropProb: 0.2}).BuildPolicy(q)
	require.NoError(t, err)
	red, ok := policy.(*RandomEarlyDetection)
	require.True(t, ok)
	assert.Equal(t, 2.0, red.Average())
	assert.True(t, red.Decide(), "below low is always admitted")

	_, err = (&PolicyCfg{Kind: REDName, Low: -4, High: 8, Weight: 0.5, MaxDropProb: 0.2}).BuildPolicy(q)
	assert.True(t, errors.Is(err, ErrInvalidRange), "got %v", err)

	_, err = (&PolicyCfg{Kind: REDName, Low: 4, High: 8, Weight: 0.5, MaxDropProb: -0.2}).BuildPolicy(q)
	assert.True(t, errors.Is(err, ErrOutOfRange), "got %v", err)

	_, err = (&PolicyCfg{Kind: "fifo"}).BuildPolicy(q)
	assert.True(t, errors.Is(err, ErrUnknownPolicy), "got %v", err)
}

func TestPolicyCfgRejectsAbsentWeight(t *testing.T) {
	cfg, err := ReadSimCfg("", true, []byte("policy:\n  kind: red\n  low: 1\n  high: 3\n  maxdropprob: 0.2\n"))
	require.NoError(t, err)

	err = cfg.Policy.Validate()
	assert.True(t, errors.Is(err, ErrInvalidWeight), "got %v", err)
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg.Policy.Weight = -0.5
	assert.True(t, errors.Is(cfg.Policy.Validate(), ErrInvalidWeight))
}
