package aqmsim

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExperimentVirtual(t *testing.T) {
	cfg := CreateSimCfg("virtual-red")
	cfg.Mode = VirtualMode
	cfg.Capacity = 32
	cfg.MaxProducerDelay = 10
	cfg.MaxConsumerDelay = 20
	cfg.Packets = 400
	cfg.TraceFile = filepath.Join(t.TempDir(), "trace.yaml")
	cfg.Policy = PolicyCfg{Kind: REDName, Low: 4, High: 12, Weight: 0.2, MaxDropProb: 0.3}

	counter := CreateEventCounter()
	sum, err := RunExperiment(context.Background(), cfg, counter)
	require.NoError(t, err)

	assert.Equal(t, 400, sum.Produced)
	assert.Equal(t, 400, sum.Arrivals)
	assert.Equal(t, sum.Arrivals, sum.Admitted+sum.Discarded+sum.Lost)
	assert.Greater(t, sum.Discarded, 0, "an overloaded queue triggers early drops")
	assert.LessOrEqual(t, sum.MaxQueueLen, 32)
	assert.Equal(t, counter.Kind(Arrival), sum.Arrivals)

	tm, err := ReadTrace(cfg.TraceFile, true, nil)
	require.NoError(t, err)
	assert.Equal(t, "virtual-red", tm.ExpName)
	assert.Equal(t, sum, Summarize(tm.Records))
}

func TestRunExperimentRealTime(t *testing.T) {
	cfg := CreateSimCfg("realtime-threshold")
	cfg.MaxProducerDelay = 2
	cfg.MaxConsumerDelay = 2
	cfg.Packets = 25
	cfg.Policy = PolicyCfg{Kind: ThresholdName, Threshold: 4}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sum, err := RunExperiment(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, 25, sum.Arrivals)
	assert.LessOrEqual(t, sum.MaxQueueLen, 4)
}

func TestRunExperimentRejectsInvalidConfig(t *testing.T) {
	cfg := CreateSimCfg("broken")
	cfg.Policy = PolicyCfg{Kind: REDName, Low: -1, High: 2, Weight: 0.1, MaxDropProb: 0.1}

	_, err := RunExperiment(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
}

func TestExperimentObserversKeepRecordsOnlyForTraceFile(t *testing.T) {
	cfg := CreateSimCfg("untraced")
	traceMgr, collector, observers := experimentObservers(cfg)
	for idx := 0; idx < 1000; idx++ {
		observers.Observe(Event{Kind: Arrival, Packet: Packet(idx % 100), Outcome: Admitted, QueueLen: idx % 8})
	}

	assert.False(t, traceMgr.Active())
	assert.Empty(t, traceMgr.Snapshot())
	assert.Len(t, collector.qlenCounts, 8, "queue lengths are held as a histogram")
	sum := collector.Summary()
	assert.Equal(t, 1000, sum.Arrivals)
	assert.Equal(t, 7, sum.MaxQueueLen)

	cfg.TraceFile = filepath.Join(t.TempDir(), "trace.json")
	traceMgr, _, observers = experimentObservers(cfg)
	observers.Observe(Event{Kind: Produced, Packet: 3})
	assert.True(t, traceMgr.Active())
	assert.Len(t, traceMgr.Snapshot(), 1)
}

func TestRunExperimentWithoutTraceFile(t *testing.T) {
	cfg := CreateSimCfg("virtual-untraced")
	cfg.Mode = VirtualMode
	cfg.Capacity = 16
	cfg.MaxProducerDelay = 5
	cfg.MaxConsumerDelay = 10
	cfg.Packets = 300
	cfg.Policy = PolicyCfg{Kind: ThresholdName, Threshold: 8}

	witness := CreateSummaryCollector()
	sum, err := RunExperiment(context.Background(), cfg, witness)
	require.NoError(t, err)

	assert.Equal(t, 300, sum.Produced)
	assert.Equal(t, 300, sum.Arrivals)
	assert.LessOrEqual(t, sum.MaxQueueLen, 8)
	assert.Equal(t, witness.Summary(), sum)
}
