package aqmsim

import (
	"context"

	"github.com/pkg/errors"
)

// RunExperiment is called from the module that creates and runs a
// simulation.  It validates cfg, builds the queue and the policy, runs the
// pipeline in the selected mode, writes the trace if one is asked for, and
// returns a summary of what happened.  The summary is gathered as events
// occur, so a run without a trace file holds no per-event state.  Events
// are also passed to extra.
func RunExperiment(ctx context.Context, cfg *SimCfg, extra ...Observer) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	traceMgr, collector, observers := experimentObservers(cfg, extra...)

	switch cfg.Mode {
	case VirtualMode:
		vt := CreateVirtualTraffic(cfg.Capacity, cfg.ProducerDelay(), cfg.ConsumerDelay(), observers)
		vt.SetPacketLimit(cfg.Packets)
		policy, err := cfg.Policy.BuildPolicy(vt.Queue())
		if err != nil {
			return Summary{}, errors.Wrap(err, "building policy")
		}
		horizon := cfg.Horizon
		if !(horizon > 0.0) {
			horizon = unlimitedHorizon
		}
		vt.Simulate(policy, horizon)

	default:
		tr := CreateTraffic(cfg.Capacity, cfg.ProducerDelay(), cfg.ConsumerDelay(), observers)
		tr.SetPacketLimit(cfg.Packets)
		policy, err := cfg.Policy.BuildPolicy(tr.Queue())
		if err != nil {
			return Summary{}, errors.Wrap(err, "building policy")
		}
		if err := tr.Simulate(ctx, policy); err != nil {
			return Summary{}, err
		}
	}

	if traceMgr.Active() {
		if err := traceMgr.WriteToFile(cfg.TraceFile); err != nil {
			return Summary{}, err
		}
	}
	return collector.Summary(), nil
}

// experimentObservers builds the observers of a run: the logger, the summary
// collector, a trace manager that keeps records only when cfg names a trace
// file, and any extra observers
func experimentObservers(cfg *SimCfg, extra ...Observer) (*TraceManager, *SummaryCollector, Observers) {
	traceMgr := CreateTraceManager(cfg.Name, len(cfg.TraceFile) > 0)
	collector := CreateSummaryCollector()
	observers := Observers{LogObserver{}, collector, traceMgr}
	observers = append(observers, extra...)
	return traceMgr, collector, observers
}

// horizon used in virtual mode when only a packet limit bounds the run, a year of virtual time
const unlimitedHorizon float64 = 365 * 24 * 3600.0
