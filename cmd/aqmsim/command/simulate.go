package command

import (
	"context"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iti/aqmsim"
)

// SimulateCommand runs one experiment, from a configuration file, from flags, or both
type SimulateCommand struct {
	Logger *log.Logger
}

type simulateFlags struct {
	config        string
	capacity      int
	producerDelay int
	consumerDelay int
	packets       int
	virtual       bool
	horizon       float64
	trace         string
	policy        string
	threshold     int
	low           float64
	high          float64
	weight        float64
	maxDropProb   float64
}

func (cmd SimulateCommand) Command(ctx context.Context) *cobra.Command {
	flags := &simulateFlags{}
	c := &cobra.Command{
		Use:   "simulate",
		Short: "run a producer/policy/consumer simulation",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := flags.simCfg(c)
			if err != nil {
				return err
			}
			return cmd.main(ctx, cfg)
		},
	}

	fs := c.Flags()
	fs.StringVarP(&flags.config, "config", "c", "", "configuration file (.yaml, .yml or .json)")
	fs.IntVar(&flags.capacity, "capacity", aqmsim.DefaultCapacity, "queue capacity")
	fs.IntVar(&flags.producerDelay, "producer-delay", 100, "producer max delay in ms")
	fs.IntVar(&flags.consumerDelay, "consumer-delay", 100, "consumer max delay in ms")
	fs.IntVarP(&flags.packets, "packets", "n", 0, "stop after this many packets, 0 for no limit")
	fs.BoolVar(&flags.virtual, "virtual", false, "run in virtual time")
	fs.Float64Var(&flags.horizon, "horizon", 0.0, "seconds of virtual time to simulate")
	fs.StringVarP(&flags.trace, "trace", "t", "", "write the trace to this file (.yaml, .yml or .json)")
	fs.StringVarP(&flags.policy, "policy", "p", aqmsim.AllGoInName, "admission policy: allgoin, threshold or red")
	fs.IntVar(&flags.threshold, "threshold", 10, "threshold policy: queue length at which packets are refused")
	fs.Float64Var(&flags.low, "low", 0.0, "red policy: low watermark")
	fs.Float64Var(&flags.high, "high", 0.0, "red policy: high watermark")
	fs.Float64Var(&flags.weight, "weight", 0.002, "red policy: smoothing weight")
	fs.Float64Var(&flags.maxDropProb, "maxp", 0.1, "red policy: drop probability at the high watermark")
	return c
}

// simCfg reads the configuration file if one is named, then applies the flags set explicitly
func (flags *simulateFlags) simCfg(c *cobra.Command) (*aqmsim.SimCfg, error) {
	cfg := aqmsim.CreateSimCfg("aqmsim")
	if len(flags.config) > 0 {
		read, err := aqmsim.ReadSimCfg(flags.config, aqmsim.UseYAML(flags.config), nil)
		if err != nil {
			return nil, err
		}
		cfg = read
	}

	fs := c.Flags()
	override := func(name string, apply func()) {
		if len(flags.config) == 0 || fs.Changed(name) {
			apply()
		}
	}
	override("capacity", func() { cfg.Capacity = flags.capacity })
	override("producer-delay", func() { cfg.MaxProducerDelay = flags.producerDelay })
	override("consumer-delay", func() { cfg.MaxConsumerDelay = flags.consumerDelay })
	override("packets", func() { cfg.Packets = flags.packets })
	override("horizon", func() { cfg.Horizon = flags.horizon })
	override("trace", func() { cfg.TraceFile = flags.trace })
	override("virtual", func() {
		cfg.Mode = aqmsim.RealTimeMode
		if flags.virtual {
			cfg.Mode = aqmsim.VirtualMode
		}
	})
	override("policy", func() { cfg.Policy.Kind = flags.policy })
	override("threshold", func() { cfg.Policy.Threshold = flags.threshold })
	override("low", func() { cfg.Policy.Low = flags.low })
	override("high", func() { cfg.Policy.High = flags.high })
	override("weight", func() { cfg.Policy.Weight = flags.weight })
	override("maxp", func() { cfg.Policy.MaxDropProb = flags.maxDropProb })
	return cfg, nil
}

func (cmd SimulateCommand) main(ctx context.Context, cfg *aqmsim.SimCfg) error {
	sum, err := aqmsim.RunExperiment(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "simulate")
	}
	logSummary(cmd.Logger, cfg.Name, sum)
	return nil
}

func logSummary(logger *log.Logger, name string, sum aqmsim.Summary) {
	logger.WithFields(log.Fields{
		"experiment": name,
		"produced":   sum.Produced,
		"arrivals":   sum.Arrivals,
		"admitted":   sum.Admitted,
		"discarded":  sum.Discarded,
		"lost":       sum.Lost,
		"consumed":   sum.Consumed,
		"accept":     sum.AcceptRatio,
		"meanqlen":   sum.MeanQueueLen,
		"stdqlen":    sum.StdQueueLen,
		"maxqlen":    sum.MaxQueueLen,
		"meanavg":    sum.MeanAverage,
		"meanpdrop":  sum.MeanDropProb,
	}).Info("summary")
}
