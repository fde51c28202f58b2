package aqmsim

// traffic.go wires the real-time simulation: a producer goroutine feeding
// packets over a channel to the admission manager goroutine, which pushes
// admitted packets into the shared queue drained by a consumer goroutine.
// Producer and consumer sleep a uniformly distributed random delay between
// steps; the manager suspends only on the channel.
//
// All three goroutines share one cancellation context, and the first one to
// end cancels the other two, so a run always shuts down as a whole.

import (
	"context"
	"time"

	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrChannelClosed is returned by the manager unit when its channel closes
// while its context is still live.  Simulate never produces it: the
// producer, the only closer, cancels the run before closing.
var ErrChannelClosed = errors.New("packet channel closed")

// largest packet value generated, inclusive
const maxPacketValue int = 99

// pipeline holds what the real-time and virtual-time runs have in common:
// the shared queue, the delay bounds, the observer and one random stream per unit
type pipeline struct {
	queue            *Queue
	maxProducerDelay time.Duration
	maxConsumerDelay time.Duration
	packetLimit      int // number of packets to produce, 0 means no limit
	observer         Observer

	producerRng *rngstream.RngStream
	consumerRng *rngstream.RngStream
}

func (pl *pipeline) init(capacity int, maxProducerDelay, maxConsumerDelay time.Duration, observer Observer) {
	if observer == nil {
		observer = Observers{}
	}
	pl.queue = CreateQueue(capacity)
	pl.maxProducerDelay = maxProducerDelay
	pl.maxConsumerDelay = maxConsumerDelay
	pl.observer = observer
	pl.producerRng = rngstream.New("producer")
	pl.consumerRng = rngstream.New("consumer")
}

// Queue returns the queue shared by the manager and the consumer
func (pl *pipeline) Queue() *Queue {
	return pl.queue
}

// SetPacketLimit makes the producer stop, and with it the simulation, after n packets
func (pl *pipeline) SetPacketLimit(n int) {
	pl.packetLimit = n
}

// DefineThresholdPolicy returns a Threshold policy on the simulation's queue
func (pl *pipeline) DefineThresholdPolicy(threshold int) *Threshold {
	return CreateThreshold(pl.queue, threshold)
}

// DefineREDPolicy returns a RED policy on the simulation's queue, with its own random stream
func (pl *pipeline) DefineREDPolicy(params REDParams) (*RandomEarlyDetection, error) {
	return CreateRED(pl.queue, params, rngstream.New("red"))
}

// nextPacket draws the value of a new packet
func (pl *pipeline) nextPacket() Packet {
	return Packet(pl.producerRng.RandInt(0, maxPacketValue))
}

// Traffic runs the pipeline as three goroutines in wall-clock time
type Traffic struct {
	pipeline
}

// CreateTraffic is a constructor.  A nil observer discards events.
func CreateTraffic(capacity int, maxProducerDelay, maxConsumerDelay time.Duration, observer Observer) *Traffic {
	tr := new(Traffic)
	tr.init(capacity, maxProducerDelay, maxConsumerDelay, observer)
	return tr
}

// Simulate runs producer, admission manager and consumer until ctx is
// cancelled or the packet limit is reached, and returns nil when either
// ends the run.  The policy is handed to the manager goroutine and must not
// be used elsewhere while the run lasts.
func (tr *Traffic) Simulate(ctx context.Context, policy AdmissionPolicy) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	clock := func() vrtime.Time {
		return vrtime.SecondsToTime(time.Since(start).Seconds())
	}

	packets := make(chan Packet)
	am := CreateAdmissionManager(tr.queue, policy, tr.observer, clock)
	g, gctx := errgroup.WithContext(ctx)

	MainLog.WithField("policy", policy.Name()).Infof("simulation starts, queue capacity %d", tr.queue.Capacity())

	g.Go(func() error {
		err := tr.produce(gctx, packets, clock)

		// cancel before closing so the manager reads the close as a shutdown
		cancel()
		close(packets)
		return err
	})
	g.Go(func() error {
		defer cancel()
		return tr.manage(gctx, packets, am)
	})
	g.Go(func() error {
		defer cancel()
		return tr.consume(gctx, clock)
	})

	err := g.Wait()
	MainLog.Info("simulation stopped")
	return err
}

// produce sends random packets at random intervals
func (tr *Traffic) produce(ctx context.Context, packets chan<- Packet, clock func() vrtime.Time) error {
	for sent := 0; tr.packetLimit == 0 || sent < tr.packetLimit; sent++ {
		if !sleepCtx(ctx, uniformDelay(tr.producerRng, tr.maxProducerDelay)) {
			return nil
		}
		pckt := tr.nextPacket()
		tr.observer.Observe(Event{Time: clock(), Kind: Produced, Packet: pckt, QueueLen: tr.queue.Len()})

		select {
		case packets <- pckt:
		case <-ctx.Done():
			return nil
		}
	}
	ProducerLog.Infof("packet limit %d reached", tr.packetLimit)
	return nil
}

// manage passes every packet received through the admission manager
func (tr *Traffic) manage(ctx context.Context, packets <-chan Packet, am *AdmissionManager) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case pckt, ok := <-packets:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrChannelClosed
			}
			am.Admit(pckt)
		}
	}
}

// consume pops the queue at random intervals
func (tr *Traffic) consume(ctx context.Context, clock func() vrtime.Time) error {
	for {
		if !sleepCtx(ctx, uniformDelay(tr.consumerRng, tr.maxConsumerDelay)) {
			return nil
		}
		if pckt, ok := tr.queue.TryPop(); ok {
			tr.observer.Observe(Event{Time: clock(), Kind: Consumed, Packet: pckt, QueueLen: tr.queue.Len()})
		}
	}
}

// uniformDelay samples a duration uniformly from [0, bound)
func uniformDelay(rng *rngstream.RngStream, bound time.Duration) time.Duration {
	if bound <= 0 {
		return 0
	}
	return time.Duration(rng.RandU01() * float64(bound))
}

// sleepCtx waits for d, returning false if ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
