package aqmsim

// vsim.go runs the same producer, admission manager and consumer as discrete
// events in virtual time.  Packet arrivals and consumer wake-ups are events
// scheduled on an evtm.EventManager; the manager is invoked synchronously by
// the arrival handler, which takes the place of the channel.  A run is
// deterministic for a given sequence of random streams, and covers hours of
// simulated traffic in moments.

import (
	"time"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// VirtualTraffic runs the pipeline in virtual time
type VirtualTraffic struct {
	pipeline
	evtMgr   *evtm.EventManager
	am       *AdmissionManager
	produced int  // packets generated so far
	stopped  bool // set when the packet limit is reached, stops the consumer too
}

// CreateVirtualTraffic is a constructor.  Delay bounds are interpreted as
// virtual durations.  A nil observer discards events.
func CreateVirtualTraffic(capacity int, maxProducerDelay, maxConsumerDelay time.Duration,
	observer Observer) *VirtualTraffic {

	vt := new(VirtualTraffic)
	vt.init(capacity, maxProducerDelay, maxConsumerDelay, observer)
	return vt
}

// Simulate schedules the first producer and consumer events and runs the
// event manager until horizon seconds of virtual time have passed, or until
// the packet limit is reached and the pending events are exhausted.
func (vt *VirtualTraffic) Simulate(policy AdmissionPolicy, horizon float64) {
	vt.evtMgr = evtm.New()
	vt.produced = 0
	vt.stopped = false
	vt.am = CreateAdmissionManager(vt.queue, policy, vt.observer, vt.evtMgr.CurrentTime)

	MainLog.WithField("policy", policy.Name()).Infof("virtual simulation starts, queue capacity %d, horizon %gs",
		vt.queue.Capacity(), horizon)

	vt.evtMgr.Schedule(vt, nil, packetArrival,
		vrtime.SecondsToTime(uniformDelay(vt.producerRng, vt.maxProducerDelay).Seconds()))
	vt.evtMgr.Schedule(vt, nil, consumerWakeup,
		vrtime.SecondsToTime(uniformDelay(vt.consumerRng, vt.maxConsumerDelay).Seconds()))

	vt.evtMgr.Run(horizon)
	MainLog.Infof("virtual simulation stopped at %gs", vt.evtMgr.CurrentSeconds())
}

// packetArrival is the event handler for the generation of a packet.  It
// hands the packet to the admission manager and schedules the next arrival.
func packetArrival(evtMgr *evtm.EventManager, context any, data any) any {
	vt := context.(*VirtualTraffic)
	if vt.stopped {
		return nil
	}

	pckt := vt.nextPacket()
	vt.produced += 1
	vt.observer.Observe(Event{Time: evtMgr.CurrentTime(), Kind: Produced, Packet: pckt, QueueLen: vt.queue.Len()})
	vt.am.Admit(pckt)

	if vt.packetLimit > 0 && vt.produced >= vt.packetLimit {
		ProducerLog.Infof("packet limit %d reached", vt.packetLimit)
		vt.stopped = true
		return nil
	}

	delay := uniformDelay(vt.producerRng, vt.maxProducerDelay).Seconds()
	evtMgr.Schedule(vt, nil, packetArrival, vrtime.SecondsToTime(delay))

	// event-handlers are required to return _something_
	return nil
}

// consumerWakeup is the event handler for the consumer ending a wait.  It pops
// one packet if there is one, and schedules the next wake-up.
func consumerWakeup(evtMgr *evtm.EventManager, context any, data any) any {
	vt := context.(*VirtualTraffic)
	if vt.stopped {
		return nil
	}

	if pckt, ok := vt.queue.TryPop(); ok {
		vt.observer.Observe(Event{Time: evtMgr.CurrentTime(), Kind: Consumed, Packet: pckt, QueueLen: vt.queue.Len()})
	}

	delay := uniformDelay(vt.consumerRng, vt.maxConsumerDelay).Seconds()
	evtMgr.Schedule(vt, nil, consumerWakeup, vrtime.SecondsToTime(delay))
	return nil
}
