package aqmsim

// event.go describes what the simulation reports as it runs.  The core
// emits one Produced event per generated packet, exactly one Arrival event
// per packet reaching the admission manager, and one Consumed event per
// successful pop.  Where events go is up to the Observer.

import (
	"sync"

	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// EventKind says which unit reported an event
type EventKind int

const (
	Produced EventKind = iota
	Arrival
	Consumed
)

var evtKindToStr map[EventKind]string = map[EventKind]string{Produced: "produced", Arrival: "arrival", Consumed: "consumed"}

func (ek EventKind) String() string {
	return evtKindToStr[ek]
}

// Outcome is the fate of a packet at the admission manager
type Outcome int

const (
	NoOutcome Outcome = iota

	// the policy accepted and the packet was pushed
	Admitted

	// the policy rejected the packet
	Discarded

	// the policy accepted but the queue was full by the time of the push
	Lost
)

var outcomeToStr map[Outcome]string = map[Outcome]string{NoOutcome: "", Admitted: "admitted",
	Discarded: "discarded", Lost: "lost"}

func (oc Outcome) String() string {
	return outcomeToStr[oc]
}

// Event is a structured report of one step of the simulation
type Event struct {
	Time     vrtime.Time // offset from the start of the run
	Kind     EventKind
	Packet   Packet
	Outcome  Outcome     // Arrival events only
	Policy   PolicyState // Arrival events only
	QueueLen int
	Queue    []Packet // queue contents after the step, Arrival events only
}

// Observer receives events.  Observe may be called from several goroutines at once.
type Observer interface {
	Observe(evt Event)
}

// Observers fans an event out to each member
type Observers []Observer

func (obs Observers) Observe(evt Event) {
	for _, ob := range obs {
		ob.Observe(evt)
	}
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

func (fn ObserverFunc) Observe(evt Event) { fn(evt) }

// LogObserver writes each event to the category logger of the unit that reported it
type LogObserver struct{}

func (LogObserver) Observe(evt Event) {
	switch evt.Kind {
	case Produced:
		ProducerLog.WithField("packet", evt.Packet).Debug("sending")

	case Arrival:
		entry := ManagerLog.WithFields(logrus.Fields{
			"packet":  evt.Packet,
			"outcome": evt.Outcome.String(),
			"avg":     evt.Policy.Average,
			"pdrop":   evt.Policy.DropProb,
			"dice":    evt.Policy.Dice,
			"qlen":    evt.QueueLen,
		})
		if Log.IsLevelEnabled(logrus.DebugLevel) {
			entry = entry.WithField("queue", evt.Queue)
		}
		if evt.Outcome == Lost {
			entry.Warn("queue full after admission")
			return
		}
		entry.Info(evt.Outcome.String())

	case Consumed:
		ConsumerLog.WithFields(logrus.Fields{"packet": evt.Packet, "qlen": evt.QueueLen}).Info("consumed")
	}
}

// EventCounter tallies events by kind and outcome
type EventCounter struct {
	mu       sync.Mutex
	kinds    map[EventKind]int
	outcomes map[Outcome]int
}

// CreateEventCounter is a constructor
func CreateEventCounter() *EventCounter {
	ec := new(EventCounter)
	ec.kinds = make(map[EventKind]int)
	ec.outcomes = make(map[Outcome]int)
	return ec
}

func (ec *EventCounter) Observe(evt Event) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.kinds[evt.Kind] += 1
	if evt.Kind == Arrival {
		ec.outcomes[evt.Outcome] += 1
	}
}

// Kind returns the number of events of kind ek seen so far
func (ec *EventCounter) Kind(ek EventKind) int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.kinds[ek]
}

// Outcome returns the number of arrivals with outcome oc seen so far
func (ec *EventCounter) Outcome(oc Outcome) int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.outcomes[oc]
}
