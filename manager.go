package aqmsim

import (
	"github.com/iti/evt/vrtime"
)

// AdmissionManager applies a policy to arriving packets and pushes the
// admitted ones.  Decide and TryPush are separate critical sections: a packet
// the policy accepts can still meet a full queue, in which case it is lost
// and reported with the Lost outcome rather than as a policy rejection.
type AdmissionManager struct {
	queue    *Queue
	policy   AdmissionPolicy
	observer Observer
	clock    func() vrtime.Time
}

// CreateAdmissionManager is a constructor.  clock stamps the events reported to observer.
func CreateAdmissionManager(queue *Queue, policy AdmissionPolicy, observer Observer,
	clock func() vrtime.Time) *AdmissionManager {

	am := new(AdmissionManager)
	am.queue = queue
	am.policy = policy
	am.observer = observer
	am.clock = clock
	return am
}

// Admit runs one arrival through the policy and the queue, and reports it
func (am *AdmissionManager) Admit(pckt Packet) Outcome {
	outcome := Discarded
	if am.policy.Decide() {
		outcome = Admitted
		if !am.queue.TryPush(pckt) {
			outcome = Lost
		}
	}

	contents := am.queue.Snapshot()
	am.observer.Observe(Event{
		Time:     am.clock(),
		Kind:     Arrival,
		Packet:   pckt,
		Outcome:  outcome,
		Policy:   am.policy.State(),
		QueueLen: len(contents),
		Queue:    contents,
	})
	return outcome
}
