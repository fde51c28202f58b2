package aqmsim

// queue.go holds the bounded FIFO of packets that sits between the
// admission manager and the consumer.  It is the only structure mutated
// by more than one unit of the simulation, so every access goes through
// a reader/writer lock; length queries from policies take the read side.

import (
	"fmt"
	"sync"

	"golang.org/x/exp/slices"
)

// DefaultCapacity is the queue size used when a configuration does not name one
const DefaultCapacity int = 1024

// Packet is the opaque payload that flows through the simulation
type Packet int

// Queue is a fixed-capacity FIFO of packets implemented as a ring buffer
type Queue struct {
	mu       sync.RWMutex
	buf      []Packet // storage, len(buf) == capacity
	head     int      // index of the oldest packet
	size     int      // number of packets held
	capacity int      // fixed at construction
}

// CreateQueue is a constructor.  A capacity smaller than one is a programming error.
func CreateQueue(capacity int) *Queue {
	if capacity < 1 {
		panic(fmt.Errorf("queue capacity %d must be positive", capacity))
	}
	q := new(Queue)
	q.capacity = capacity
	q.buf = make([]Packet, capacity)
	return q
}

// Capacity returns the maximum number of packets the queue holds
func (q *Queue) Capacity() int {
	return q.capacity
}

// Len returns the current occupancy
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.size
}

// TryPush appends pckt at the tail.  It returns false, leaving the queue
// unchanged, when the queue is full.
func (q *Queue) TryPush(pckt Packet) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == q.capacity {
		return false
	}
	q.buf[(q.head+q.size)%q.capacity] = pckt
	q.size += 1
	return true
}

// TryPop removes and returns the packet at the head of the queue.  The
// boolean is false when the queue is empty.
func (q *Queue) TryPop() (Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return 0, false
	}
	pckt := q.buf[q.head]
	q.head = (q.head + 1) % q.capacity
	q.size -= 1
	return pckt, true
}

// Snapshot returns a copy of the queue contents, oldest first
func (q *Queue) Snapshot() []Packet {
	q.mu.RLock()
	defer q.mu.RUnlock()

	// the held packets may wrap around the end of buf
	end := q.head + q.size
	if end <= q.capacity {
		return slices.Clone(q.buf[q.head:end])
	}
	contents := slices.Clone(q.buf[q.head:])
	return append(contents, q.buf[:end-q.capacity]...)
}
