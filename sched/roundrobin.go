package sched

import (
	"container/list"
	"sync"
)

// A RoundRobin policy keeps ready processes in FIFO order and hands out the
// CPU in quantum-sized turns. A process whose quantum expires with work left
// re-enters at the tail; a process that finishes early simply leaves the
// rotation, so short bursts pay no penalty. Admission never preempts, and
// priorities are ignored.
type RoundRobin struct {
	lock    sync.RWMutex
	l       *list.List
	quantum VTime
}

// NewRoundRobin returns a RoundRobin policy with the given quantum.
func NewRoundRobin(quantum VTime) *RoundRobin {
	r := new(RoundRobin)
	r.l = list.New()
	r.quantum = quantum
	return r
}

// Kind returns PolicyRoundRobin.
func (r *RoundRobin) Kind() PolicyKind {
	return PolicyRoundRobin
}

// Enqueue appends a process at the tail of the rotation.
func (r *RoundRobin) Enqueue(p *Process) {
	r.lock.Lock()
	r.l.PushBack(p)
	r.lock.Unlock()
}

// Dequeue removes and returns the process at the head of the rotation.
func (r *RoundRobin) Dequeue() (*Process, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	front := r.l.Front()
	if front == nil {
		return nil, false
	}

	return r.l.Remove(front).(*Process), true
}

// SliceLength returns the quantum in force when the slice is dispatched.
func (r *RoundRobin) SliceLength(_ *Process) VTime {
	r.lock.RLock()
	q := r.quantum
	r.lock.RUnlock()
	return q
}

// Preempts always returns false. Round-Robin admissions wait for the next
// turn.
func (r *RoundRobin) Preempts(_, _ *Process) bool {
	return false
}

// Len returns the number of ready processes.
func (r *RoundRobin) Len() int {
	r.lock.RLock()
	l := r.l.Len()
	r.lock.RUnlock()
	return l
}

// Quantum returns the quantum in force.
func (r *RoundRobin) Quantum() VTime {
	r.lock.RLock()
	q := r.quantum
	r.lock.RUnlock()
	return q
}

// SetQuantum changes the quantum. Slices already dispatched keep the length
// they were dispatched with; only later slices see the new value.
func (r *RoundRobin) SetQuantum(q VTime) {
	r.lock.Lock()
	r.quantum = q
	r.lock.Unlock()
}
