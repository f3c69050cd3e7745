package sched

import (
	"container/heap"
	"sync"
)

// A Priority policy keeps ready processes in a heap ordered by (priority,
// arrival time, id), most urgent first. Lower priority values are more
// urgent; the arrival-time component makes equal priorities run first come,
// first served, and the id component makes the order total so repeated
// insertion is stable. A dispatched process runs to completion unless a more
// urgent admission preempts it.
type Priority struct {
	lock  sync.RWMutex
	procs procHeap
}

// NewPriority returns an empty Priority policy.
func NewPriority() *Priority {
	p := new(Priority)
	p.procs = make(procHeap, 0)
	heap.Init(&p.procs)
	return p
}

// Kind returns PolicyPriority.
func (p *Priority) Kind() PolicyKind {
	return PolicyPriority
}

// Enqueue places a process into the heap. A preempted process keeps its
// original arrival time, so it resumes ahead of later arrivals of the same
// priority.
func (p *Priority) Enqueue(proc *Process) {
	p.lock.Lock()
	heap.Push(&p.procs, proc)
	p.lock.Unlock()
}

// Dequeue removes and returns the most urgent ready process.
func (p *Priority) Dequeue() (*Process, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if len(p.procs) == 0 {
		return nil, false
	}

	return heap.Pop(&p.procs).(*Process), true
}

// SliceLength lets the dispatched process run to completion. Admission
// events end the slice early when they must.
func (p *Priority) SliceLength(proc *Process) VTime {
	return proc.RemainingTime
}

// Preempts reports whether the incoming process is strictly more urgent than
// the running one. Equal urgency never preempts.
func (p *Priority) Preempts(incoming, running *Process) bool {
	return incoming.Priority < running.Priority
}

// Len returns the number of ready processes.
func (p *Priority) Len() int {
	p.lock.RLock()
	l := len(p.procs)
	p.lock.RUnlock()
	return l
}

type procHeap []*Process

// Len returns the number of processes in the heap.
func (h procHeap) Len() int {
	return len(h)
}

// Less determines the dispatch order. The i-th process runs before the j-th
// if it is more urgent, arrived earlier at equal urgency, or was admitted
// earlier at equal urgency and arrival.
func (h procHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	if h[i].ArrivalTime != h[j].ArrivalTime {
		return h[i].ArrivalTime < h[j].ArrivalTime
	}
	return h[i].ID < h[j].ID
}

// Swap changes the position of two processes in the heap.
func (h procHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds a process into the heap.
func (h *procHeap) Push(x interface{}) {
	proc := x.(*Process)
	*h = append(*h, proc)
}

// Pop removes and returns the next process to dispatch.
func (h *procHeap) Pop() interface{} {
	old := *h
	n := len(old)
	proc := old[n-1]
	*h = old[0 : n-1]
	return proc
}
