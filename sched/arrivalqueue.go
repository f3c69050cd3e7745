package sched

import (
	"container/heap"
	"sync"
)

// An arrival is a process waiting for the clock to reach its admission time.
type arrival struct {
	at   VTime
	seq  int
	proc *Process
}

// An arrivalQueue orders pending arrivals by time. Arrivals at the same time
// are admitted in the order they were scheduled.
type arrivalQueue struct {
	sync.Mutex
	arrivals arrivalHeap
}

func newArrivalQueue() *arrivalQueue {
	q := new(arrivalQueue)
	q.arrivals = make(arrivalHeap, 0)
	heap.Init(&q.arrivals)
	return q
}

// Push adds an arrival to the queue.
func (q *arrivalQueue) Push(a arrival) {
	q.Lock()
	heap.Push(&q.arrivals, a)
	q.Unlock()
}

// Pop returns the next earliest arrival.
func (q *arrivalQueue) Pop() arrival {
	q.Lock()
	a := heap.Pop(&q.arrivals).(arrival)
	q.Unlock()
	return a
}

// Len returns the number of pending arrivals.
func (q *arrivalQueue) Len() int {
	q.Lock()
	l := q.arrivals.Len()
	q.Unlock()
	return l
}

// PeekTime returns the time of the next arrival without removing it.
func (q *arrivalQueue) PeekTime() VTime {
	q.Lock()
	t := q.arrivals[0].at
	q.Unlock()
	return t
}

type arrivalHeap []arrival

func (h arrivalHeap) Len() int {
	return len(h)
}

func (h arrivalHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h arrivalHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *arrivalHeap) Push(x interface{}) {
	a := x.(arrival)
	*h = append(*h, a)
}

func (h *arrivalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	a := old[n-1]
	*h = old[0 : n-1]
	return a
}
