package tracing

import (
	"sync"

	"github.com/sarchlab/schedsim/sched"
)

// BusyTimeTracer accumulates the time the CPU spends executing slices. The
// scheduler runs one slice at a time, so slices never overlap and busy time
// is their plain sum; whatever the clock covers beyond that was idle.
type BusyTimeTracer struct {
	timeTeller sched.TimeTeller
	filter     SliceFilter

	lock     sync.Mutex
	busyTime sched.VTime
	inflight map[string]Slice
}

// NewBusyTimeTracer creates a new BusyTimeTracer.
func NewBusyTimeTracer(
	timeTeller sched.TimeTeller,
	filter SliceFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]Slice),
	}
}

// BusyTime returns the total time spent executing slices.
func (t *BusyTimeTracer) BusyTime() sched.VTime {
	t.lock.Lock()
	busy := t.busyTime
	t.lock.Unlock()
	return busy
}

// Utilization reports the fraction of virtual time the CPU was busy, as of
// the current time. It returns zero before the clock moves.
func (t *BusyTimeTracer) Utilization() float64 {
	now := t.timeTeller.CurrentTime()
	if now <= 0 {
		return 0
	}

	return float64(t.BusyTime() / now)
}

// StartSlice records the slice start.
func (t *BusyTimeTracer) StartSlice(slice Slice) {
	if t.filter != nil && !t.filter(slice) {
		return
	}

	t.lock.Lock()
	t.inflight[slice.ID] = slice
	t.lock.Unlock()
}

// EndSlice accounts the finished slice.
func (t *BusyTimeTracer) EndSlice(slice Slice) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflight[slice.ID]
	if !ok {
		return
	}
	delete(t.inflight, slice.ID)

	t.busyTime += slice.End - original.Start
}

// TerminateAllSlices accounts every in-flight slice up to now, for runs that
// Stop ended between a slice start and its end.
func (t *BusyTimeTracer) TerminateAllSlices(now sched.VTime) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for id, s := range t.inflight {
		if now > s.Start {
			t.busyTime += now - s.Start
		}
		delete(t.inflight, id)
	}
}
