package tracing

import (
	"sync"

	"github.com/sarchlab/schedsim/sched"
)

// AverageSliceTracer keeps a running average of the executed slice lengths,
// a quick read on how finely the policy chops the CPU.
type AverageSliceTracer struct {
	filter SliceFilter

	lock        sync.Mutex
	averageTime sched.VTime
	inflight    map[string]Slice
	sliceCount  uint64
}

// NewAverageSliceTracer creates a new AverageSliceTracer.
func NewAverageSliceTracer(filter SliceFilter) *AverageSliceTracer {
	return &AverageSliceTracer{
		filter:   filter,
		inflight: make(map[string]Slice),
	}
}

// AverageTime returns the average length of the slices seen so far.
func (t *AverageSliceTracer) AverageTime() sched.VTime {
	t.lock.Lock()
	avg := t.averageTime
	t.lock.Unlock()
	return avg
}

// TotalCount returns the total number of slices seen so far.
func (t *AverageSliceTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.sliceCount
}

// StartSlice records the slice start.
func (t *AverageSliceTracer) StartSlice(slice Slice) {
	if t.filter != nil && !t.filter(slice) {
		return
	}

	t.lock.Lock()
	t.inflight[slice.ID] = slice
	t.lock.Unlock()
}

// EndSlice folds the finished slice into the running average.
func (t *AverageSliceTracer) EndSlice(slice Slice) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflight[slice.ID]
	if !ok {
		return
	}
	delete(t.inflight, slice.ID)

	length := slice.End - original.Start
	t.averageTime = sched.VTime(
		(float64(t.averageTime)*float64(t.sliceCount) + float64(length)) /
			float64(t.sliceCount+1))
	t.sliceCount++
}
