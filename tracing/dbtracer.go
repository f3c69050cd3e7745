package tracing

import (
	"sync"

	"github.com/sarchlab/schedsim/recording"
	"github.com/sarchlab/schedsim/sched"
	"github.com/tebeka/atexit"
)

type sliceTableEntry struct {
	ID        string  `json:"id"`
	ProcID    int     `json:"proc_id"`
	ProcName  string  `json:"proc_name"`
	Kind      string  `json:"kind"`
	Location  string  `json:"location"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Completed bool    `json:"completed"`
}

type lifecycleTableEntry struct {
	ProcID   int     `json:"proc_id"`
	ProcName string  `json:"proc_name"`
	What     string  `json:"what"`
	Location string  `json:"location"`
	Time     float64 `json:"time"`
}

// SliceTableName is the table DBTracer writes executed slices into.
const SliceTableName = "slices"

// LifecycleTableName is the table DBTracer writes lifecycle events into.
const LifecycleTableName = "lifecycle"

// DBTracer stores every executed slice and every lifecycle event in a
// database, one row each, through a recording backend. The rows are what
// post-run analysis and the comparison demos read back.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sched.TimeTeller
	backend    recording.DataRecorder

	startTime, endTime sched.VTime
	inflight           map[string]Slice
}

// NewDBTracer creates a DBTracer that writes through the given backend. The
// backend flushes when the tracer terminates and at process exit.
func NewDBTracer(
	timeTeller sched.TimeTeller,
	backend recording.DataRecorder,
) *DBTracer {
	t := &DBTracer{
		timeTeller: timeTeller,
		backend:    backend,
		inflight:   make(map[string]Slice),
	}

	backend.CreateTable(SliceTableName, sliceTableEntry{})
	backend.CreateTable(LifecycleTableName, lifecycleTableEntry{})

	atexit.Register(func() { t.backend.Flush() })

	return t
}

// SetTimeRange limits recording to slices that overlap [start, end].
func (t *DBTracer) SetTimeRange(start, end sched.VTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = start
	t.endTime = end
}

// StartSlice marks the start of a slice.
func (t *DBTracer) StartSlice(slice Slice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.endTime > 0 && slice.Start > t.endTime {
		return
	}

	t.inflight[slice.ID] = slice
}

// EndSlice writes the completed slice as one row.
func (t *DBTracer) EndSlice(slice Slice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	original, ok := t.inflight[slice.ID]
	if !ok {
		return
	}
	delete(t.inflight, slice.ID)

	if t.startTime > 0 && slice.End < t.startTime {
		return
	}

	original.End = slice.End
	original.Completed = slice.Completed

	t.backend.InsertData(SliceTableName, sliceTableEntry{
		ID:        original.ID,
		ProcID:    original.ProcID,
		ProcName:  original.ProcName,
		Kind:      original.Kind,
		Location:  original.Where,
		StartTime: float64(original.Start),
		EndTime:   float64(original.End),
		Completed: original.Completed,
	})
}

// RecordLifecycle writes one lifecycle event as one row.
func (t *DBTracer) RecordLifecycle(event LifecycleEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.InsertData(LifecycleTableName, lifecycleTableEntry{
		ProcID:   event.ProcID,
		ProcName: event.ProcName,
		What:     event.What,
		Location: event.Where,
		Time:     float64(event.Time),
	})
}

// Terminate drops the in-flight slices and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inflight = nil
	t.backend.Flush()
}
