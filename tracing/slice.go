// Package tracing observes a scheduler through its hooks and accounts the
// executed CPU slices: into a database, as busy time, or as running
// averages.
package tracing

import "github.com/sarchlab/schedsim/sched"

// A Slice is one executed interval of CPU time, attributed to a process.
type Slice struct {
	ID       string      `json:"id"`
	ProcID   int         `json:"proc_id"`
	ProcName string      `json:"proc_name"`
	Kind     string      `json:"kind"`
	Where    string      `json:"where"`
	Start    sched.VTime `json:"start"`
	End      sched.VTime `json:"end"`

	// Completed is true when the process finished its burst in this slice.
	Completed bool `json:"completed"`
}

// Duration is the accounted length of the slice.
func (s Slice) Duration() sched.VTime {
	return s.End - s.Start
}

// A LifecycleEvent is one process state change worth recording: admission,
// preemption, or completion.
type LifecycleEvent struct {
	ProcID   int         `json:"proc_id"`
	ProcName string      `json:"proc_name"`
	What     string      `json:"what"`
	Where    string      `json:"where"`
	Time     sched.VTime `json:"time"`
}

// A SliceFilter selects interesting slices. If this function returns true,
// the slice is considered useful.
type SliceFilter func(s Slice) bool
