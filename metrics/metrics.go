// Package metrics derives the classic scheduling metrics from completed
// processes: turnaround, waiting, and response time, per process and on
// average. Processes that never completed contribute nothing.
package metrics

import (
	"fmt"
	"strings"
	"sync"
)

// A ProcessRecord carries the timestamps of one completed process, in
// virtual time units.
type ProcessRecord struct {
	ID       int
	Name     string
	Priority int

	Arrival    float64
	Burst      float64
	Start      float64
	Completion float64
}

// ProcessMetrics is one completed process together with its derived metrics.
// Turnaround is the total stay in the system, waiting is the turnaround
// minus the executed burst, and response is the delay until the first
// dispatch.
type ProcessMetrics struct {
	ProcessRecord

	Turnaround float64
	Waiting    float64
	Response   float64
}

// ForProcess derives the metrics of one completed process.
func ForProcess(r ProcessRecord) ProcessMetrics {
	turnaround := r.Completion - r.Arrival

	return ProcessMetrics{
		ProcessRecord: r,
		Turnaround:    turnaround,
		Waiting:       turnaround - r.Burst,
		Response:      r.Start - r.Arrival,
	}
}

// A Report is the aggregate view over every completed process observed so
// far. The averages are meaningful only when HasData returns true.
type Report struct {
	PerProcess []ProcessMetrics

	AvgWaiting    float64
	AvgTurnaround float64
	AvgResponse   float64

	Completed int
}

// HasData reports whether any process completed. A report without data
// carries zero averages that mean nothing; String says so instead of
// printing them.
func (r Report) HasData() bool {
	return r.Completed > 0
}

// String renders the report as a table.
func (r Report) String() string {
	if !r.HasData() {
		return "No completed processes to report.\n"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%-4s %-16s %8s %8s %8s %10s %10s %8s %8s\n",
		"ID", "Name", "Priority", "Arrival", "Burst",
		"Completion", "Turnaround", "Waiting", "Response")

	for _, m := range r.PerProcess {
		fmt.Fprintf(&b, "%-4d %-16s %8d %8.2f %8.2f %10.2f %10.2f %8.2f %8.2f\n",
			m.ID, m.Name, m.Priority, m.Arrival, m.Burst,
			m.Completion, m.Turnaround, m.Waiting, m.Response)
	}

	fmt.Fprintf(&b, "Completed %d, avg waiting %.2f, avg turnaround %.2f, avg response %.2f\n",
		r.Completed, r.AvgWaiting, r.AvgTurnaround, r.AvgResponse)

	return b.String()
}

// An Aggregator collects completed processes and derives the aggregate
// report on demand. Observing the same process ID again replaces the earlier
// record, so reports stay idempotent no matter how often completions are
// republished or reports requested.
type Aggregator struct {
	mu    sync.Mutex
	byID  map[int]ProcessRecord
	order []int
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		byID: make(map[int]ProcessRecord),
	}
}

// Observe records one completed process.
func (a *Aggregator) Observe(r ProcessRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, seen := a.byID[r.ID]; !seen {
		a.order = append(a.order, r.ID)
	}
	a.byID[r.ID] = r
}

// Report derives the aggregate view over everything observed so far, in
// observation order.
func (a *Aggregator) Report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	rep := Report{Completed: len(a.order)}
	if rep.Completed == 0 {
		return rep
	}

	var sumWaiting, sumTurnaround, sumResponse float64
	for _, id := range a.order {
		m := ForProcess(a.byID[id])
		rep.PerProcess = append(rep.PerProcess, m)

		sumWaiting += m.Waiting
		sumTurnaround += m.Turnaround
		sumResponse += m.Response
	}

	n := float64(rep.Completed)
	rep.AvgWaiting = sumWaiting / n
	rep.AvgTurnaround = sumTurnaround / n
	rep.AvgResponse = sumResponse / n

	return rep
}

// Reset discards every observation.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.byID = make(map[int]ProcessRecord)
	a.order = nil
}
