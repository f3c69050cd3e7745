package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks the progress of a run in virtual time units: the
// total admitted burst against the time already executed.
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      float64   `json:"total"`
	Finished   float64   `json:"finished"`
	InProgress float64   `json:"in_progress"`
}

// IncrementTotal grows the amount of work the bar spans.
func (b *ProgressBar) IncrementTotal(amount float64) {
	b.Lock()
	defer b.Unlock()

	b.Total += amount
}

// IncrementInProgress adds to the work currently executing.
func (b *ProgressBar) IncrementInProgress(amount float64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished adds a certain amount to the finished work.
func (b *ProgressBar) IncrementFinished(amount float64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the in-progress amount and increases the
// finished amount by the same quantity.
func (b *ProgressBar) MoveInProgressToFinished(amount float64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}
