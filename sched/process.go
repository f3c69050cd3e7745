package sched

// timeUnset marks a timestamp that has not been assigned yet.
const timeUnset VTime = -1

// DefaultPriority is the priority assigned when admission does not name one.
// Lower values are more urgent; DefaultPriority is the least urgent level
// the defaults use. Round-Robin records priorities but never consults them.
const DefaultPriority = 99

// A Process is one simulated process in a controller's table. The controller
// owns every field; policies hold references but never mutate them, so each
// transition is applied in one place, stamped with the virtual time at which
// it happened.
type Process struct {
	ID       int
	Name     string
	Priority int

	ArrivalTime    VTime
	BurstTime      VTime
	RemainingTime  VTime
	StartTime      VTime
	CompletionTime VTime

	State State
}

// Progress is the executed fraction of the burst, in [0, 1].
func (p *Process) Progress() float64 {
	return float64((p.BurstTime - p.RemainingTime) / p.BurstTime)
}

func (p *Process) snapshot() ProcessSnapshot {
	return ProcessSnapshot{
		ID:             p.ID,
		Name:           p.Name,
		Priority:       p.Priority,
		State:          p.State,
		ArrivalTime:    p.ArrivalTime,
		BurstTime:      p.BurstTime,
		RemainingTime:  p.RemainingTime,
		StartTime:      p.StartTime,
		CompletionTime: p.CompletionTime,
		Progress:       p.Progress(),
	}
}

// A ProcessSnapshot is an immutable copy of one process at a single point in
// virtual time, as published by Status and by hooks.
type ProcessSnapshot struct {
	ID             int
	Name           string
	Priority       int
	State          State
	ArrivalTime    VTime
	BurstTime      VTime
	RemainingTime  VTime
	StartTime      VTime
	CompletionTime VTime
	Progress       float64
}

// A Handle identifies a process that AddProcess accepted.
type Handle struct {
	ID    int
	Name  string
	State State
}

type processConfig struct {
	priority   int
	arriveAt   VTime
	hasArrival bool
}

// A ProcessOption adjusts one admission.
type ProcessOption func(*processConfig)

// WithPriority sets the priority of the admitted process. Lower values are
// more urgent. The Round-Robin policy records the value but ignores it.
func WithPriority(p int) ProcessOption {
	return func(c *processConfig) {
		c.priority = p
	}
}

// ArriveAt defers admission to the given virtual time. The process sits in
// the table as New until the clock reaches that time, then becomes Ready.
// Scheduling an arrival earlier than the current time is a ValidationError.
func ArriveAt(t VTime) ProcessOption {
	return func(c *processConfig) {
		c.arriveAt = t
		c.hasArrival = true
	}
}
