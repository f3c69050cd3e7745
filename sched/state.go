package sched

// State is the lifecycle state of a simulated process.
type State int

// The possible process states. A process enters the table as New, becomes
// Ready when admitted, Running while it owns the CPU, and Stopped when it is
// preempted or its quantum expires with work left. Completed is terminal.
// After Stop ends a run early, every process that never completed also
// freezes as Stopped.
const (
	StateNew State = iota
	StateReady
	StateRunning
	StateStopped
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	case StateCompleted:
		return "Completed"
	}

	return "Unknown"
}

// Phase is the lifecycle phase of a Controller.
type Phase int

// The controller phases. Idle accepts processes and configuration. Running
// and Paused bracket an active run. Finished means the run drained all work;
// Stopped means Stop ended it early. Reset returns a terminal controller to
// Idle.
const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
	PhaseStopped
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseRunning:
		return "Running"
	case PhasePaused:
		return "Paused"
	case PhaseStopped:
		return "Stopped"
	case PhaseFinished:
		return "Finished"
	}

	return "Unknown"
}
