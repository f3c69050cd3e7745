package sched

// PolicyKind names one of the scheduling policies the controller can carry.
// The set is closed; NewPolicy switches over it exhaustively.
type PolicyKind int

const (
	// PolicyRoundRobin shares the CPU in quantum-sized turns, FIFO order.
	PolicyRoundRobin PolicyKind = iota

	// PolicyPriority runs the most urgent ready process first and lets a
	// more urgent admission preempt the running one.
	PolicyPriority
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyRoundRobin:
		return "RoundRobin"
	case PolicyPriority:
		return "Priority"
	}

	return "Unknown"
}

// ParsePolicyKind maps the names used on the command line and the wire to a
// PolicyKind.
func ParsePolicyKind(s string) (PolicyKind, bool) {
	switch s {
	case "rr", "roundrobin", "RoundRobin":
		return PolicyRoundRobin, true
	case "priority", "Priority":
		return PolicyPriority, true
	}

	return 0, false
}

// A Policy owns the ready structure and the dispatch decisions. It never
// touches process state or timestamps; the controller applies every
// transition the policy implies.
type Policy interface {
	// Kind names the policy.
	Kind() PolicyKind

	// Enqueue places a process into the ready structure. Admission and
	// requeue-after-preemption use the same ordering rule.
	Enqueue(p *Process)

	// Dequeue removes and returns the next process to dispatch. The second
	// return value is false when the ready structure is empty.
	Dequeue() (*Process, bool)

	// SliceLength returns how long the dispatched process may hold the CPU.
	// The controller clamps the value to the remaining burst.
	SliceLength(p *Process) VTime

	// Preempts reports whether admitting incoming must stop running.
	Preempts(incoming, running *Process) bool

	// Len returns the number of ready processes.
	Len() int
}

// NewPolicy builds the policy for the given kind. Round-Robin requires a
// positive quantum; the priority policy takes no quantum and rejects one.
func NewPolicy(kind PolicyKind, quantum VTime) (Policy, error) {
	switch kind {
	case PolicyRoundRobin:
		if quantum <= 0 {
			return nil, &ConfigurationError{
				Reason: "Round-Robin requires a positive quantum",
			}
		}
		return NewRoundRobin(quantum), nil
	case PolicyPriority:
		if quantum != 0 {
			return nil, &ConfigurationError{
				Reason: "the priority policy does not take a quantum",
			}
		}
		return NewPriority(), nil
	}

	return nil, &ConfigurationError{
		Reason: "unknown policy kind " + kind.String(),
	}
}
