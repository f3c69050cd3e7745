package sched

import "fmt"

// A ValidationError reports caller input that the scheduler rejected. The
// rejected operation has no effect on scheduler state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// A ConfigurationError reports a policy or quantum setting that cannot be
// applied, either because the combination is unsupported or because the
// controller is in the middle of a run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// A StateError reports an operation attempted in a controller phase or
// process state that does not allow it.
type StateError struct {
	Op     string
	Phase  Phase
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while %s: %s", e.Op, e.Phase, e.Reason)
}
