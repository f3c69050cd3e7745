package sched

import (
	"github.com/rs/xid"

	"github.com/sarchlab/schedsim/metrics"
)

// A Builder builds controllers.
type Builder struct {
	name    string
	kind    PolicyKind
	quantum VTime
}

// MakeBuilder returns a Builder with the default configuration: a
// Round-Robin policy with a quantum of one time unit.
func MakeBuilder() Builder {
	return Builder{
		name:    "CPU",
		kind:    PolicyRoundRobin,
		quantum: 1,
	}
}

// WithName sets the controller name used in status output and traces.
func (b Builder) WithName(n string) Builder {
	b.name = n
	return b
}

// WithPolicy selects the scheduling policy. Selecting the priority policy
// clears any quantum set so far; set the quantum after the policy when
// building a Round-Robin controller with a custom quantum.
func (b Builder) WithPolicy(k PolicyKind) Builder {
	b.kind = k
	if k == PolicyPriority {
		b.quantum = 0
	}
	return b
}

// WithQuantum sets the Round-Robin quantum.
func (b Builder) WithQuantum(q VTime) Builder {
	b.quantum = q
	return b
}

// Build creates the controller. An invalid policy and quantum combination
// panics; builders are wired by programmers, not end users. Use Configure
// for runtime reconfiguration with returned errors.
func (b Builder) Build() *Controller {
	pol, err := NewPolicy(b.kind, b.quantum)
	if err != nil {
		panic(err)
	}

	c := &Controller{
		name:     b.name,
		runID:    xid.New().String(),
		kind:     b.kind,
		quantum:  b.quantum,
		policy:   pol,
		byID:     make(map[int]*Process),
		nextID:   1,
		arrivals: newArrivalQueue(),
		agg:      metrics.NewAggregator(),
	}
	c.Hooks = make([]Hook, 0)

	return c
}
