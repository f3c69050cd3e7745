// Package simulation wires a scheduler together with its observers: the
// data recorder, the slice and busy-time tracers, and the HTTP monitor. One
// Simulation is one ready-to-run session.
package simulation

import (
	"github.com/sarchlab/schedsim/monitoring"
	"github.com/sarchlab/schedsim/recording"
	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	name           string
	policy         sched.PolicyKind
	quantum        sched.VTime
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
}

// MakeBuilder creates a new builder with the default configuration: a
// Round-Robin scheduler with a quantum of one time unit, recording on, and
// monitoring on.
func MakeBuilder() Builder {
	return Builder{
		name:        "CPU",
		policy:      sched.PolicyRoundRobin,
		quantum:     1,
		monitorOn:   true,
		recordingOn: true,
	}
}

// WithName sets the scheduler name used in status output and traces.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithPolicy selects the scheduling policy.
func (b Builder) WithPolicy(kind sched.PolicyKind) Builder {
	b.policy = kind
	if kind == sched.PolicyPriority {
		b.quantum = 0
	}
	return b
}

// WithQuantum sets the Round-Robin quantum.
func (b Builder) WithQuantum(q sched.VTime) Builder {
	b.quantum = q
	return b
}

// WithoutMonitoring sets the simulation to not start the HTTP monitor.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithoutRecording sets the simulation to not record slices into a database.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{}

	s.controller = sched.MakeBuilder().
		WithName(b.name).
		WithPolicy(b.policy).
		WithQuantum(b.quantum).
		Build()

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "schedsim_run_" + s.controller.RunID()
		}
		s.recorder = recording.NewSQLiteRecorder(outputPath)
		s.recorder.CreateTable(summaryTableName, summaryTableEntry{})

		s.dbTracer = tracing.NewDBTracer(s.controller, s.recorder)
		tracing.Collect(s.controller, s.dbTracer)
	}

	s.busyTimeTracer = tracing.NewBusyTimeTracer(s.controller, nil)
	tracing.Collect(s.controller, s.busyTimeTracer)

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterController(s.controller)
		s.monitor.StartServer()
	}

	return s
}
