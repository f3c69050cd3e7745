package simulation

import (
	"github.com/sarchlab/schedsim/monitoring"
	"github.com/sarchlab/schedsim/recording"
	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/tracing"
)

// summaryTableName is the table Terminate writes the final metrics into.
const summaryTableName = "summary"

type summaryTableEntry struct {
	ProcID     int     `json:"proc_id"`
	ProcName   string  `json:"proc_name"`
	Priority   int     `json:"priority"`
	Arrival    float64 `json:"arrival"`
	Burst      float64 `json:"burst"`
	Completion float64 `json:"completion"`
	Waiting    float64 `json:"waiting"`
	Turnaround float64 `json:"turnaround"`
	Response   float64 `json:"response"`
}

// A Simulation owns one scheduler and the observers wired around it.
type Simulation struct {
	controller     *sched.Controller
	recorder       recording.DataRecorder
	dbTracer       *tracing.DBTracer
	busyTimeTracer *tracing.BusyTimeTracer
	monitor        *monitoring.Monitor
}

// Controller returns the scheduler of the simulation.
func (s *Simulation) Controller() *sched.Controller {
	return s.controller
}

// Recorder returns the data recorder, or nil when recording is off.
func (s *Simulation) Recorder() recording.DataRecorder {
	return s.recorder
}

// BusyTime returns the busy-time tracer of the simulation.
func (s *Simulation) BusyTime() *tracing.BusyTimeTracer {
	return s.busyTimeTracer
}

// Monitor returns the HTTP monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Terminate writes the metrics summary, flushes, and closes the recorder.
// Call it when the session is over.
func (s *Simulation) Terminate() {
	if s.recorder == nil {
		return
	}

	report := s.controller.MetricsReport()
	for _, m := range report.PerProcess {
		s.recorder.InsertData(summaryTableName, summaryTableEntry{
			ProcID:     m.ID,
			ProcName:   m.Name,
			Priority:   m.Priority,
			Arrival:    m.Arrival,
			Burst:      m.Burst,
			Completion: m.Completion,
			Waiting:    m.Waiting,
			Turnaround: m.Turnaround,
			Response:   m.Response,
		})
	}

	s.dbTracer.Terminate()

	err := s.recorder.Close()
	if err != nil {
		panic(err)
	}
}
