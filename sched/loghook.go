package sched

import (
	"log"
)

// A LogHook is a hook that is responsible for recording information from the
// run.
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks.
type LogHookBase struct {
	*log.Logger
}

// An EventLogger is a hook that prints one line per scheduling event. Demos
// attach it so a run reads as a timeline.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns an EventLogger that writes into the given logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger
	return h
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosProcessAdmitted:
		p := ctx.Item.(ProcessSnapshot)
		h.Printf("%8.2f, %s (%d) admitted, burst %.2f, priority %d",
			p.ArrivalTime, p.Name, p.ID, p.BurstTime, p.Priority)
	case HookPosSliceStart:
		s := ctx.Item.(SliceInfo)
		h.Printf("%8.2f, %s (%d) -> CPU until %.2f",
			s.Start, s.Proc.Name, s.Proc.ID, s.End)
	case HookPosSliceEnd:
		s := ctx.Item.(SliceInfo)
		if !s.Completed {
			h.Printf("%8.2f, %s (%d) yields, remaining %.2f",
				s.End, s.Proc.Name, s.Proc.ID, s.Proc.RemainingTime)
		}
	case HookPosProcessPreempted:
		p := ctx.Item.(ProcessSnapshot)
		q := ctx.Detail.(ProcessSnapshot)
		h.Printf("%8.2f, %s (%d) preempted by %s (%d), remaining %.2f",
			q.ArrivalTime, p.Name, p.ID, q.Name, q.ID, p.RemainingTime)
	case HookPosProcessCompleted:
		p := ctx.Item.(ProcessSnapshot)
		h.Printf("%8.2f, %s (%d) completed",
			p.CompletionTime, p.Name, p.ID)
	}
}
