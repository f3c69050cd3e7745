package tracing

import (
	"github.com/rs/xid"

	"github.com/sarchlab/schedsim/sched"
)

// A NamedHookable is a hook domain that carries a name, which becomes the
// Where field of the slices collected from it.
type NamedHookable interface {
	Name() string
	AcceptHook(hook sched.Hook)
}

// Collect lets the tracer collect slices from a scheduler. One Collect call
// serves one tracer; attach each tracer separately.
func Collect(domain NamedHookable, tracer Tracer) {
	h := &sliceHook{
		tracer: tracer,
		where:  domain.Name(),
	}
	domain.AcceptHook(h)
}

// A sliceHook translates scheduler hook events into tracer calls. The
// scheduler runs one slice at a time, so one in-flight slice suffices.
type sliceHook struct {
	tracer  Tracer
	where   string
	current Slice
}

// Func dispatches one hook event to the tracer.
func (h *sliceHook) Func(ctx sched.HookCtx) {
	switch ctx.Pos {
	case sched.HookPosSliceStart:
		info := ctx.Item.(sched.SliceInfo)
		h.current = Slice{
			ID:       xid.New().String(),
			ProcID:   info.Proc.ID,
			ProcName: info.Proc.Name,
			Kind:     "slice",
			Where:    h.where,
			Start:    info.Start,
			End:      info.End,
		}
		h.tracer.StartSlice(h.current)
	case sched.HookPosSliceEnd:
		info := ctx.Item.(sched.SliceInfo)
		h.current.End = info.End
		h.current.Completed = info.Completed
		h.tracer.EndSlice(h.current)
	case sched.HookPosProcessAdmitted:
		h.lifecycle(ctx, "admitted")
	case sched.HookPosProcessPreempted:
		h.lifecycle(ctx, "preempted")
	case sched.HookPosProcessCompleted:
		h.lifecycle(ctx, "completed")
	}
}

func (h *sliceHook) lifecycle(ctx sched.HookCtx, what string) {
	lt, ok := h.tracer.(LifecycleTracer)
	if !ok {
		return
	}

	p := ctx.Item.(sched.ProcessSnapshot)

	t := p.ArrivalTime
	switch what {
	case "preempted":
		t = ctx.Detail.(sched.ProcessSnapshot).ArrivalTime
	case "completed":
		t = p.CompletionTime
	}

	lt.RecordLifecycle(LifecycleEvent{
		ProcID:   p.ID,
		ProcName: p.Name,
		What:     what,
		Where:    h.where,
		Time:     t,
	})
}
