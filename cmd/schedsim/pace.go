package main

import (
	"time"

	"github.com/sarchlab/schedsim/sched"
)

// A paceHook slows a demo down to watchable speed by sleeping after every
// accounted slice, proportionally to the slice length. The engine itself
// never sleeps; pacing is purely presentational.
type paceHook struct {
	perUnit time.Duration
}

func (h *paceHook) Func(ctx sched.HookCtx) {
	if ctx.Pos != sched.HookPosSliceEnd {
		return
	}

	s := ctx.Item.(sched.SliceInfo)
	time.Sleep(time.Duration(float64(s.End-s.Start) * float64(h.perUnit)))
}
