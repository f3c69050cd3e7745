package sched

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosProcessAdmitted triggers when a process joins the ready structure.
// The Item is the ProcessSnapshot of the admitted process.
var HookPosProcessAdmitted = &HookPos{Name: "ProcessAdmitted"}

// HookPosSliceStart triggers when a slice of CPU time is handed to a process,
// before the slice is accounted. The Item is a SliceInfo.
var HookPosSliceStart = &HookPos{Name: "SliceStart"}

// HookPosSliceEnd triggers after a slice has been accounted. The Item is a
// SliceInfo.
var HookPosSliceEnd = &HookPos{Name: "SliceEnd"}

// HookPosProcessPreempted triggers when an admission forces the running
// process off the CPU. The Item is the ProcessSnapshot of the preempted
// process; the Detail is the ProcessSnapshot of the process that displaced
// it.
var HookPosProcessPreempted = &HookPos{Name: "ProcessPreempted"}

// HookPosProcessCompleted triggers when a process finishes its burst. The
// Item is the final ProcessSnapshot.
var HookPosProcessCompleted = &HookPos{Name: "ProcessCompleted"}

// HookPosRunStarted triggers when Run begins draining work. The Item is the
// virtual time at which the run starts.
var HookPosRunStarted = &HookPos{Name: "RunStarted"}

// HookPosRunFinished triggers when Run returns, either because all work
// drained or because Stop ended it. The Item is the final virtual time; the
// Detail is the final controller phase.
var HookPosRunFinished = &HookPos{Name: "RunFinished"}

// A SliceInfo describes one executed interval of CPU time. A scheduling
// slice that an admission event splits shows up as several intervals, each
// whole and accounted.
type SliceInfo struct {
	Proc          ProcessSnapshot
	Start         VTime
	End           VTime
	FirstDispatch bool
	Completed     bool
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
