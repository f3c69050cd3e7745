package tracing

// A Tracer can collect slice traces.
type Tracer interface {
	StartSlice(slice Slice)
	EndSlice(slice Slice)
}

// A LifecycleTracer additionally records process lifecycle events. Tracers
// that implement it receive admissions, preemptions, and completions next to
// the slices.
type LifecycleTracer interface {
	Tracer
	RecordLifecycle(event LifecycleEvent)
}
