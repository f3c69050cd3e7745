package sched

// VTime is a logical simulation time in abstract time units. The scheduler
// advances VTime as slices execute; it never follows the wall clock.
type VTime float64

// timeEpsilon absorbs float rounding when deciding whether a remaining
// burst has been fully consumed.
const timeEpsilon VTime = 1e-9

// A TimeTeller can tell the current time.
type TimeTeller interface {
	CurrentTime() VTime
}
