package analysis

import (
	"math"

	"github.com/sarchlab/schedsim/sched"
)

// A ReadyQueueSource is a scheduler that exposes its ready-queue depth. The
// analyzer reads the depth after every hook event and integrates it over
// virtual time.
type ReadyQueueSource interface {
	sched.TimeTeller
	Name() string
	ReadyCount() int
	AcceptHook(hook sched.Hook)
}

// QueueAnalyzer records the time-weighted average depth of the ready queue,
// one PerfEntry per period. It hooks into the scheduler and never changes
// scheduling behavior.
type QueueAnalyzer struct {
	PerfLogger
	source ReadyQueueSource

	usePeriod bool
	period    sched.VTime

	lastTime        sched.VTime
	lastLevel       int
	periodStart     sched.VTime
	levelToDuration map[int]sched.VTime
}

// Func records a ready-queue level change.
func (a *QueueAnalyzer) Func(ctx sched.HookCtx) {
	now := a.source.CurrentTime()

	if ctx.Pos == sched.HookPosRunFinished {
		a.finalize(now)
		return
	}

	a.accumulate(now)
	a.lastLevel = a.source.ReadyCount()
}

// accumulate charges the standing level from lastTime to now, emitting one
// entry every time a period boundary is crossed.
func (a *QueueAnalyzer) accumulate(now sched.VTime) {
	if !a.usePeriod {
		a.levelToDuration[a.lastLevel] += now - a.lastTime
		a.lastTime = now
		return
	}

	for a.lastTime < now {
		boundary := a.periodEndTime(a.lastTime)
		segmentEnd := minTime(boundary, now)

		a.levelToDuration[a.lastLevel] += segmentEnd - a.lastTime
		a.lastTime = segmentEnd

		if segmentEnd == boundary {
			a.emitPeriod(boundary-a.period, boundary)
			a.levelToDuration = make(map[int]sched.VTime)
			a.periodStart = boundary
		}
	}
}

func (a *QueueAnalyzer) emitPeriod(start, end sched.VTime) {
	sumLevel := 0.0
	sumDuration := 0.0
	for level, duration := range a.levelToDuration {
		sumLevel += float64(level) * float64(duration)
		sumDuration += float64(duration)
	}

	if sumDuration == 0 {
		return
	}

	avgLevel := sumLevel / sumDuration
	if avgLevel == 0 {
		return
	}

	a.AddDataEntry(PerfEntry{
		Start: start,
		End:   end,
		Where: a.source.Name(),
		What:  "ReadyQueueDepth",
		Value: avgLevel,
		Unit:  "procs",
	})
}

// finalize closes the trailing, possibly partial period when the run ends
// and flushes the logger.
func (a *QueueAnalyzer) finalize(now sched.VTime) {
	a.accumulate(now)
	a.emitPeriod(a.periodStart, now)
	a.levelToDuration = make(map[int]sched.VTime)
	a.periodStart = now

	a.Flush()
}

func (a *QueueAnalyzer) periodEndTime(t sched.VTime) sched.VTime {
	return sched.VTime(math.Floor(float64(t/a.period)))*a.period + a.period
}

func minTime(a, b sched.VTime) sched.VTime {
	if a < b {
		return a
	}

	return b
}

// QueueAnalyzerBuilder can build a QueueAnalyzer.
type QueueAnalyzerBuilder struct {
	perfLogger PerfLogger
	source     ReadyQueueSource
	usePeriod  bool
	period     sched.VTime
}

// MakeQueueAnalyzerBuilder creates a QueueAnalyzerBuilder.
func MakeQueueAnalyzerBuilder() QueueAnalyzerBuilder {
	return QueueAnalyzerBuilder{}
}

// WithPerfLogger sets the PerfLogger to use.
func (b QueueAnalyzerBuilder) WithPerfLogger(
	perfLogger PerfLogger,
) QueueAnalyzerBuilder {
	b.perfLogger = perfLogger
	return b
}

// WithController sets the scheduler whose ready queue is analyzed.
func (b QueueAnalyzerBuilder) WithController(
	source ReadyQueueSource,
) QueueAnalyzerBuilder {
	b.source = source
	return b
}

// WithPeriod sets the sampling period. Without a period the whole run is one
// sample.
func (b QueueAnalyzerBuilder) WithPeriod(
	period sched.VTime,
) QueueAnalyzerBuilder {
	b.usePeriod = true
	b.period = period
	return b
}

// Build creates the QueueAnalyzer and hooks it into the scheduler.
func (b QueueAnalyzerBuilder) Build() *QueueAnalyzer {
	if b.perfLogger == nil {
		panic("perfLogger is not set")
	}

	if b.source == nil {
		panic("controller is not set")
	}

	if b.usePeriod && b.period <= 0 {
		panic("period must be positive")
	}

	a := &QueueAnalyzer{
		PerfLogger:      b.perfLogger,
		source:          b.source,
		usePeriod:       b.usePeriod,
		period:          b.period,
		levelToDuration: make(map[int]sched.VTime),
	}

	b.source.AcceptHook(a)

	return a
}
