package sched

import (
	"errors"
	"sync"
	"time"

	gomock "go.uber.org/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type hookFunc struct {
	f func(ctx HookCtx)
}

func (h hookFunc) Func(ctx HookCtx) {
	h.f(ctx)
}

// sliceCollector records every accounted interval.
type sliceCollector struct {
	mu     sync.Mutex
	slices []SliceInfo
}

func (c *sliceCollector) Func(ctx HookCtx) {
	if ctx.Pos != HookPosSliceEnd {
		return
	}
	c.mu.Lock()
	c.slices = append(c.slices, ctx.Item.(SliceInfo))
	c.mu.Unlock()
}

func (c *sliceCollector) all() []SliceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SliceInfo(nil), c.slices...)
}

type hookAt struct {
	pos *HookPos
}

func (m hookAt) Matches(x any) bool {
	ctx, ok := x.(HookCtx)
	return ok && ctx.Pos == m.pos
}

func (m hookAt) String() string {
	return "hook at " + m.pos.Name
}

var _ = Describe("Controller", func() {
	var collector *sliceCollector

	BeforeEach(func() {
		collector = new(sliceCollector)
	})

	Context("with the Round-Robin policy", func() {
		var c *Controller

		BeforeEach(func() {
			c = MakeBuilder().
				WithPolicy(PolicyRoundRobin).
				WithQuantum(2).
				Build()
			c.AcceptHook(collector)
		})

		It("should share the CPU in equal turns", func() {
			a, err := c.AddProcess("A", 5)
			Expect(err).To(BeNil())
			b, err := c.AddProcess("B", 3)
			Expect(err).To(BeNil())

			Expect(c.Run()).To(BeNil())

			pa, _ := c.Process(a.ID)
			pb, _ := c.Process(b.ID)

			Expect(pb.CompletionTime).To(BeNumerically("==", 7))
			Expect(pa.CompletionTime).To(BeNumerically("==", 8))
			Expect(pa.State).To(Equal(StateCompleted))
			Expect(pb.State).To(Equal(StateCompleted))

			slices := collector.all()
			Expect(slices).To(HaveLen(5))
			Expect(slices[0].Proc.ID).To(Equal(a.ID))
			Expect(slices[0].End - slices[0].Start).To(BeNumerically("==", 2))
			Expect(slices[3].Proc.ID).To(Equal(b.ID))
			Expect(slices[3].End - slices[3].Start).To(BeNumerically("==", 1))

			report := c.MetricsReport()
			Expect(report.Completed).To(Equal(2))
			Expect(report.AvgWaiting).To(BeNumerically("==", 3.5))
			Expect(report.AvgTurnaround).To(BeNumerically("==", 7.5))
			Expect(report.AvgResponse).To(BeNumerically("==", 1))
		})

		It("should reject a non-positive burst and insert nothing", func() {
			_, err := c.AddProcess("Broken", 0)

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("burstTime"))
			Expect(c.Status().Processes).To(BeEmpty())
		})

		It("should reject an empty name", func() {
			_, err := c.AddProcess("", 3)

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
		})

		It("should reject an arrival in the past", func() {
			_, err := c.AddProcess("Late", 3, ArriveAt(-1))

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("arrivalTime"))
		})

		It("should treat running an empty controller as a no-op", func() {
			Expect(c.Run()).To(BeNil())
			Expect(c.Status().Phase).To(Equal(PhaseIdle))
		})

		It("should treat running a finished controller as a no-op", func() {
			c.AddProcess("A", 1)
			Expect(c.Run()).To(BeNil())
			Expect(c.Status().Phase).To(Equal(PhaseFinished))

			Expect(c.Run()).To(BeNil())
			Expect(collector.all()).To(HaveLen(1))
		})

		It("should admit processes added during the run at the next boundary", func() {
			a, _ := c.AddProcess("A", 4)
			b, _ := c.AddProcess("B", 4)

			var once sync.Once
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos != HookPosSliceEnd {
					return
				}
				once.Do(func() {
					_, err := c.AddProcess("C", 2)
					Expect(err).To(BeNil())
				})
			}})

			Expect(c.Run()).To(BeNil())

			pa, _ := c.Process(a.ID)
			pb, _ := c.Process(b.ID)
			pc, _ := c.Process(3)

			Expect(pc.ArrivalTime).To(BeNumerically("==", 2))
			Expect(pa.CompletionTime).To(BeNumerically("==", 6))
			Expect(pc.StartTime).To(BeNumerically("==", 6))
			Expect(pc.CompletionTime).To(BeNumerically("==", 8))
			Expect(pb.CompletionTime).To(BeNumerically("==", 10))
		})

		It("should apply a quantum change to slices dispatched later", func() {
			c.AddProcess("A", 6)
			c.AddProcess("B", 2)

			var once sync.Once
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos != HookPosSliceEnd {
					return
				}
				once.Do(func() {
					Expect(c.SetQuantum(4)).To(BeNil())
				})
			}})

			Expect(c.Run()).To(BeNil())

			var lengths []VTime
			for _, s := range collector.all() {
				lengths = append(lengths, s.End-s.Start)
			}
			Expect(lengths).To(Equal([]VTime{2, 2, 4}))
		})

		It("should reject a non-positive quantum", func() {
			err := c.SetQuantum(0)

			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
		})

		It("should freeze the rest of the workload on stop", func() {
			a, _ := c.AddProcess("A", 2)
			b, _ := c.AddProcess("B", 5)
			d, _ := c.AddProcess("D", 5)

			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos != HookPosProcessCompleted {
					return
				}
				Expect(c.Stop()).To(BeNil())
			}})

			Expect(c.Run()).To(BeNil())

			st := c.Status()
			Expect(st.Phase).To(Equal(PhaseStopped))

			pa, _ := c.Process(a.ID)
			pb, _ := c.Process(b.ID)
			pd, _ := c.Process(d.ID)
			Expect(pa.State).To(Equal(StateCompleted))
			Expect(pb.State).To(Equal(StateStopped))
			Expect(pd.State).To(Equal(StateStopped))

			report := c.MetricsReport()
			Expect(report.Completed).To(Equal(1))
			Expect(report.AvgTurnaround).To(BeNumerically("==", 2))
		})

		It("should refuse new work after a stop until reset", func() {
			c.AddProcess("A", 3)
			c.AddProcess("B", 3)

			stopped := false
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos == HookPosSliceEnd && !stopped {
					stopped = true
					Expect(c.Stop()).To(BeNil())
				}
			}})
			Expect(c.Run()).To(BeNil())

			Expect(c.Status().Phase).To(Equal(PhaseStopped))
			_, err := c.AddProcess("C", 1)

			var serr *StateError
			Expect(errors.As(err, &serr)).To(BeTrue())

			Expect(c.Reset()).To(BeNil())
			_, err = c.AddProcess("C", 1)
			Expect(err).To(BeNil())
			Expect(c.Status().Now).To(BeNumerically("==", 0))
		})

		It("should run work that only arrives after an idle gap", func() {
			p, err := c.AddProcess("Late", 2, ArriveAt(3))
			Expect(err).To(BeNil())
			Expect(p.State).To(Equal(StateNew))

			Expect(c.Run()).To(BeNil())

			snap, _ := c.Process(p.ID)
			Expect(snap.ArrivalTime).To(BeNumerically("==", 3))
			Expect(snap.StartTime).To(BeNumerically("==", 3))
			Expect(snap.CompletionTime).To(BeNumerically("==", 5))

			report := c.MetricsReport()
			Expect(report.AvgWaiting).To(BeNumerically("==", 0))
			Expect(report.AvgResponse).To(BeNumerically("==", 0))
		})

		It("should report the same metrics every time", func() {
			c.AddProcess("A", 3)
			c.AddProcess("B", 2)
			Expect(c.Run()).To(BeNil())

			first := c.MetricsReport()
			second := c.MetricsReport()
			Expect(second).To(Equal(first))
		})

		It("should report no data when nothing completed", func() {
			report := c.MetricsReport()
			Expect(report.HasData()).To(BeFalse())
		})
	})

	Context("with the priority policy", func() {
		var c *Controller

		BeforeEach(func() {
			c = MakeBuilder().
				WithPolicy(PolicyPriority).
				Build()
			c.AcceptHook(collector)
		})

		It("should preempt the running process for a more urgent arrival", func() {
			low, err := c.AddProcess("LowPri", 3, WithPriority(10))
			Expect(err).To(BeNil())
			high, err := c.AddProcess("HighPri", 1,
				WithPriority(1), ArriveAt(1))
			Expect(err).To(BeNil())

			var preempted []ProcessSnapshot
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos == HookPosProcessPreempted {
					preempted = append(preempted,
						ctx.Item.(ProcessSnapshot))
				}
			}})

			Expect(c.Run()).To(BeNil())

			Expect(preempted).To(HaveLen(1))
			Expect(preempted[0].ID).To(Equal(low.ID))
			Expect(preempted[0].RemainingTime).To(BeNumerically("==", 2))

			phigh, _ := c.Process(high.ID)
			plow, _ := c.Process(low.ID)
			Expect(phigh.CompletionTime).To(BeNumerically("==", 2))
			Expect(plow.CompletionTime).To(BeNumerically("==", 4))
			Expect(plow.StartTime).To(BeNumerically("==", 0))

			report := c.MetricsReport()
			Expect(report.PerProcess[0].Waiting).To(BeNumerically("==", 0))
			Expect(report.PerProcess[1].Waiting).To(BeNumerically("==", 1))
		})

		It("should not interrupt the running process for lower urgency", func() {
			high, _ := c.AddProcess("High", 5, WithPriority(1))
			mid, _ := c.AddProcess("Mid", 2, WithPriority(9), ArriveAt(2))

			preemptions := 0
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos == HookPosProcessPreempted {
					preemptions++
				}
			}})

			Expect(c.Run()).To(BeNil())

			Expect(preemptions).To(Equal(0))

			phigh, _ := c.Process(high.ID)
			pmid, _ := c.Process(mid.ID)
			Expect(phigh.CompletionTime).To(BeNumerically("==", 5))
			Expect(pmid.StartTime).To(BeNumerically("==", 5))
			Expect(pmid.CompletionTime).To(BeNumerically("==", 7))

			var highSlices []SliceInfo
			for _, s := range collector.all() {
				if s.Proc.ID == high.ID {
					highSlices = append(highSlices, s)
				}
			}
			Expect(highSlices).To(HaveLen(2))
			Expect(highSlices[0].End).To(BeNumerically("==", 2))
			Expect(highSlices[1].End).To(BeNumerically("==", 5))
		})

		It("should never preempt for equal urgency", func() {
			first, _ := c.AddProcess("First", 3, WithPriority(5))
			second, _ := c.AddProcess("Second", 1, WithPriority(5), ArriveAt(1))

			preemptions := 0
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos == HookPosProcessPreempted {
					preemptions++
				}
			}})

			Expect(c.Run()).To(BeNil())

			Expect(preemptions).To(Equal(0))
			pfirst, _ := c.Process(first.ID)
			psecond, _ := c.Process(second.ID)
			Expect(pfirst.CompletionTime).To(BeNumerically("==", 3))
			Expect(psecond.CompletionTime).To(BeNumerically("==", 4))
		})

		It("should run equal priorities first come, first served", func() {
			a, _ := c.AddProcess("A", 1, WithPriority(5))
			b, _ := c.AddProcess("B", 1, WithPriority(5))

			Expect(c.Run()).To(BeNil())

			pa, _ := c.Process(a.ID)
			pb, _ := c.Process(b.ID)
			Expect(pa.CompletionTime).To(BeNumerically("==", 1))
			Expect(pb.CompletionTime).To(BeNumerically("==", 2))
		})

		It("should default omitted priorities to the least urgent level", func() {
			p, _ := c.AddProcess("Plain", 1)

			snap, _ := c.Process(p.ID)
			Expect(snap.Priority).To(Equal(DefaultPriority))
		})

		It("should reject a quantum change", func() {
			err := c.SetQuantum(2)

			var cerr *ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
		})
	})

	Context("when configuring", func() {
		It("should refuse to reconfigure mid-run", func() {
			c := MakeBuilder().WithQuantum(2).Build()
			c.AddProcess("A", 2)

			var confErr error
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos == HookPosSliceStart {
					confErr = c.Configure(PolicyPriority, 0)
				}
			}})

			Expect(c.Run()).To(BeNil())

			var cerr *ConfigurationError
			Expect(errors.As(confErr, &cerr)).To(BeTrue())
		})

		It("should refuse a Round-Robin policy without a positive quantum", func() {
			c := MakeBuilder().WithQuantum(2).Build()

			err := c.Configure(PolicyRoundRobin, 0)

			var cerr *ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
		})

		It("should refuse a quantum for the priority policy", func() {
			c := MakeBuilder().WithQuantum(2).Build()

			err := c.Configure(PolicyPriority, 3)

			var cerr *ConfigurationError
			Expect(errors.As(err, &cerr)).To(BeTrue())
		})

		It("should carry admitted processes over to the new policy", func() {
			c := MakeBuilder().WithQuantum(2).Build()
			relaxed, _ := c.AddProcess("Relaxed", 1, WithPriority(9))
			urgent, _ := c.AddProcess("Urgent", 1, WithPriority(1))
			middle, _ := c.AddProcess("Middle", 1, WithPriority(5))

			Expect(c.Configure(PolicyPriority, 0)).To(BeNil())
			Expect(c.Run()).To(BeNil())

			pu, _ := c.Process(urgent.ID)
			pm, _ := c.Process(middle.ID)
			pr, _ := c.Process(relaxed.ID)
			Expect(pu.StartTime).To(BeNumerically("==", 0))
			Expect(pm.StartTime).To(BeNumerically("==", 1))
			Expect(pr.StartTime).To(BeNumerically("==", 2))
		})

		It("should panic on an invalid builder combination", func() {
			Expect(func() {
				MakeBuilder().
					WithPolicy(PolicyPriority).
					WithQuantum(2).
					Build()
			}).To(Panic())
		})
	})

	Context("when pausing and resuming", func() {
		It("should refuse to pause without a run in progress", func() {
			c := MakeBuilder().WithQuantum(2).Build()

			err := c.Pause()

			var serr *StateError
			Expect(errors.As(err, &serr)).To(BeTrue())
		})

		It("should refuse to resume when not paused", func() {
			c := MakeBuilder().WithQuantum(2).Build()

			err := c.Resume()

			var serr *StateError
			Expect(errors.As(err, &serr)).To(BeTrue())
		})

		It("should freeze the run after the slice in flight", func() {
			c := MakeBuilder().WithQuantum(1).Build()
			c.AddProcess("A", 4)
			c.AddProcess("B", 4)

			firstSlice := make(chan struct{}, 16)
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos != HookPosSliceStart {
					return
				}
				firstSlice <- struct{}{}
				time.Sleep(20 * time.Millisecond)
			}})

			done := make(chan error, 1)
			go func() {
				done <- c.Run()
			}()

			<-firstSlice
			Expect(c.Pause()).To(BeNil())

			frozen := c.Status()
			Expect(frozen.Phase).To(Equal(PhasePaused))

			err := c.Run()
			var serr *StateError
			Expect(errors.As(err, &serr)).To(BeTrue())

			time.Sleep(50 * time.Millisecond)
			Expect(c.Status().Now).To(BeNumerically("==", frozen.Now))

			Expect(c.Resume()).To(BeNil())
			Expect(<-done).To(BeNil())
			Expect(c.Status().Phase).To(Equal(PhaseFinished))
			Expect(c.MetricsReport().Completed).To(Equal(2))
		})

		It("should stop a paused run", func() {
			c := MakeBuilder().WithQuantum(1).Build()
			c.AddProcess("A", 8)

			firstSlice := make(chan struct{}, 16)
			c.AcceptHook(hookFunc{f: func(ctx HookCtx) {
				if ctx.Pos != HookPosSliceStart {
					return
				}
				firstSlice <- struct{}{}
				time.Sleep(10 * time.Millisecond)
			}})

			done := make(chan error, 1)
			go func() {
				done <- c.Run()
			}()

			<-firstSlice
			Expect(c.Pause()).To(BeNil())
			Expect(c.Stop()).To(BeNil())

			Expect(<-done).To(BeNil())
			Expect(c.Status().Phase).To(Equal(PhaseStopped))
			Expect(c.MetricsReport().HasData()).To(BeFalse())
		})
	})

	Context("with a mocked policy", func() {
		var (
			mockCtrl *gomock.Controller
			pol      *MockPolicy
			c        *Controller
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			pol = NewMockPolicy(mockCtrl)
			c = MakeBuilder().WithQuantum(2).Build()
			c.policy = pol
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should finish when the policy reports idle", func() {
			adm := pol.EXPECT().Enqueue(gomock.Any())
			pol.EXPECT().Dequeue().Return(nil, false).After(adm)

			c.AddProcess("A", 1)
			Expect(c.Run()).To(BeNil())
			Expect(c.phaseSnapshot()).To(Equal(PhaseFinished))
		})

		It("should requeue expired slices until the burst drains", func() {
			var captured *Process

			adm := pol.EXPECT().Enqueue(gomock.Any()).
				Do(func(p *Process) { captured = p })
			d1 := pol.EXPECT().Dequeue().
				DoAndReturn(func() (*Process, bool) { return captured, true }).
				After(adm)
			r1 := pol.EXPECT().Enqueue(gomock.Any()).After(d1)
			d2 := pol.EXPECT().Dequeue().
				DoAndReturn(func() (*Process, bool) { return captured, true }).
				After(r1)
			r2 := pol.EXPECT().Enqueue(gomock.Any()).After(d2)
			d3 := pol.EXPECT().Dequeue().
				DoAndReturn(func() (*Process, bool) { return captured, true }).
				After(r2)
			pol.EXPECT().Dequeue().Return(nil, false).After(d3)
			pol.EXPECT().SliceLength(gomock.Any()).Return(VTime(2)).AnyTimes()

			c.AddProcess("A", 5)
			Expect(c.Run()).To(BeNil())

			Expect(captured.State).To(Equal(StateCompleted))
			Expect(captured.CompletionTime).To(BeNumerically("==", 5))
		})

		It("should panic when the policy dispatches a completed process", func() {
			finished := &Process{ID: 7, State: StateCompleted}

			adm := pol.EXPECT().Enqueue(gomock.Any())
			pol.EXPECT().Dequeue().Return(finished, true).After(adm)

			c.AddProcess("A", 1)
			Expect(func() { _ = c.Run() }).To(Panic())
		})
	})

	Context("hook order", func() {
		It("should publish the lifecycle of a one-slice run in order", func() {
			mockCtrl := gomock.NewController(GinkgoT())
			defer mockCtrl.Finish()

			c := MakeBuilder().WithQuantum(4).Build()
			hook := NewMockHook(mockCtrl)

			admitted := hook.EXPECT().Func(hookAt{HookPosProcessAdmitted})
			started := hook.EXPECT().Func(hookAt{HookPosRunStarted}).
				After(admitted)
			sliceStart := hook.EXPECT().Func(hookAt{HookPosSliceStart}).
				After(started)
			sliceEnd := hook.EXPECT().Func(hookAt{HookPosSliceEnd}).
				After(sliceStart)
			completed := hook.EXPECT().Func(hookAt{HookPosProcessCompleted}).
				After(sliceEnd)
			hook.EXPECT().Func(hookAt{HookPosRunFinished}).After(completed)

			c.AcceptHook(hook)

			c.AddProcess("A", 3)
			Expect(c.Run()).To(BeNil())
		})
	})
})
