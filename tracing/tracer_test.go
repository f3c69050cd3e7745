package tracing_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/schedsim/recording"
	"github.com/sarchlab/schedsim/sched"
	"github.com/sarchlab/schedsim/tracing"
)

// fakeRecorder buffers rows in memory.
type fakeRecorder struct {
	mu     sync.Mutex
	tables map[string][]any
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{tables: make(map[string][]any)}
}

func (r *fakeRecorder) CreateTable(name string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = nil
}

func (r *fakeRecorder) InsertData(name string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = append(r.tables[name], entry)
}

func (r *fakeRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	return names
}

func (r *fakeRecorder) Flush()       {}
func (r *fakeRecorder) Close() error { return nil }

func (r *fakeRecorder) rows(name string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.tables[name]...)
}

var _ recording.DataRecorder = (*fakeRecorder)(nil)

var _ = Describe("BusyTimeTracer", func() {
	It("should report full utilization for a gapless workload", func() {
		c := sched.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			Build()
		tracer := tracing.NewBusyTimeTracer(c, nil)
		tracing.Collect(c, tracer)

		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		Expect(tracer.BusyTime()).To(BeNumerically("==", 8))
		Expect(tracer.Utilization()).To(BeNumerically("==", 1))
	})

	It("should exclude idle gaps from busy time", func() {
		c := sched.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(4).
			Build()
		tracer := tracing.NewBusyTimeTracer(c, nil)
		tracing.Collect(c, tracer)

		c.AddProcess("Early", 2)
		c.AddProcess("Late", 3, sched.ArriveAt(5))
		Expect(c.Run()).To(BeNil())

		Expect(c.CurrentTime()).To(BeNumerically("==", 8))
		Expect(tracer.BusyTime()).To(BeNumerically("==", 5))
		Expect(tracer.Utilization()).To(BeNumerically("==", 5.0/8.0))
	})

	It("should honor the slice filter", func() {
		c := sched.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			Build()
		tracer := tracing.NewBusyTimeTracer(c, func(s tracing.Slice) bool {
			return s.ProcName == "A"
		})
		tracing.Collect(c, tracer)

		c.AddProcess("A", 2)
		c.AddProcess("B", 2)
		Expect(c.Run()).To(BeNil())

		Expect(tracer.BusyTime()).To(BeNumerically("==", 2))
	})
})

var _ = Describe("AverageSliceTracer", func() {
	It("should average the slice lengths", func() {
		c := sched.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			Build()
		tracer := tracing.NewAverageSliceTracer(nil)
		tracing.Collect(c, tracer)

		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		Expect(tracer.TotalCount()).To(Equal(uint64(5)))
		Expect(tracer.AverageTime()).To(BeNumerically("~", 1.6, 1e-9))
	})
})

var _ = Describe("DBTracer", func() {
	var (
		c        *sched.Controller
		backend  *fakeRecorder
		dbTracer *tracing.DBTracer
	)

	BeforeEach(func() {
		c = sched.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			Build()
		backend = newFakeRecorder()
		dbTracer = tracing.NewDBTracer(c, backend)
		tracing.Collect(c, dbTracer)
	})

	It("should create the slice and lifecycle tables", func() {
		Expect(backend.ListTables()).To(ContainElements(
			tracing.SliceTableName, tracing.LifecycleTableName))
	})

	It("should write one row per executed slice", func() {
		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		Expect(backend.rows(tracing.SliceTableName)).To(HaveLen(5))
	})

	It("should record admissions and completions", func() {
		c.AddProcess("A", 2)
		Expect(c.Run()).To(BeNil())

		rows := backend.rows(tracing.LifecycleTableName)
		Expect(rows).To(HaveLen(2))
	})
})
