package monitoring

import (
	"encoding/json"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/schedsim/sched"
)

// hookFn adapts a function into a scheduler hook.
type hookFn struct {
	f func(ctx sched.HookCtx)
}

func (h hookFn) Func(ctx sched.HookCtx) {
	h.f(ctx)
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
		c *sched.Controller
	)

	BeforeEach(func() {
		c = sched.MakeBuilder().
			WithPolicy(sched.PolicyRoundRobin).
			WithQuantum(2).
			Build()
		m = NewMonitor()
		m.RegisterController(c)
	})

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		m.createRouter().ServeHTTP(w, req)
		return w
	}

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, strings.NewReader(body))
		w := httptest.NewRecorder()
		m.createRouter().ServeHTTP(w, req)
		return w
	}

	It("should serve the controller status", func() {
		c.AddProcess("A", 5)

		w := get("/api/status")

		Expect(w.Code).To(Equal(200))

		var rsp statusRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Policy).To(Equal("RoundRobin"))
		Expect(rsp.Quantum).To(BeNumerically("==", 2))
		Expect(rsp.Phase).To(Equal("Idle"))
		Expect(rsp.Processes).To(HaveLen(1))
		Expect(rsp.Processes[0].Name).To(Equal("A"))
		Expect(rsp.Processes[0].State).To(Equal("Ready"))
	})

	It("should serve the current virtual time", func() {
		w := get("/api/now")

		Expect(w.Code).To(Equal(200))
		Expect(w.Body.String()).To(ContainSubstring("\"now\""))
	})

	It("should admit a process over HTTP", func() {
		w := post("/api/add", `{"name":"Web","burst":3,"priority":5}`)

		Expect(w.Code).To(Equal(200))

		snap, ok := c.Process(1)
		Expect(ok).To(BeTrue())
		Expect(snap.Name).To(Equal("Web"))
		Expect(snap.Priority).To(Equal(5))
	})

	It("should reject a bad burst with status 400", func() {
		w := post("/api/add", `{"name":"Bad","burst":0}`)

		Expect(w.Code).To(Equal(400))
		Expect(w.Body.String()).To(ContainSubstring("burstTime"))
	})

	It("should reject malformed JSON with status 400", func() {
		w := post("/api/add", `{not json`)

		Expect(w.Code).To(Equal(400))
	})

	It("should refuse to pause an idle controller", func() {
		w := get("/api/pause")

		Expect(w.Code).To(Equal(409))
	})

	It("should serve empty metrics before any completion", func() {
		w := get("/api/metrics")

		var rsp metricsRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Completed).To(Equal(0))
	})

	It("should serve metrics after a run", func() {
		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		w := get("/api/metrics")

		var rsp metricsRsp
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Completed).To(Equal(2))
		Expect(rsp.Averages.Turnaround).To(BeNumerically("==", 7.5))
	})

	It("should return 404 for an unknown process", func() {
		w := get("/api/process/99")

		Expect(w.Code).To(Equal(404))
	})

	It("should track run progress through the bar", func() {
		c.AddProcess("A", 5)
		c.AddProcess("B", 3)
		Expect(c.Run()).To(BeNil())

		Expect(m.progressBars).To(HaveLen(1))
		bar := m.progressBars[0]
		Expect(bar.Total).To(BeNumerically("==", 8))
		Expect(bar.Finished).To(BeNumerically("==", 8))
	})

	It("should show the executing slice as in-progress work", func() {
		c.AddProcess("A", 5)
		c.AddProcess("B", 3)

		bar := m.progressBars[0]
		var observed []float64
		c.AcceptHook(hookFn{f: func(ctx sched.HookCtx) {
			if ctx.Pos == sched.HookPosSliceStart {
				observed = append(observed, bar.InProgress)
			}
		}})

		Expect(c.Run()).To(BeNil())

		// The bar observed after the progress hook: every dispatched slice
		// shows up as in-progress work while it executes.
		Expect(observed).To(Equal([]float64{2, 2, 2, 1, 1}))
		Expect(bar.InProgress).To(BeNumerically("==", 0))
		Expect(bar.Finished).To(BeNumerically("==", 8))
	})

	It("should refuse ports below 1000", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))
	})
})
