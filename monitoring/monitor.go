// Package monitoring turns a scheduler into an HTTP server so a run can be
// inspected and controlled from a browser while it happens.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/schedsim/monitoring/web"
	"github.com/sarchlab/schedsim/sched"
)

// Monitor exposes a scheduler over HTTP: status and metrics queries, run
// control, live admission, and host resource and profile endpoints.
type Monitor struct {
	controller *sched.Controller
	portNumber int
	url        string

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// rejected and replaced with a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterController registers the scheduler to be monitored and creates
// the progress bar that mirrors its run.
func (m *Monitor) RegisterController(c *sched.Controller) {
	m.controller = c

	bar := m.CreateProgressBar(c.Name(), 0)
	c.AcceptHook(&progressHook{bar: bar})
}

// A progressHook grows the bar on admission and advances it as slices are
// accounted.
type progressHook struct {
	bar *ProgressBar
}

func (h *progressHook) Func(ctx sched.HookCtx) {
	switch ctx.Pos {
	case sched.HookPosProcessAdmitted:
		p := ctx.Item.(sched.ProcessSnapshot)
		h.bar.IncrementTotal(float64(p.BurstTime))
	case sched.HookPosSliceStart:
		s := ctx.Item.(sched.SliceInfo)
		h.bar.IncrementInProgress(float64(s.End - s.Start))
	case sched.HookPosSliceEnd:
		s := ctx.Item.(sched.SliceInfo)
		h.bar.MoveInProgressToFinished(float64(s.End - s.Start))
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total float64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) createRouter() *mux.Router {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/run", m.run)
	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/resume", m.resume)
	r.HandleFunc("/api/stop", m.stop)
	r.HandleFunc("/api/add", m.addProcess).Methods("POST")
	r.HandleFunc("/api/metrics", m.metrics)
	r.HandleFunc("/api/process/{id}", m.processDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := m.createRouter()

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	m.url = "http://localhost:" + strconv.Itoa(port)

	fmt.Fprintf(os.Stderr,
		"Monitoring scheduler with %s\n", m.url)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

// URL returns the address the monitor serves on, once StartServer ran.
func (m *Monitor) URL() string {
	return m.url
}

// OpenBrowser opens the status page in the default browser.
func (m *Monitor) OpenBrowser() {
	err := browser.OpenURL(m.url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open browser: %s\n", err)
	}
}

type processRsp struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	State     string  `json:"state"`
	Priority  int     `json:"priority"`
	Arrival   float64 `json:"arrival"`
	Burst     float64 `json:"burst"`
	Remaining float64 `json:"remaining"`
	Progress  float64 `json:"progress"`
}

type statusRsp struct {
	Name       string       `json:"name"`
	Policy     string       `json:"policy"`
	Quantum    float64      `json:"quantum,omitempty"`
	Phase      string       `json:"phase"`
	Now        float64      `json:"now"`
	Running    bool         `json:"running"`
	RunningID  int          `json:"running_id"`
	ReadyCount int          `json:"ready_count"`
	Processes  []processRsp `json:"processes"`
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	st := m.controller.Status()

	rsp := statusRsp{
		Name:       st.Name,
		Policy:     st.Policy.String(),
		Quantum:    float64(st.Quantum),
		Phase:      st.Phase.String(),
		Now:        float64(st.Now),
		Running:    st.Phase == sched.PhaseRunning,
		RunningID:  st.RunningID,
		ReadyCount: st.ReadyCount,
	}
	for _, p := range st.Processes {
		rsp.Processes = append(rsp.Processes, processRsp{
			ID:        p.ID,
			Name:      p.Name,
			State:     p.State.String(),
			Priority:  p.Priority,
			Arrival:   float64(p.ArrivalTime),
			Burst:     float64(p.BurstTime),
			Remaining: float64(p.RemainingTime),
			Progress:  p.Progress,
		})
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := m.controller.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", float64(now))
}

func (m *Monitor) run(w http.ResponseWriter, _ *http.Request) {
	go func() {
		err := m.controller.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Run failed: %s\n", err)
		}
	}()

	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.controlOp(w, m.controller.Pause)
}

func (m *Monitor) resume(w http.ResponseWriter, _ *http.Request) {
	m.controlOp(w, m.controller.Resume)
}

func (m *Monitor) stop(w http.ResponseWriter, _ *http.Request) {
	m.controlOp(w, m.controller.Stop)
}

func (m *Monitor) controlOp(w http.ResponseWriter, op func() error) {
	err := op()
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "{\"error\":%q}", err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}

type addReq struct {
	Name     string   `json:"name"`
	Burst    float64  `json:"burst"`
	Priority *int     `json:"priority,omitempty"`
	Arrival  *float64 `json:"arrival,omitempty"`
}

func (m *Monitor) addProcess(w http.ResponseWriter, r *http.Request) {
	var req addReq

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "{\"error\":%q}", err.Error())
		return
	}

	var opts []sched.ProcessOption
	if req.Priority != nil {
		opts = append(opts, sched.WithPriority(*req.Priority))
	}
	if req.Arrival != nil {
		opts = append(opts, sched.ArriveAt(sched.VTime(*req.Arrival)))
	}

	h, err := m.controller.AddProcess(
		req.Name, sched.VTime(req.Burst), opts...)
	if err != nil {
		status := http.StatusBadRequest
		var serr *sched.StateError
		if errors.As(err, &serr) {
			status = http.StatusConflict
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, "{\"error\":%q}", err.Error())
		return
	}

	m.writeJSON(w, map[string]any{
		"id":    h.ID,
		"name":  h.Name,
		"state": h.State.String(),
	})
}

type metricsRsp struct {
	PerProcess []perProcessMetricsRsp `json:"per_process"`
	Averages   averagesRsp            `json:"averages"`
	Completed  int                    `json:"completed"`
}

type perProcessMetricsRsp struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Waiting    float64 `json:"waiting"`
	Turnaround float64 `json:"turnaround"`
	Response   float64 `json:"response"`
}

type averagesRsp struct {
	Waiting    float64 `json:"waiting"`
	Turnaround float64 `json:"turnaround"`
	Response   float64 `json:"response"`
}

func (m *Monitor) metrics(w http.ResponseWriter, _ *http.Request) {
	report := m.controller.MetricsReport()

	rsp := metricsRsp{
		Completed: report.Completed,
		Averages: averagesRsp{
			Waiting:    report.AvgWaiting,
			Turnaround: report.AvgTurnaround,
			Response:   report.AvgResponse,
		},
	}
	for _, p := range report.PerProcess {
		rsp.PerProcess = append(rsp.PerProcess, perProcessMetricsRsp{
			ID:         p.ID,
			Name:       p.Name,
			Waiting:    p.Waiting,
			Turnaround: p.Turnaround,
			Response:   p.Response,
		})
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) processDetails(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	id, err := strconv.Atoi(idStr)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	snap, ok := m.controller.Process(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Process not found"))
		dieOnErr(err)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snap)
	serializer.SetMaxDepth(2)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
