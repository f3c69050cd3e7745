package sched

import (
	"log"
	"sort"
	"sync"

	"github.com/sarchlab/schedsim/metrics"
)

// A Controller simulates one CPU. It owns the process table, the virtual
// clock, and the run loop; the policy only orders the ready structure and
// shapes slices. Every state transition and timestamp is applied by the
// controller, under one lock, so Status always sees a consistent snapshot.
type Controller struct {
	HookableBase

	name  string
	runID string

	timeLock sync.RWMutex
	now      VTime

	stateLock     sync.Mutex
	phase         Phase
	kind          PolicyKind
	quantum       VTime
	policy        Policy
	table         []*Process
	byID          map[int]*Process
	nextID        int
	arrivals      *arrivalQueue
	arrivalSeq    int
	running       *Process
	stopRequested bool

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	agg *metrics.Aggregator
}

// Name returns the name the controller was built with.
func (c *Controller) Name() string {
	return c.name
}

// RunID identifies this controller instance in recorded artifacts.
func (c *Controller) RunID() string {
	return c.runID
}

// CurrentTime returns the current virtual time.
func (c *Controller) CurrentTime() VTime {
	return c.readNow()
}

func (c *Controller) readNow() VTime {
	c.timeLock.RLock()
	t := c.now
	c.timeLock.RUnlock()
	return t
}

func (c *Controller) writeNow(t VTime) {
	c.timeLock.Lock()
	c.now = t
	c.timeLock.Unlock()
}

// AddProcess admits one process. Without options the process becomes Ready
// at the current virtual time; ArriveAt defers admission and WithPriority
// sets the urgency the priority policy dispatches by. Admission during a run
// is serialized with the loop and takes effect at the next slice boundary.
// A rejected admission inserts nothing.
func (c *Controller) AddProcess(
	name string,
	burst VTime,
	opts ...ProcessOption,
) (Handle, error) {
	cfg := processConfig{priority: DefaultPriority}
	for _, o := range opts {
		o(&cfg)
	}

	c.stateLock.Lock()

	if c.phase == PhaseStopped || c.phase == PhaseFinished {
		phase := c.phase
		c.stateLock.Unlock()
		return Handle{}, &StateError{
			Op:     "addProcess",
			Phase:  phase,
			Reason: "reset the controller before admitting more work",
		}
	}

	if name == "" {
		c.stateLock.Unlock()
		return Handle{}, &ValidationError{
			Field:  "name",
			Reason: "must not be empty",
		}
	}

	if burst <= 0 {
		c.stateLock.Unlock()
		return Handle{}, &ValidationError{
			Field:  "burstTime",
			Reason: "must be positive",
		}
	}

	now := c.readNow()
	if cfg.hasArrival && cfg.arriveAt < now {
		c.stateLock.Unlock()
		return Handle{}, &ValidationError{
			Field:  "arrivalTime",
			Reason: "must not be in the past",
		}
	}

	p := &Process{
		ID:             c.nextID,
		Name:           name,
		Priority:       cfg.priority,
		ArrivalTime:    timeUnset,
		BurstTime:      burst,
		RemainingTime:  burst,
		StartTime:      timeUnset,
		CompletionTime: timeUnset,
		State:          StateNew,
	}
	c.nextID++
	c.table = append(c.table, p)
	c.byID[p.ID] = p

	admittedNow := false
	switch {
	case cfg.hasArrival:
		c.arrivalSeq++
		c.arrivals.Push(arrival{at: cfg.arriveAt, seq: c.arrivalSeq, proc: p})
	case c.phase == PhaseRunning || c.phase == PhasePaused:
		c.arrivalSeq++
		c.arrivals.Push(arrival{at: now, seq: c.arrivalSeq, proc: p})
	default:
		p.State = StateReady
		p.ArrivalTime = now
		c.policy.Enqueue(p)
		admittedNow = true
	}

	h := Handle{ID: p.ID, Name: p.Name, State: p.State}
	snap := p.snapshot()
	c.stateLock.Unlock()

	if admittedNow {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosProcessAdmitted,
			Item:   snap,
		})
	}

	return h, nil
}

// Configure replaces the policy of an idle controller. Processes already
// admitted carry over to the new policy in (arrival time, id) order. While a
// run is in progress, or after a run ended and before Reset, configuration
// fails.
func (c *Controller) Configure(kind PolicyKind, quantum VTime) error {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	switch c.phase {
	case PhaseRunning, PhasePaused:
		return &ConfigurationError{
			Reason: "cannot reconfigure while a run is in progress",
		}
	case PhaseStopped, PhaseFinished:
		return &ConfigurationError{
			Reason: "reset the controller before reconfiguring",
		}
	}

	pol, err := NewPolicy(kind, quantum)
	if err != nil {
		return err
	}

	var waiting []*Process
	for {
		p, ok := c.policy.Dequeue()
		if !ok {
			break
		}
		waiting = append(waiting, p)
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].ArrivalTime != waiting[j].ArrivalTime {
			return waiting[i].ArrivalTime < waiting[j].ArrivalTime
		}
		return waiting[i].ID < waiting[j].ID
	})
	for _, p := range waiting {
		pol.Enqueue(p)
	}

	c.policy = pol
	c.kind = kind
	c.quantum = 0
	if kind == PolicyRoundRobin {
		c.quantum = quantum
	}

	return nil
}

// SetQuantum changes the Round-Robin quantum. Only slices dispatched after
// the change see the new value; a slice in flight keeps its length.
func (c *Controller) SetQuantum(q VTime) error {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	rr, ok := c.policy.(*RoundRobin)
	if !ok {
		return &ConfigurationError{
			Reason: "quantum applies to the Round-Robin policy only",
		}
	}

	if q <= 0 {
		return &ValidationError{Field: "quantum", Reason: "must be positive"}
	}

	rr.SetQuantum(q)
	c.quantum = q

	return nil
}

// Run drives the loop until every admitted process completed or a Stop
// discarded the rest. The amount of work is bounded by the total remaining
// burst, so Run always returns. Calling Run on a finished, stopped, or empty
// controller is a no-op; calling it while another Run is active is a
// StateError.
func (c *Controller) Run() error {
	if !c.singleRunLock.TryLock() {
		return &StateError{
			Op:     "run",
			Phase:  PhaseRunning,
			Reason: "another run is in progress",
		}
	}
	defer c.singleRunLock.Unlock()

	started, err := c.beginRun()
	if err != nil {
		return err
	}
	if !started {
		return nil
	}

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosRunStarted,
		Item:   c.readNow(),
	})

	for {
		done, outcome := c.step()
		if done {
			c.InvokeHook(HookCtx{
				Domain: c,
				Pos:    HookPosRunFinished,
				Item:   c.readNow(),
				Detail: outcome,
			})
			return nil
		}
	}
}

func (c *Controller) beginRun() (bool, error) {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	switch c.phase {
	case PhaseFinished, PhaseStopped:
		return false, nil
	case PhaseRunning, PhasePaused:
		return false, &StateError{
			Op:     "run",
			Phase:  c.phase,
			Reason: "another run is in progress",
		}
	}

	if len(c.table) == 0 && c.arrivals.Len() == 0 {
		return false, nil
	}

	c.phase = PhaseRunning
	c.stopRequested = false

	return true, nil
}

// step executes one iteration of the loop: admit due arrivals, judge
// preemption, dispatch, and account one whole interval. Pause blocks the
// loop between iterations, never inside one.
func (c *Controller) step() (bool, Phase) {
	c.pauseLock.Lock()
	defer c.pauseLock.Unlock()

	d := c.prepareSlice()
	if d.done {
		return true, d.outcome
	}

	for _, snap := range d.admitted {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosProcessAdmitted,
			Item:   snap,
		})
	}
	if d.preempted != nil {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosProcessPreempted,
			Item:   *d.preempted,
			Detail: d.preemptor,
		})
	}

	if d.idleJump {
		return false, 0
	}

	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosSliceStart, Item: d.slice})

	info, aborted := c.accountSlice(d)
	if aborted {
		return true, PhaseStopped
	}

	c.InvokeHook(HookCtx{Domain: c, Pos: HookPosSliceEnd, Item: info})
	if info.Completed {
		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosProcessCompleted,
			Item:   info.Proc,
		})
	}

	return false, 0
}

type sliceDecision struct {
	admitted  []ProcessSnapshot
	preempted *ProcessSnapshot
	preemptor ProcessSnapshot

	proc      *Process
	slice     SliceInfo
	truncated bool

	idleJump bool
	done     bool
	outcome  Phase
}

func (c *Controller) prepareSlice() sliceDecision {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	var d sliceDecision

	if c.stopRequested {
		d.done = true
		d.outcome = PhaseStopped
		return d
	}

	now := c.readNow()

	for _, p := range c.admitDueLocked(now) {
		d.admitted = append(d.admitted, p.snapshot())
		c.judgePreemptionLocked(p, &d)
	}

	if c.running == nil {
		next, ok := c.policy.Dequeue()
		if !ok {
			if c.arrivals.Len() == 0 {
				c.phase = PhaseFinished
				d.done = true
				d.outcome = PhaseFinished
				return d
			}

			// Nothing is ready yet; jump the clock to the next arrival.
			c.writeNow(c.arrivals.PeekTime())
			d.idleJump = true
			return d
		}

		if next.State == StateCompleted {
			log.Panicf("policy dispatched completed process %d", next.ID)
		}

		d.slice.FirstDispatch = next.StartTime == timeUnset
		if d.slice.FirstDispatch {
			next.StartTime = now
		}
		next.State = StateRunning
		c.running = next
	}

	p := c.running
	length := c.policy.SliceLength(p)
	if length > p.RemainingTime {
		length = p.RemainingTime
	}
	if length <= 0 {
		log.Panicf("process %d dispatched with no work left", p.ID)
	}

	// An arrival due inside the slice is an admission event. Under the
	// priority policy the interval ends exactly there, so the admission is
	// judged against a whole, accounted execution.
	if c.kind == PolicyPriority && c.arrivals.Len() > 0 {
		if at := c.arrivals.PeekTime(); at < now+length {
			length = at - now
			d.truncated = true
		}
	}

	d.proc = p
	d.slice.Proc = p.snapshot()
	d.slice.Start = now
	d.slice.End = now + length

	return d
}

// admitDueLocked moves every arrival whose time has come into the ready
// structure, stamped with its exact arrival time.
func (c *Controller) admitDueLocked(now VTime) []*Process {
	var admitted []*Process

	for c.arrivals.Len() > 0 && c.arrivals.PeekTime() <= now {
		a := c.arrivals.Pop()
		p := a.proc

		if p.State != StateNew {
			log.Panicf("process %d admitted twice", p.ID)
		}

		p.State = StateReady
		p.ArrivalTime = a.at
		c.policy.Enqueue(p)
		admitted = append(admitted, p)
	}

	return admitted
}

func (c *Controller) judgePreemptionLocked(q *Process, d *sliceDecision) {
	if c.running == nil || d.preempted != nil {
		return
	}

	if !c.policy.Preempts(q, c.running) {
		return
	}

	prev := c.running
	prev.State = StateStopped
	c.policy.Enqueue(prev)
	c.running = nil

	snap := prev.snapshot()
	d.preempted = &snap
	d.preemptor = q.snapshot()
}

func (c *Controller) accountSlice(d sliceDecision) (SliceInfo, bool) {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	if c.stopRequested {
		// Stop froze the table while this slice was pending; the interval
		// is discarded.
		return SliceInfo{}, true
	}

	p := d.proc
	length := d.slice.End - d.slice.Start
	c.writeNow(d.slice.End)
	p.RemainingTime -= length

	info := d.slice
	switch {
	case p.RemainingTime <= timeEpsilon:
		p.RemainingTime = 0
		p.State = StateCompleted
		p.CompletionTime = d.slice.End
		c.running = nil
		c.agg.Observe(processRecord(p))
		info.Completed = true
	case d.truncated:
		// The interval ended at an admission event; the process keeps the
		// CPU unless the next iteration judges the admission to preempt.
	default:
		p.State = StateStopped
		c.policy.Enqueue(p)
		c.running = nil
	}

	info.Proc = p.snapshot()

	return info, false
}

// Pause freezes the loop at the next slice boundary. It does not return
// until the interval in flight has been accounted, so after Pause returns
// the controller is observably frozen. Pausing a paused controller is a
// no-op; pausing one that is not running is a StateError.
func (c *Controller) Pause() error {
	c.isPausedLock.Lock()
	defer c.isPausedLock.Unlock()

	if c.isPaused {
		return nil
	}

	c.pauseLock.Lock()

	c.stateLock.Lock()
	if c.phase != PhaseRunning {
		phase := c.phase
		c.stateLock.Unlock()
		c.pauseLock.Unlock()
		return &StateError{Op: "pause", Phase: phase, Reason: "no run in progress"}
	}
	c.phase = PhasePaused
	c.stateLock.Unlock()

	c.isPaused = true

	return nil
}

// Resume lets a paused run continue from the exact state it froze in.
func (c *Controller) Resume() error {
	c.isPausedLock.Lock()
	defer c.isPausedLock.Unlock()

	if !c.isPaused {
		return &StateError{
			Op:     "resume",
			Phase:  c.phaseSnapshot(),
			Reason: "not paused",
		}
	}

	c.stateLock.Lock()
	if c.phase == PhasePaused {
		c.phase = PhaseRunning
	}
	c.stateLock.Unlock()

	c.pauseLock.Unlock()
	c.isPaused = false

	return nil
}

// Stop ends the run and discards the remaining work. Every process that has
// not completed freezes in state Stopped, including processes that never
// reached the CPU and arrivals that never came due; none of them gain
// completion metrics. The controller must be Reset before it accepts more
// work.
func (c *Controller) Stop() error {
	c.stateLock.Lock()

	if c.phase != PhaseRunning && c.phase != PhasePaused {
		phase := c.phase
		c.stateLock.Unlock()
		return &StateError{Op: "stop", Phase: phase, Reason: "no run in progress"}
	}

	c.stopRequested = true
	c.freezeStoppedLocked()
	c.phase = PhaseStopped
	c.stateLock.Unlock()

	c.unpause()

	return nil
}

func (c *Controller) freezeStoppedLocked() {
	for c.arrivals.Len() > 0 {
		c.arrivals.Pop()
	}

	for {
		if _, ok := c.policy.Dequeue(); !ok {
			break
		}
	}

	for _, p := range c.table {
		if p.State != StateCompleted {
			p.State = StateStopped
		}
	}

	c.running = nil
}

func (c *Controller) unpause() {
	c.isPausedLock.Lock()
	defer c.isPausedLock.Unlock()

	if !c.isPaused {
		return
	}

	c.pauseLock.Unlock()
	c.isPaused = false
}

// Reset returns a terminal or idle controller to an empty Idle state with
// the clock at zero. The policy configuration survives; the process table,
// pending arrivals, and collected metrics do not.
func (c *Controller) Reset() error {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	if c.phase == PhaseRunning || c.phase == PhasePaused {
		return &StateError{
			Op:     "reset",
			Phase:  c.phase,
			Reason: "a run is in progress",
		}
	}

	pol, err := NewPolicy(c.kind, c.quantum)
	if err != nil {
		return err
	}

	c.policy = pol
	c.table = nil
	c.byID = make(map[int]*Process)
	c.nextID = 1
	c.arrivals = newArrivalQueue()
	c.arrivalSeq = 0
	c.running = nil
	c.stopRequested = false
	c.agg.Reset()
	c.writeNow(0)
	c.phase = PhaseIdle

	return nil
}

func (c *Controller) phaseSnapshot() Phase {
	c.stateLock.Lock()
	p := c.phase
	c.stateLock.Unlock()
	return p
}

// Status returns one consistent point-in-time snapshot of the controller,
// safe to call at any moment from any goroutine.
func (c *Controller) Status() ControllerStatus {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	st := ControllerStatus{
		Name:       c.name,
		Policy:     c.kind,
		Phase:      c.phase,
		Now:        c.readNow(),
		ReadyCount: c.policy.Len(),
	}
	if c.kind == PolicyRoundRobin {
		st.Quantum = c.quantum
	}
	if c.running != nil {
		st.RunningID = c.running.ID
	}
	for _, p := range c.table {
		st.Processes = append(st.Processes, p.snapshot())
	}

	return st
}

// ReadyCount returns the number of processes waiting in the ready
// structure.
func (c *Controller) ReadyCount() int {
	return c.policy.Len()
}

// Process returns a snapshot of one process by ID.
func (c *Controller) Process(id int) (ProcessSnapshot, bool) {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()

	p, ok := c.byID[id]
	if !ok {
		return ProcessSnapshot{}, false
	}

	return p.snapshot(), true
}

// MetricsReport returns the aggregate metrics over every completed process.
// Reporting mutates nothing; the same completions produce the same report.
func (c *Controller) MetricsReport() metrics.Report {
	return c.agg.Report()
}

// A ControllerStatus is the snapshot Status returns. RunningID is zero when
// no process owns the CPU; process IDs start at one.
type ControllerStatus struct {
	Name       string
	Policy     PolicyKind
	Quantum    VTime
	Phase      Phase
	Now        VTime
	RunningID  int
	ReadyCount int
	Processes  []ProcessSnapshot
}

func processRecord(p *Process) metrics.ProcessRecord {
	return metrics.ProcessRecord{
		ID:         p.ID,
		Name:       p.Name,
		Priority:   p.Priority,
		Arrival:    float64(p.ArrivalTime),
		Burst:      float64(p.BurstTime),
		Start:      float64(p.StartTime),
		Completion: float64(p.CompletionTime),
	}
}
