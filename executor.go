package commander

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// An Executor runs tasks cooperatively on a single logical thread.
//
// Nothing happens until the host calls Tick. Each Tick advances the tick
// index by one, fires due timers, and resumes runnable tasks, pass after
// pass, until no task is runnable or the tick's time slice is used up.
// Within a pass, tasks are resumed in the order they became runnable for
// the first time.
//
// Tasks never touch the Executor directly. They talk to it through their
// [Agent], whose requests are queued and applied between task steps.
//
// The exported methods of Executor, as well as [Add], are safe for
// concurrent use, but must not be called from a task body or from a timer
// callback; those run while the Executor is busy and would deadlock.
type Executor struct {
	mu          sync.Mutex
	id          uuid.UUID
	logger      *slog.Logger
	links       *links
	integration *reenteringIntegration
	tasks       exetasks
	timers      TimerSet[float64, Handle]
	ticks       TimerSet[uint64, Handle]
	locks       lockManager
	metrics     Metrics
	tickIndex   uint64
	nextSeq     uint64
}

// NewExecutor creates an Executor driven by integration.
// A nil logger discards all logs.
func NewExecutor(integration Integration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := uuid.New()
	logger = logger.With("component", "commander", "executor_id", id.String())
	ri := &reenteringIntegration{inner: integration}

	x := &Executor{
		id:          id,
		logger:      logger,
		links:       &links{integration: ri, logger: logger},
		integration: ri,
		metrics:     NilMetrics{},
	}
	x.tasks.logger = logger

	return x
}

// SetMetrics makes x report to m. A nil m turns reporting off.
func (x *Executor) SetMetrics(m Metrics) {
	if m == nil {
		m = NilMetrics{}
	}

	x.mu.Lock()
	x.metrics = m
	x.mu.Unlock()
}

// ID returns the identity of x, shared by the TaskIDs of its tasks.
func (x *Executor) ID() uuid.UUID {
	return x.id
}

// TickIndex returns the number of ticks so far.
func (x *Executor) TickIndex() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.tickIndex
}

// NewAgent creates an Agent for a top-level task. A nil cfg means the
// zero RunConfig.
func (x *Executor) NewAgent(name string, cfg *RunConfig) *Agent {
	var c RunConfig
	if cfg != nil {
		c = *cfg
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	return newAgent(x.links, name, c, x.tickIndex)
}

// MakeLock creates a [Lock].
func (x *Executor) MakeLock() *Lock {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.locks.makeLock()
}

// Len returns the number of live tasks.
func (x *Executor) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.tasks.len()
}

// SummarizeAll describes every live task.
func (x *Executor) SummarizeAll() []TaskSummary {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.tasks.summarizeAll()
}

// Summarize describes the live task numbered seq.
func (x *Executor) Summarize(seq uint64) (TaskSummary, bool) {
	for _, s := range x.SummarizeAll() {
		if s.ID.Seq == seq {
			return s, true
		}
	}
	return TaskSummary{}, false
}

// Add adds a task running fn with agent a to x.
//
// The task becomes runnable right away, unless its RunSlot makes it wait.
// If a has been finished already, fn never runs and the task is reported
// killed.
func Add[R any](x *Executor, a *Agent, fn func(*Agent) R) *TaskHandle[R] {
	if a.links != x.links {
		panic("commander: agent belongs to another executor")
	}

	h := newTaskHandle(a, fn)

	x.mu.Lock()
	x.tryAddTask(h.t)
	x.mu.Unlock()

	return h
}

// Submit asks the executor of parent to add a task running fn with agent
// child. It is how a task starts another; the new task is added the next
// time the executor applies requests.
func Submit[R any](parent, child *Agent, fn func(*Agent) R) *TaskHandle[R] {
	if parent.links != child.links {
		panic("commander: agents belong to different executors")
	}

	h := newTaskHandle(child, fn)
	parent.send(request{kind: requestCreate, task: h.t})

	return h
}

func (x *Executor) tryAddTask(t *task) {
	a := t.agent

	if a.isRegistered() {
		panic("commander: agent already has a task")
	}

	if a.isFinishing() {
		x.logger.Debug("task killed before start", "task", a.Name())
		x.finish(t, KilledState(a.reason()), a.reason())
		return
	}

	if !x.tasks.checkSlot(a) {
		x.logger.Debug("task waits for its slot", "task", a.Name(), "slot", a.Config().Slot.name)
	}

	x.nextSeq++
	id := TaskID{Executor: x.id, Seq: x.nextSeq}

	t.co = newCoroutine(t.body)
	h := x.tasks.createHandle(t)
	a.register(h, id, t)

	cfg := a.Config()
	x.tasks.useSlot(h, cfg.Slot)
	x.tasks.startTask(h)
	x.integration.causeReentry()

	if cfg.Timeout > 0 {
		x.timers.Add(h, x.integration.CurrentTime()+cfg.Timeout, func() {
			a.Finish(KillTimeout)
		})
	}

	x.logger.Debug("task added", "task", a.Name(), "seq", id.Seq)
}

// Tick advances the tick index and runs tasks until none is runnable or
// slice time units have passed on the integration's clock.
//
// Tasks are not preempted: a task that does not block keeps running past
// the end of the slice.
//
// Tick must not be called twice at the same time.
func (x *Executor) Tick(slice float64) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.integration.enter()
	x.tickIndex++
	x.ticks.Run(x.tickIndex, x.tasks.live)

	expiry := x.integration.CurrentTime() + slice

	for x.mainStep() {
		if x.integration.CurrentTime() >= expiry {
			break
		}
	}

	// Mark tasks waiting for the next tick runnable, so that the host
	// is told not to sleep.
	x.ticks.Run(x.tickIndex+1, x.tasks.live)
	x.service()

	x.timers.TidyHandles(x.tasks.live)
	x.ticks.TidyHandles(x.tasks.live)

	x.metrics.RecordTick(x.tickIndex, x.tasks.len(), len(x.tasks.ready.runnable()))

	x.integration.sleep(x.calculateSleep())
}

func (x *Executor) mainStep() bool {
	x.timers.Run(x.integration.CurrentTime(), x.tasks.live)
	x.ticks.Run(x.tickIndex, x.tasks.live)
	x.service()
	ran := x.tasks.execute(x.runTask)
	x.service()
	return ran
}

func (x *Executor) calculateSleep() SleepQuantity {
	if x.tasks.ready.anyRunnable() {
		return SleepQuantity{Kind: SleepNone}
	}
	if _, ok := x.ticks.Min(); ok {
		return SleepQuantity{Kind: SleepNone}
	}
	if t, ok := x.timers.Min(); ok {
		return SleepFor(max(0, t-x.integration.CurrentTime()))
	}
	return SleepQuantity{Kind: SleepForever}
}

// service applies wakes and requests until none is left.
func (x *Executor) service() {
	for {
		wakes := x.links.wakes.drain()
		requests := x.links.requests.drain()

		if len(wakes) == 0 && len(requests) == 0 {
			return
		}

		for _, h := range wakes {
			x.tasks.unblockTask(h)
		}

		for _, r := range requests {
			x.apply(r)
		}
	}
}

func (x *Executor) apply(r request) {
	if r.kind != requestCreate && r.kind != requestUnlock && !x.tasks.live(r.handle) {
		x.logger.Debug("request from removed task dropped", "request", r.kind)
		return
	}

	switch r.kind {
	case requestCreate:
		x.tryAddTask(r.task)
	case requestTimer:
		x.timers.Add(r.handle, r.at, r.f)
	case requestTick:
		x.ticks.Add(r.handle, r.tick, r.f)
	case requestLock:
		x.locks.lock(r.handle, r.lock, r.grant, x.tasks.live)
	case requestUnlock:
		if !x.locks.unlock(r.lock, x.tasks.live) {
			x.logger.Warn("unlock of a lock not held", "lock", r.lock.id)
		}
	}
}

func (x *Executor) runTask(h Handle, t *task) {
	a := t.agent

	if a.isFinishing() {
		x.reap(h, t)
		return
	}

	a.mu.Lock()
	a.tickIndex = x.tickIndex
	a.running = true
	a.woken = false
	stats := a.config.Stats
	a.mu.Unlock()

	start := x.integration.CurrentTime()

	ended := t.co.resume()

	end := x.integration.CurrentTime()

	a.mu.Lock()
	a.running = false
	woken := a.woken
	a.woken = false
	a.mu.Unlock()

	if stats {
		a.timing(start, end)
	}

	x.metrics.RecordTaskRun(a.Name(), end-start)

	switch {
	case ended:
		x.complete(h, t)
	case !woken:
		x.tasks.blockTask(h)
	}
}

// reap unwinds a killed task and removes it.
func (x *Executor) reap(h Handle, t *task) {
	x.logger.Debug("reaping task", "task", t.agent.Name(), "reason", t.agent.reason())
	t.co.cancel()
	x.complete(h, t)
}

func (x *Executor) complete(h Handle, t *task) {
	a := t.agent

	state, err := TaskState{Status: Done}, error(nil)

	switch pe := t.co.pe; {
	case pe != nil:
		state, err = KilledState(KillPanicked), pe
		x.logger.Error("task panicked", "task", a.Name(), "panic", pe.Value, "stack", string(pe.Stack))
		x.metrics.RecordTaskPanic(a.Name(), pe.Value)
	case a.isFinishing():
		state, err = KilledState(a.reason()), a.reason()
	}

	x.tasks.removeTask(h)
	x.finish(t, state, err)
}

func (x *Executor) finish(t *task, state TaskState, err error) {
	for _, f := range t.agent.takeTidies() {
		if pe := try(f); pe != nil {
			x.logger.Error("tidy function panicked", "task", t.agent.Name(), "panic", pe.Value)
		}
	}

	t.settle(state, err)
	x.metrics.RecordTaskFinished(t.agent.Name(), state)

	x.logger.Debug("task finished", "task", t.agent.Name(), "state", state.String())
}

// Shutdown kills every task with KillCancelled and removes it, unwinding
// task bodies that are suspended.
func (x *Executor) Shutdown() {
	x.mu.Lock()
	defer x.mu.Unlock()

	for x.tasks.len() != 0 {
		hs := x.tasks.arena.Handles()

		for _, h := range hs {
			if t, ok := x.tasks.get(h); ok {
				t.agent.Finish(KillCancelled)
			}
		}

		for _, h := range hs {
			if t, ok := x.tasks.get(h); ok {
				x.reap(h, t)
			}
		}

		x.service()
	}

	x.timers.TidyHandles(x.tasks.live)
	x.ticks.TidyHandles(x.tasks.live)
}
