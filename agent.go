package commander

import (
	"slices"
	"sync"
)

// An Agent is the handle a task body uses to talk to its [Executor].
//
// Every task has its own Agent. Agents are created with [Executor.NewAgent]
// or, from inside a task, with [Agent.NewAgent], and are bound to their
// task when it is added.
//
// Requests made through an Agent are queued and applied by the Executor
// between task steps. Requests made after the task has ended are dropped.
//
// An Agent is safe for concurrent use. The blocking methods (and every
// method that takes an Agent to block on) must only be called by the body
// of the Agent's own task.
type Agent struct {
	mu     sync.Mutex
	links  *links
	name   string
	config RunConfig

	handle     Handle
	id         TaskID
	registered bool
	co         *coroutine
	tickIndex  uint64
	running    bool
	woken      bool

	finishing  bool
	finished   bool
	killReason KillReason
	settle     func(TaskState, error)
	tidies     []func()

	waits []string

	firstRun  float64
	runTime   float64
	clockTime float64
	started   bool
}

func newAgent(l *links, name string, cfg RunConfig, tickIndex uint64) *Agent {
	return &Agent{links: l, name: name, config: cfg, tickIndex: tickIndex}
}

// NewAgent creates an Agent for a child task.
// The child inherits a's RunConfig if cfg is nil.
func (a *Agent) NewAgent(name string, cfg *RunConfig) *Agent {
	a.mu.Lock()
	c, tick := a.config, a.tickIndex
	a.mu.Unlock()

	if cfg != nil {
		c = *cfg
	}

	return newAgent(a.links, name, c, tick)
}

// Name returns the agent's name.
func (a *Agent) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// SetName renames the agent.
func (a *Agent) SetName(name string) {
	a.mu.Lock()
	a.name = name
	a.mu.Unlock()
}

// Identity returns the ID of the agent's task, or the zero TaskID if
// the task has not been added yet.
func (a *Agent) Identity() TaskID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// Config returns the agent's RunConfig.
func (a *Agent) Config() RunConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}

// CurrentTime returns the time of the executor's [Integration].
func (a *Agent) CurrentTime() float64 {
	return a.links.integration.CurrentTime()
}

// TickIndex returns the tick index seen by the agent's task when it was
// last resumed.
func (a *Agent) TickIndex() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tickIndex
}

// AddTimer arranges for f to be called once timeout has passed.
// f is called by the executor and must not block.
func (a *Agent) AddTimer(timeout float64, f func()) {
	a.send(request{kind: requestTimer, at: a.CurrentTime() + timeout, f: f})
}

// AddTicksTimer arranges for f to be called once the tick index has
// advanced by ticks. f is called by the executor and must not block.
func (a *Agent) AddTicksTimer(ticks uint64, f func()) {
	a.send(request{kind: requestTick, tick: a.TickIndex() + ticks, f: f})
}

// Timer blocks until timeout has passed.
func (a *Agent) Timer(timeout float64) {
	f := NewPromiseFuture[struct{}]()
	a.AddTimer(timeout, func() { f.Satisfy(struct{}{}) })
	f.Wait(a)
}

// Ticks blocks until the tick index has advanced by n.
//
// Ticks(0) yields: the task resumes later in the same tick, if the
// tick's time slice allows.
func (a *Agent) Ticks(n uint64) {
	f := NewPromiseFuture[struct{}]()
	a.AddTicksTimer(n, func() { f.Satisfy(struct{}{}) })
	f.Wait(a)
}

// Finish kills the agent's task with reason.
//
// A task killed while suspended is unwound: its deferred calls run.
// A task that kills itself is unwound when it next blocks.
// Killing a task that has not been added yet means its body never runs.
// The task's handle reports the killed state as soon as Finish returns
// for a task that has been added.
func (a *Agent) Finish(reason KillReason) {
	a.kill(reason)
}

// kill reports whether it marked the agent as finishing.
// A registered task's handle is settled right away; the task itself is
// unwound and removed when the executor next gets to it.
func (a *Agent) kill(reason KillReason) bool {
	a.mu.Lock()
	if a.finishing || a.finished {
		a.mu.Unlock()
		return false
	}
	a.finishing = true
	a.killReason = reason
	h, ok, settle := a.handle, a.registered, a.settle
	a.mu.Unlock()

	if ok {
		a.links.wakes.push(h)
		a.links.integration.causeReentry()
		settle(KilledState(reason), reason)
	}
	return true
}

// Tidy registers f to be called when the agent's task ends, however it
// ends. Tidy functions are called in reverse order of registration.
// If the task has already ended, f is called right away.
func (a *Agent) Tidy(f func()) {
	a.mu.Lock()
	if !a.finished {
		a.tidies = append(a.tidies, f)
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	f()
}

// NamedWait calls f. While f runs, name is listed among the waits of
// the task's [TaskSummary].
func (a *Agent) NamedWait(name string, f func()) {
	a.mu.Lock()
	a.waits = append(a.waits, name)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if i := slices.Index(a.waits, name); i >= 0 {
			a.waits = slices.Delete(a.waits, i, i+1)
		}
		a.mu.Unlock()
	}()

	f()
}

// StatsEnabled reports whether run time accounting is on.
func (a *Agent) StatsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config.Stats
}

// RunTime returns the total time the task has spent running.
// It is zero unless stats are enabled.
func (a *Agent) RunTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runTime
}

// ClockTime returns the time from the task's first resumption to the end
// of its latest one. It is zero unless stats are enabled.
func (a *Agent) ClockTime() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clockTime
}

func (a *Agent) summary() TaskSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return TaskSummary{
		ID:        a.id,
		Name:      a.name,
		Waits:     slices.Clone(a.waits),
		Stats:     a.config.Stats,
		ClockTime: a.clockTime,
		RunTime:   a.runTime,
	}
}

func (a *Agent) register(h Handle, id TaskID, t *task) {
	a.mu.Lock()
	a.handle, a.id, a.co, a.settle = h, id, t.co, t.settle
	a.registered = true
	a.mu.Unlock()
}

func (a *Agent) isRegistered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.registered
}

func (a *Agent) isFinishing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finishing
}

func (a *Agent) reason() KillReason {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.killReason
}

func (a *Agent) timing(start, end float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.config.Stats {
		return
	}
	if !a.started {
		a.firstRun = start
		a.started = true
	}
	a.runTime += end - start
	a.clockTime = end - a.firstRun
}

func (a *Agent) send(r request) {
	a.mu.Lock()
	h, ok := a.handle, a.registered
	a.mu.Unlock()

	if !ok {
		a.links.logger.Debug("request from unbound agent dropped", "agent", a.Name(), "request", r.kind)
		return
	}

	r.handle = h
	a.links.requests.push(r)
}

// wake marks the agent's task runnable. Waking a task that is running
// makes its next suspension return at once.
func (a *Agent) wake() {
	a.mu.Lock()
	a.woken = true
	h, ok := a.handle, a.registered
	a.mu.Unlock()

	if ok {
		a.links.wakes.push(h)
		a.links.integration.causeReentry()
	}
}

// suspend yields the agent's task back to the executor until it is woken.
// Callers must recheck their condition afterwards.
func (a *Agent) suspend() {
	a.mu.Lock()
	if a.finishing {
		a.mu.Unlock()
		panic(unwind{})
	}
	if !a.running {
		a.mu.Unlock()
		panic("commander: blocking call outside of the agent's running task")
	}
	if a.woken {
		a.woken = false
		a.mu.Unlock()
		return
	}
	co := a.co
	a.mu.Unlock()

	co.suspend()
}

// takeTidies marks the agent finished and returns its tidy functions in
// the order they must be called.
func (a *Agent) takeTidies() []func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finished = true
	tidies := a.tidies
	a.tidies = nil
	slices.Reverse(tidies)
	return tidies
}
