package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/b97tsk/commander"
	"github.com/dustin/go-humanize"
)

// Event is one line of a scenario's event log.
type Event struct {
	Tick    uint64 `json:"tick"`
	Task    string `json:"task"`
	Message string `json:"message"`
}

func (e Event) String() string {
	return fmt.Sprintf("tick %d: %s: %s", e.Tick, e.Task, e.Message)
}

// TaskResult is the outcome of one started task.
type TaskResult struct {
	Name      string              `json:"name"`
	ID        commander.TaskID    `json:"id"`
	State     commander.TaskState `json:"-"`
	Status    string              `json:"state"`
	Stats     bool                `json:"stats"`
	RunTime   float64             `json:"run_time"`
	ClockTime float64             `json:"clock_time"`
}

// Report is what running a scenario produced.
type Report struct {
	Ticks  uint64       `json:"ticks"`
	Events []Event      `json:"events"`
	Tasks  []TaskResult `json:"tasks"`
}

// Write prints the event log followed by one line per task.
func (rep *Report) Write(w io.Writer) error {
	for _, e := range rep.Events {
		if _, err := fmt.Fprintln(w, e); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "after %s ticks:\n", humanize.Comma(int64(rep.Ticks))); err != nil {
		return err
	}
	for _, r := range rep.Tasks {
		line := fmt.Sprintf("  #%d %s: %s", r.ID.Seq, r.Name, r.Status)
		if r.Stats {
			line += fmt.Sprintf(" (run %s / clock %s)",
				humanize.FtoaWithDigits(r.RunTime, 3),
				humanize.FtoaWithDigits(r.ClockTime, 3),
			)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Options tune Run.
type Options struct {
	Logger *slog.Logger
	Ticks  uint64  // Overrides Scenario.Ticks if positive.
	Slice  float64 // Overrides Scenario.Slice if positive.
}

// Run drives sc on a virtual clock and reports what happened.
// Run stops early once every task has ended and none is left to start.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Report, error) {
	ticks, slice := sc.Ticks, sc.Slice
	if opts.Ticks > 0 {
		ticks = opts.Ticks
	}
	if opts.Slice > 0 {
		slice = opts.Slice
	}

	clock := commander.NewTestIntegration()
	x := commander.NewExecutor(clock, opts.Logger)
	defer x.Shutdown()

	r := NewRunner(x, sc, opts.Logger)

	for x.TickIndex() < ticks && !r.Idle() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scenario interrupted at tick %d: %w", x.TickIndex(), err)
		}
		r.Step(slice)
		clock.Advance(sc.ClockStep)
	}

	return r.Report(), nil
}

// A Runner starts the tasks of a scenario on an executor.
//
// The caller owns the executor's ticks; Step wraps one tick.
type Runner struct {
	sc     *Scenario
	x      *commander.Executor
	logger *slog.Logger

	slots   map[string]*commander.RunSlot
	locks   map[string]*commander.Lock
	streams map[string]*commander.CommanderStream[string]

	mu       sync.Mutex
	events   []Event
	started  []started
	byName   map[string][]*commander.TaskHandle[struct{}]
	reported int
}

type started struct {
	name   string
	handle *commander.TaskHandle[struct{}]
	done   bool
}

// NewRunner creates the slots, locks and streams sc declares.
func NewRunner(x *commander.Executor, sc *Scenario, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Runner{
		sc:      sc,
		x:       x,
		logger:  logger.With("component", "scenario"),
		slots:   make(map[string]*commander.RunSlot),
		locks:   make(map[string]*commander.Lock),
		streams: make(map[string]*commander.CommanderStream[string]),
		byName:  make(map[string][]*commander.TaskHandle[struct{}]),
	}

	for name, kind := range sc.Slots {
		r.slots[name] = commander.NewRunSlot(name, kind == SlotPush)
	}
	for _, name := range sc.Locks {
		r.locks[name] = x.MakeLock()
	}
	for _, name := range sc.Streams {
		r.streams[name] = commander.NewCommanderStream[string]()
	}

	return r
}

// Step starts the tasks due in the next tick, runs the tick and records
// the tasks that ended in it.
func (r *Runner) Step(slice float64) {
	next := r.x.TickIndex() + 1

	for i := range r.sc.Tasks {
		def := &r.sc.Tasks[i]
		if !def.OnDemand && def.firstTick() == next {
			h := commander.Add(r.x, r.x.NewAgent(def.Name, r.config(def)), r.body(def))
			r.track(def.Name, h)
		}
	}

	r.x.Tick(slice)
	r.collect(r.x.TickIndex())
}

// Idle reports whether no task is live and none is left to start.
func (r *Runner) Idle() bool {
	if r.x.Len() != 0 {
		return false
	}
	next := r.x.TickIndex() + 1
	for _, def := range r.sc.Tasks {
		if !def.OnDemand && def.firstTick() >= next {
			return false
		}
	}
	return true
}

// Events returns the event log so far.
func (r *Runner) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Report returns the event log and the state of every started task.
func (r *Runner) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := &Report{
		Ticks:  r.x.TickIndex(),
		Events: append([]Event(nil), r.events...),
	}
	for _, s := range r.started {
		state := s.handle.State()
		rep.Tasks = append(rep.Tasks, TaskResult{
			Name:      s.name,
			ID:        s.handle.Agent().Identity(),
			State:     state,
			Status:    state.String(),
			Stats:     s.handle.StatsEnabled(),
			RunTime:   s.handle.RunTime(),
			ClockTime: s.handle.ClockTime(),
		})
	}
	return rep
}

func (r *Runner) config(def *Task) *commander.RunConfig {
	return &commander.RunConfig{
		Stats:   def.Stats,
		Slot:    r.slots[def.Slot],
		Timeout: def.Timeout,
	}
}

func (r *Runner) track(name string, h *commander.TaskHandle[struct{}]) {
	r.mu.Lock()
	r.started = append(r.started, started{name: name, handle: h})
	r.byName[name] = append(r.byName[name], h)
	r.mu.Unlock()
}

func (r *Runner) record(tick uint64, task, msg string) {
	r.mu.Lock()
	r.events = append(r.events, Event{Tick: tick, Task: task, Message: msg})
	r.mu.Unlock()

	r.logger.Debug(msg, "tick", tick, "task", task)
}

// collect records an event for every task that ended since the last call.
func (r *Runner) collect(tick uint64) {
	r.mu.Lock()
	var ended []started
	for i := range r.started {
		s := &r.started[i]
		if !s.done && s.handle.State().Status != commander.Ongoing {
			s.done = true
			ended = append(ended, *s)
		}
	}
	r.mu.Unlock()

	for _, s := range ended {
		r.record(tick, s.name, s.handle.State().String())
	}
}

func (r *Runner) handles(name string) []*commander.TaskHandle[struct{}] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*commander.TaskHandle[struct{}](nil), r.byName[name]...)
}

func (r *Runner) body(def *Task) func(*commander.Agent) struct{} {
	return func(a *commander.Agent) struct{} {
		held := make(map[string]*commander.LockGuard)
		defer func() {
			for _, g := range held {
				g.Release()
			}
		}()

		for _, s := range def.Steps {
			r.exec(a, &s, held)
		}
		return struct{}{}
	}
}

func (r *Runner) exec(a *commander.Agent, s *Step, held map[string]*commander.LockGuard) {
	say := func(format string, args ...any) {
		r.record(a.TickIndex(), a.Name(), fmt.Sprintf(format, args...))
	}

	switch s.Kind() {
	case "ticks":
		a.Ticks(*s.Ticks)
	case "timer":
		a.Timer(*s.Timer)
	case "lock":
		if held[s.Lock] != nil {
			return
		}
		a.NamedWait("lock "+s.Lock, func() {
			held[s.Lock] = a.Lock(r.locks[s.Lock])
		})
		say("locked %s", s.Lock)
	case "unlock":
		if g := held[s.Unlock]; g != nil {
			g.Release()
			delete(held, s.Unlock)
			say("unlocked %s", s.Unlock)
		}
	case "put":
		r.streams[s.Put.Stream].Add(s.Put.Value)
		say("put %q into %s", s.Put.Value, s.Put.Stream)
	case "take":
		var v string
		a.NamedWait("take "+s.Take, func() {
			v = r.streams[s.Take].Get(a)
		})
		say("took %q from %s", v, s.Take)
	case "spawn":
		def, _ := r.sc.Task(s.Spawn)
		child := a.NewAgent(def.Name, r.config(def))
		r.track(def.Name, commander.Submit(a, child, r.body(def)))
		say("spawned %s", def.Name)
	case "log":
		say("%s", s.Log)
	case "kill":
		for _, h := range r.handles(s.Kill) {
			h.Kill(commander.KillCancelled)
		}
		say("killed %s", s.Kill)
	}
}
