package commander

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// KillReason tells why a task was killed.
// A KillReason is also an error, reported by [TaskHandle.Err].
type KillReason int

const (
	_ KillReason = iota
	// KillCancelled means the task was killed by request.
	KillCancelled
	// KillTimeout means the task outlived its RunConfig.Timeout.
	KillTimeout
	// KillNotNeeded means a newer task claimed the task's push slot.
	KillNotNeeded
	// KillPanicked means the task body panicked.
	KillPanicked
)

var killReasonNames = [...]string{
	KillCancelled: "cancelled",
	KillTimeout:   "timeout",
	KillNotNeeded: "not needed",
	KillPanicked:  "panicked",
}

func (r KillReason) String() string {
	if r > 0 && int(r) < len(killReasonNames) {
		return killReasonNames[r]
	}
	return fmt.Sprintf("KillReason(%d)", int(r))
}

func (r KillReason) Error() string {
	return "commander: task killed: " + r.String()
}

// TaskStatus is the coarse state of a task.
type TaskStatus int

const (
	Ongoing TaskStatus = iota
	Done
	Killed
)

// TaskState is the state of a task as seen through its [TaskHandle].
// TaskStates are comparable.
type TaskState struct {
	Status TaskStatus
	Reason KillReason // Set if Status is Killed.
}

// KilledState returns the TaskState of a task killed for reason.
func KilledState(reason KillReason) TaskState {
	return TaskState{Status: Killed, Reason: reason}
}

func (s TaskState) String() string {
	switch s.Status {
	case Ongoing:
		return "ongoing"
	case Done:
		return "done"
	default:
		return "killed (" + s.Reason.String() + ")"
	}
}

// A TaskID identifies a task across executors.
type TaskID struct {
	Executor uuid.UUID `json:"executor"`
	Seq      uint64    `json:"seq"`
}

func (id TaskID) String() string {
	return fmt.Sprintf("%s-%d", id.Executor.String()[:8], id.Seq)
}

// TaskSummary describes a live task.
type TaskSummary struct {
	ID        TaskID   `json:"id"`
	Name      string   `json:"name"`
	Waits     []string `json:"waits,omitempty"`
	Stats     bool     `json:"stats"`
	ClockTime float64  `json:"clock_time"`
	RunTime   float64  `json:"run_time"`
}

func (s TaskSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%s %s", humanize.Comma(int64(s.ID.Seq)), s.Name)
	if len(s.Waits) != 0 {
		fmt.Fprintf(&b, " (waiting: %s)", strings.Join(s.Waits, ", "))
	}
	if s.Stats {
		fmt.Fprintf(&b, " run %s / clock %s",
			humanize.FtoaWithDigits(s.RunTime, 3),
			humanize.FtoaWithDigits(s.ClockTime, 3),
		)
	}
	return b.String()
}

// task is what the executor keeps for each task.
type task struct {
	agent  *Agent
	body   func()
	co     *coroutine
	settle func(TaskState, error)
}

// A TaskHandle refers to a task added to an [Executor].
//
// A TaskHandle is safe for concurrent use.
type TaskHandle[R any] struct {
	t      *task
	finish PromiseFuture[struct{}]

	mu     sync.Mutex
	state  TaskState
	result R
	err    error
}

func newTaskHandle[R any](a *Agent, fn func(*Agent) R) *TaskHandle[R] {
	h := new(TaskHandle[R])
	h.t = &task{
		agent: a,
		body: func() {
			r := fn(a)
			h.mu.Lock()
			if h.state.Status == Ongoing {
				h.result = r
			}
			h.mu.Unlock()
		},
		settle: h.settle,
	}
	return h
}

func (h *TaskHandle[R]) settle(s TaskState, err error) {
	h.mu.Lock()
	if h.state.Status != Ongoing {
		h.mu.Unlock()
		return
	}
	h.state, h.err = s, err
	if s.Status != Done {
		var zero R
		h.result = zero
	}
	h.mu.Unlock()

	h.finish.Satisfy(struct{}{})
}

// State returns the task's state.
func (h *TaskHandle[R]) State() TaskState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Result returns the task's result, if the task is done.
func (h *TaskHandle[R]) Result() (R, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.state.Status == Done
}

// Err returns why the task was killed: a [KillReason], or a [*PanicError]
// for a task whose body panicked. It returns nil otherwise.
func (h *TaskHandle[R]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks the task of a until h's task ends, then returns its result
// or why it was killed.
func (h *TaskHandle[R]) Wait(a *Agent) (R, error) {
	h.finish.Wait(a)
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

// FinishFuture returns a future satisfied when the task ends.
func (h *TaskHandle[R]) FinishFuture() *PromiseFuture[struct{}] {
	return &h.finish
}

// Kill kills the task with reason. Killing an ended task does nothing.
//
// The handle reports the killed state as soon as Kill returns. The task
// is unwound and its tidy functions run in the executor's next tick.
func (h *TaskHandle[R]) Kill(reason KillReason) {
	if h.t.agent.kill(reason) {
		h.settle(KilledState(reason), reason)
	}
}

// Agent returns the task's Agent.
func (h *TaskHandle[R]) Agent() *Agent {
	return h.t.agent
}

// Name returns the task's name.
func (h *TaskHandle[R]) Name() string {
	return h.t.agent.Name()
}

// Summary describes the task. It reports false if the task has ended or
// has not been added to its executor yet.
func (h *TaskHandle[R]) Summary() (TaskSummary, bool) {
	if h.State().Status != Ongoing || !h.t.agent.isRegistered() {
		return TaskSummary{}, false
	}
	return h.t.agent.summary(), true
}

// RunTime returns the total time the task has spent running.
func (h *TaskHandle[R]) RunTime() float64 { return h.t.agent.RunTime() }

// ClockTime returns the time from the task's first resumption to the end
// of its latest one.
func (h *TaskHandle[R]) ClockTime() float64 { return h.t.agent.ClockTime() }

// StatsEnabled reports whether run time accounting is on for the task.
func (h *TaskHandle[R]) StatsEnabled() bool { return h.t.agent.StatsEnabled() }
