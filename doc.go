// Package commander is a tick-driven cooperative task executor.
//
// An [Executor] runs many lightweight tasks on one logical thread.
// Its clock comes from an [Integration] supplied by the host, and nothing
// moves until the host calls [Executor.Tick]. With [TestIntegration] as
// the clock, every run is deterministic and can be replayed exactly,
// which makes it easy to test concurrent logic.
//
// # Tasks and Agents
//
// A task is a Go function that takes an [*Agent] and returns a result.
// Tasks are added with [Add], or from inside another task with [Submit].
// Either way, the caller gets a [TaskHandle] to observe the task's state
// and result, to wait for it, or to kill it.
//
// The Agent is the only way a task body reaches its Executor. It creates
// child agents, schedules timers, acquires locks, and reports the current
// time and tick index. Every request goes through a command queue that
// the Executor drains between task steps, so scheduler state changes in
// exactly one place.
//
// # Suspension
//
// A task runs until it blocks on one of:
//
//   - [PromiseFuture.Wait]
//   - [CommanderStream.Get] and [CommanderStream.GetMulti]
//   - [Agent.Lock]
//   - [Agent.Timer] and [Agent.Ticks]
//   - [TaskHandle.Wait]
//   - [WaitGroup.Wait]
//
// Nothing else suspends a task. Code between two such calls runs without
// interruption from other tasks.
//
// # Killing Tasks
//
// A task can be killed with a [KillReason] through [Agent.Finish] or
// [TaskHandle.Kill]. A suspended task is unwound, so its deferred calls
// run; [LockGuard.Release] is meant to be deferred for that reason.
// A task killed before it first runs never runs at all.
// Killing a task does not kill the tasks it started; use [Agent.Tidy] to
// tear them down explicitly.
//
// A task whose body panics is killed with [KillPanicked], and its handle
// reports a [*PanicError].
//
// # Run Slots
//
// A [RunSlot] restricts how many tasks of a kind run at once. A push slot
// keeps only its newest task, killing older ones with [KillNotNeeded].
// A queue slot runs its tasks one at a time, in arrival order.
//
// # Monitoring
//
// [Executor.SummarizeAll] lists live tasks with their pending waits and,
// for tasks with stats enabled, their run and clock time. An Executor also
// reports task runs, task ends and ticks to a [Metrics] set with
// [Executor.SetMetrics].
package commander
