package commander

// Metrics receives executor events for monitoring.
//
// Methods are called while the Executor is busy. They must be fast and
// must not call back into the Executor.
type Metrics interface {
	// RecordTaskRun records one resumption of a task and how long it ran,
	// in the time units of the executor's Integration.
	RecordTaskRun(name string, d float64)

	// RecordTaskFinished records that a task ended with state.
	RecordTaskFinished(name string, state TaskState)

	// RecordTaskPanic records that a task body panicked.
	RecordTaskPanic(name string, value any)

	// RecordTick records the end of a tick.
	RecordTick(tickIndex uint64, live, runnable int)
}

// NilMetrics is a Metrics that does nothing. It is the default.
type NilMetrics struct{}

func (NilMetrics) RecordTaskRun(string, float64)        {}
func (NilMetrics) RecordTaskFinished(string, TaskState) {}
func (NilMetrics) RecordTaskPanic(string, any)          {}
func (NilMetrics) RecordTick(uint64, int, int)          {}
