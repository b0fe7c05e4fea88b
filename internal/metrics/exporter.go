// Package metrics exports executor metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"

	"github.com/b97tsk/commander"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// RunBuckets are the histogram buckets of task run durations, in the
	// time units of the executor's Integration (milliseconds on the wall
	// clock).
	RunBuckets []float64
}

// Exporter adapts commander.Metrics to Prometheus collectors.
type Exporter struct {
	taskRun      prom.Histogram
	taskFinished *prom.CounterVec
	taskPanic    prom.Counter
	tickIndex    prom.Gauge
	liveTasks    prom.Gauge
	runnable     prom.Gauge
}

var _ commander.Metrics = (*Exporter)(nil)

// NewExporter creates and registers the collectors with reg.
// Registering twice with the same registry shares the collectors.
func NewExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = "commander"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.RunBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(0.01, 4, 8)
	}

	e := &Exporter{
		taskRun: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "task_run_duration",
			Help:      "Time a task ran per resumption, in integration time units.",
			Buckets:   buckets,
		}),
		taskFinished: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_finished_total",
			Help:      "Total number of finished tasks.",
		}, []string{"status", "reason"}),
		taskPanic: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "task_panic_total",
			Help:      "Total number of task panics.",
		}),
		tickIndex: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tick_index",
			Help:      "Index of the last tick.",
		}),
		liveTasks: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "live_tasks",
			Help:      "Number of live tasks at the end of the last tick.",
		}),
		runnable: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "runnable_tasks",
			Help:      "Number of runnable tasks at the end of the last tick.",
		}),
	}

	var err error
	if e.taskRun, err = registerCollector(reg, e.taskRun); err != nil {
		return nil, err
	}
	if e.taskFinished, err = registerCollector(reg, e.taskFinished); err != nil {
		return nil, err
	}
	if e.taskPanic, err = registerCollector(reg, e.taskPanic); err != nil {
		return nil, err
	}
	if e.tickIndex, err = registerCollector(reg, e.tickIndex); err != nil {
		return nil, err
	}
	if e.liveTasks, err = registerCollector(reg, e.liveTasks); err != nil {
		return nil, err
	}
	if e.runnable, err = registerCollector(reg, e.runnable); err != nil {
		return nil, err
	}

	return e, nil
}

// RecordTaskRun observes one resumption.
func (e *Exporter) RecordTaskRun(name string, d float64) {
	e.taskRun.Observe(d)
}

// RecordTaskFinished counts a finished task by status and kill reason.
func (e *Exporter) RecordTaskFinished(name string, state commander.TaskState) {
	status, reason := "done", "none"
	if state.Status == commander.Killed {
		status, reason = "killed", state.Reason.String()
	}
	e.taskFinished.WithLabelValues(status, reason).Inc()
}

// RecordTaskPanic counts a task panic.
func (e *Exporter) RecordTaskPanic(name string, value any) {
	e.taskPanic.Inc()
}

// RecordTick sets the tick gauges.
func (e *Exporter) RecordTick(tickIndex uint64, live, runnable int) {
	e.tickIndex.Set(float64(tickIndex))
	e.liveTasks.Set(float64(live))
	e.runnable.Set(float64(runnable))
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
