// Package scenario describes scripted workloads for a commander executor.
//
// A scenario file is YAML:
//
//	ticks: 10
//	clock_step: 1
//	slots:
//	  disk: queue
//	locks: [db]
//	streams: [jobs]
//	tasks:
//	  - name: producer
//	    steps:
//	      - put: {stream: jobs, value: a}
//	      - ticks: 1
//	  - name: consumer
//	    slot: disk
//	    steps:
//	      - take: jobs
//	      - lock: db
//	      - timer: 2.5
//	      - unlock: db
//
// Each task runs its steps in order, suspending where a step blocks.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid scenario")

// Slot kinds.
const (
	SlotPush  = "push"
	SlotQueue = "queue"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	Ticks     uint64            `yaml:"ticks"`
	Slice     float64           `yaml:"slice"`
	ClockStep float64           `yaml:"clock_step"` // Virtual time added after every tick.
	Slots     map[string]string `yaml:"slots"`      // Slot name to SlotPush or SlotQueue.
	Locks     []string          `yaml:"locks"`
	Streams   []string          `yaml:"streams"`
	Tasks     []Task            `yaml:"tasks"`
}

// Task is a scripted task.
type Task struct {
	Name    string  `yaml:"name"`
	Slot    string  `yaml:"slot"`
	Timeout float64 `yaml:"timeout"`
	Stats   bool    `yaml:"stats"`

	// StartTick is the tick in which the task first runs.
	// Zero and one both mean the first tick.
	StartTick uint64 `yaml:"start_tick"`

	// OnDemand tasks are only started by spawn steps.
	OnDemand bool `yaml:"on_demand"`

	Steps []Step `yaml:"steps"`
}

func (t *Task) firstTick() uint64 {
	return max(t.StartTick, 1)
}

// Step is one action of a task. Exactly one field is set.
type Step struct {
	Ticks  *uint64  `yaml:"ticks,omitempty"`
	Timer  *float64 `yaml:"timer,omitempty"`
	Lock   string   `yaml:"lock,omitempty"`
	Unlock string   `yaml:"unlock,omitempty"`
	Put    *Put     `yaml:"put,omitempty"`
	Take   string   `yaml:"take,omitempty"`
	Spawn  string   `yaml:"spawn,omitempty"`
	Log    string   `yaml:"log,omitempty"`
	Kill   string   `yaml:"kill,omitempty"`
}

// Put adds Value to Stream.
type Put struct {
	Stream string `yaml:"stream"`
	Value  string `yaml:"value"`
}

// Kind returns the name of the step's action, or "" if the step does not
// set exactly one action.
func (s *Step) Kind() string {
	var kinds []string
	if s.Ticks != nil {
		kinds = append(kinds, "ticks")
	}
	if s.Timer != nil {
		kinds = append(kinds, "timer")
	}
	if s.Lock != "" {
		kinds = append(kinds, "lock")
	}
	if s.Unlock != "" {
		kinds = append(kinds, "unlock")
	}
	if s.Put != nil {
		kinds = append(kinds, "put")
	}
	if s.Take != "" {
		kinds = append(kinds, "take")
	}
	if s.Spawn != "" {
		kinds = append(kinds, "spawn")
	}
	if s.Log != "" {
		kinds = append(kinds, "log")
	}
	if s.Kill != "" {
		kinds = append(kinds, "kill")
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario.
// Unknown keys are rejected. Omitted ticks, slice and clock_step default
// to 100, 1 and 1.
func Parse(data []byte) (*Scenario, error) {
	sc := &Scenario{Ticks: 100, Slice: 1, ClockStep: 1}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Task returns the task named name.
func (sc *Scenario) Task(name string) (*Task, bool) {
	i := slices.IndexFunc(sc.Tasks, func(t Task) bool { return t.Name == name })
	if i < 0 {
		return nil, false
	}
	return &sc.Tasks[i], true
}

// Validate checks that every name a task refers to is declared.
func (sc *Scenario) Validate() error {
	if sc.Ticks == 0 {
		return fmt.Errorf("%w: ticks must be positive", ErrInvalid)
	}
	if sc.Slice < 0 || sc.ClockStep < 0 {
		return fmt.Errorf("%w: slice and clock_step must not be negative", ErrInvalid)
	}
	for name, kind := range sc.Slots {
		if name == "" {
			return fmt.Errorf("%w: slot with an empty name", ErrInvalid)
		}
		if kind != SlotPush && kind != SlotQueue {
			return fmt.Errorf("%w: slot %q: kind %q is neither push nor queue", ErrInvalid, name, kind)
		}
	}
	if len(sc.Tasks) == 0 {
		return fmt.Errorf("%w: no tasks", ErrInvalid)
	}

	seen := make(map[string]bool)
	for _, t := range sc.Tasks {
		if t.Name == "" {
			return fmt.Errorf("%w: task with an empty name", ErrInvalid)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalid, t.Name)
		}
		seen[t.Name] = true
	}

	for _, t := range sc.Tasks {
		if t.Slot != "" && sc.Slots[t.Slot] == "" {
			return fmt.Errorf("%w: task %q: unknown slot %q", ErrInvalid, t.Name, t.Slot)
		}
		if t.Timeout < 0 {
			return fmt.Errorf("%w: task %q: negative timeout", ErrInvalid, t.Name)
		}
		for i := range t.Steps {
			if err := sc.validateStep(&t.Steps[i], seen); err != nil {
				return fmt.Errorf("%w: task %q step %d: %w", ErrInvalid, t.Name, i+1, err)
			}
		}
	}
	return nil
}

func (sc *Scenario) validateStep(s *Step, tasks map[string]bool) error {
	switch s.Kind() {
	case "":
		return errors.New("a step sets exactly one action")
	case "timer":
		if *s.Timer < 0 {
			return errors.New("negative timer")
		}
	case "lock":
		return sc.checkLock(s.Lock)
	case "unlock":
		return sc.checkLock(s.Unlock)
	case "put":
		return sc.checkStream(s.Put.Stream)
	case "take":
		return sc.checkStream(s.Take)
	case "spawn":
		if !tasks[s.Spawn] {
			return fmt.Errorf("unknown task %q", s.Spawn)
		}
	case "kill":
		if !tasks[s.Kill] {
			return fmt.Errorf("unknown task %q", s.Kill)
		}
	}
	return nil
}

func (sc *Scenario) checkLock(name string) error {
	if !slices.Contains(sc.Locks, name) {
		return fmt.Errorf("unknown lock %q", name)
	}
	return nil
}

func (sc *Scenario) checkStream(name string) error {
	if !slices.Contains(sc.Streams, name) {
		return fmt.Errorf("unknown stream %q", name)
	}
	return nil
}
