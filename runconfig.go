package commander

// A RunSlot is a named resource that tasks contend for.
//
// A push slot admits its newest claimant and kills every earlier one with
// [KillNotNeeded]. A queue slot admits one task at a time, in arrival
// order; the others wait until the tasks ahead of them end.
type RunSlot struct {
	name string
	push bool
}

// NewRunSlot creates a RunSlot.
func NewRunSlot(name string, push bool) *RunSlot {
	return &RunSlot{name: name, push: push}
}

// Name returns the slot's name.
func (s *RunSlot) Name() string { return s.name }

// Push reports whether s is a push slot.
func (s *RunSlot) Push() bool { return s.push }

func (s *RunSlot) String() string {
	if s.push {
		return s.name + " (push)"
	}
	return s.name + " (queue)"
}

// RunConfig configures a task. Agents created from another agent inherit
// its RunConfig unless given one.
type RunConfig struct {
	// Stats enables run time accounting.
	Stats bool

	// Slot, if not nil, makes the task contend for a RunSlot.
	Slot *RunSlot

	// Timeout, if positive, kills the task with KillTimeout once that
	// much time has passed since it was added.
	Timeout float64
}
