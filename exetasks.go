package commander

import (
	"log/slog"
	"slices"
)

// exetasks tracks every live task of an executor: the arena that owns
// them, the run queue, and the queues of tasks contending for RunSlots.
//
// A task is in exactly one of these places: the run queue (runnable or
// blocked), or a slot queue behind another task (slot-waiting).
type exetasks struct {
	logger   *slog.Logger
	arena    Arena[*task]
	ready    runqueue
	slots    map[*RunSlot][]Handle
	bindings map[Handle]*RunSlot
}

func (e *exetasks) get(h Handle) (*task, bool) {
	return e.arena.Get(h)
}

func (e *exetasks) live(h Handle) bool {
	return e.arena.Contains(h)
}

func (e *exetasks) len() int {
	return e.arena.Len()
}

// checkSlot prepares a's slot for a new claimant. A push slot kills all
// its current members. It reports whether the claimant can start right
// away.
func (e *exetasks) checkSlot(a *Agent) bool {
	slot := a.Config().Slot
	if slot == nil {
		return true
	}

	if !slot.push {
		return len(e.slots[slot]) == 0
	}

	for _, h := range e.slots[slot] {
		if t, ok := e.arena.Get(h); ok {
			e.logger.Debug("evicting task", "task", t.agent.Name(), "slot", slot.name)
			t.agent.Finish(KillNotNeeded)
		}
	}

	return true
}

func (e *exetasks) createHandle(t *task) Handle {
	return e.arena.Insert(t)
}

func (e *exetasks) useSlot(h Handle, slot *RunSlot) {
	if slot == nil {
		return
	}
	if e.slots == nil {
		e.slots = make(map[*RunSlot][]Handle)
		e.bindings = make(map[Handle]*RunSlot)
	}
	e.slots[slot] = append(e.slots[slot], h)
	e.bindings[h] = slot
}

// startTask makes h runnable, unless it is waiting behind another task
// for its slot.
func (e *exetasks) startTask(h Handle) {
	if slot, ok := e.bindings[h]; ok && e.slots[slot][0] != h {
		return
	}
	e.ready.add(h)
}

func (e *exetasks) blockTask(h Handle) {
	e.ready.block(h)
}

// unblockTask makes h runnable. A killed task still waiting for its slot
// is admitted too, so that it can be reaped.
func (e *exetasks) unblockTask(h Handle) {
	t, ok := e.arena.Get(h)
	if !ok {
		return
	}
	if e.ready.contains(h) {
		e.ready.unblock(h)
		return
	}
	if t.agent.isFinishing() {
		e.ready.add(h)
	}
}

// removeTask is the only way a task leaves. It drops h from the run
// queue and its slot queue, admitting the next task of the slot, and
// frees its arena slot. Removing a removed task does nothing.
func (e *exetasks) removeTask(h Handle) {
	if !e.arena.Contains(h) {
		return
	}

	e.ready.remove(h)

	if slot, ok := e.bindings[h]; ok {
		delete(e.bindings, h)
		q := e.slots[slot]
		i := slices.Index(q, h)
		q = slices.Delete(q, i, i+1)
		if len(q) == 0 {
			delete(e.slots, slot)
		} else {
			e.slots[slot] = q
			if i == 0 {
				e.ready.add(q[0])
			}
		}
	}

	e.arena.Remove(h)
}

// execute resumes, once each, the tasks that are runnable when it is
// called, in run queue order. Tasks made runnable meanwhile wait for the
// next call. It reports whether any task was resumed.
func (e *exetasks) execute(run func(Handle, *task)) bool {
	hs := e.ready.runnable()
	for _, h := range hs {
		if t, ok := e.arena.Get(h); ok {
			run(h, t)
		}
	}
	return len(hs) != 0
}

func (e *exetasks) summarize(h Handle) (TaskSummary, bool) {
	t, ok := e.arena.Get(h)
	if !ok {
		return TaskSummary{}, false
	}
	return t.agent.summary(), true
}

func (e *exetasks) summarizeAll() []TaskSummary {
	hs := e.arena.Handles()
	out := make([]TaskSummary, 0, len(hs))
	for _, h := range hs {
		if s, ok := e.summarize(h); ok {
			out = append(out, s)
		}
	}
	return out
}
