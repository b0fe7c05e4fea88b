package commander

import "slices"

// runqueue holds the tasks admitted to run, in admission order.
// A member is either runnable or blocked; blocking does not change a
// member's place in the queue.
type runqueue struct {
	order   []Handle
	blocked map[Handle]bool
}

func (q *runqueue) add(h Handle) {
	if q.blocked == nil {
		q.blocked = make(map[Handle]bool)
	}
	if _, ok := q.blocked[h]; ok {
		return
	}
	q.blocked[h] = false
	q.order = append(q.order, h)
}

func (q *runqueue) remove(h Handle) {
	if _, ok := q.blocked[h]; !ok {
		return
	}
	delete(q.blocked, h)
	if i := slices.Index(q.order, h); i >= 0 {
		q.order = slices.Delete(q.order, i, i+1)
	}
}

func (q *runqueue) contains(h Handle) bool {
	_, ok := q.blocked[h]
	return ok
}

// block marks h blocked. It does nothing if h is not a member.
func (q *runqueue) block(h Handle) {
	if _, ok := q.blocked[h]; ok {
		q.blocked[h] = true
	}
}

// unblock marks h runnable. It reports whether h was blocked.
func (q *runqueue) unblock(h Handle) bool {
	if blocked := q.blocked[h]; blocked {
		q.blocked[h] = false
		return true
	}
	return false
}

// runnable returns the runnable members, in queue order.
func (q *runqueue) runnable() []Handle {
	var hs []Handle
	for _, h := range q.order {
		if !q.blocked[h] {
			hs = append(hs, h)
		}
	}
	return hs
}

func (q *runqueue) anyRunnable() bool {
	for _, h := range q.order {
		if !q.blocked[h] {
			return true
		}
	}
	return false
}

func (q *runqueue) len() int {
	return len(q.order)
}
