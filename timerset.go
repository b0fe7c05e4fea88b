package commander

import (
	"cmp"
	"sync"
)

type timer[S any] struct {
	state S
	f     func()
}

// A TimerSet holds one-shot callbacks keyed by an ordered time.
//
// Each callback carries an opaque state that a gate function inspects
// before firing. Callbacks at the same time fire in registration order.
//
// A TimerSet is safe for concurrent use. Callbacks run without any lock
// held, so they may add new timers.
type TimerSet[T cmp.Ordered, S any] struct {
	mu sync.Mutex
	pq priorityqueue[T, timer[S]]
}

// Add registers f to fire once time reaches at.
func (ts *TimerSet[T, S]) Add(state S, at T, f func()) {
	ts.mu.Lock()
	ts.pq.Push(at, timer[S]{state, f})
	ts.mu.Unlock()
}

// Run fires every callback whose time is no later than now, earliest first,
// skipping those whose state does not pass gate. A nil gate passes all.
//
// Every due bucket is taken out of the set before any callback fires.
// A timer added by a callback waits for the next call, even if it is due.
func (ts *TimerSet[T, S]) Run(now T, gate func(S) bool) {
	var due [][]timer[S]

	ts.mu.Lock()
	for {
		k, ok := ts.pq.Peek()
		if !ok || cmp.Less(now, k) {
			break
		}
		_, timers := ts.pq.Pop()
		due = append(due, timers)
	}
	ts.mu.Unlock()

	for _, timers := range due {
		for _, t := range timers {
			if gate == nil || gate(t.state) {
				t.f()
			}
		}
	}
}

// Min returns the earliest pending time.
func (ts *TimerSet[T, S]) Min() (T, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.pq.Peek()
}

// Len returns the number of distinct pending times.
func (ts *TimerSet[T, S]) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.pq.Len()
}

// TidyHandles drops timers whose state does not pass keep.
//
// The sweep walks pending times from the earliest and stops at the first
// time that still has a timer after filtering. Stale timers behind a live
// one survive until a later sweep reaches them; Run never fires them as
// long as its gate rejects the same states.
func (ts *TimerSet[T, S]) TidyHandles(keep func(S) bool) {
	ts.mu.Lock()
	ts.pq.Filter(func(t timer[S]) bool { return keep(t.state) })
	ts.mu.Unlock()
}
