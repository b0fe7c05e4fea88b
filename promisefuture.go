package commander

import (
	"slices"
	"sync"
)

// A PromiseFuture is a single-assignment value that tasks can wait for.
//
// The first call to Satisfy sets the value and wakes every waiting task;
// later calls are no-ops. The zero value is an unsatisfied PromiseFuture.
//
// A PromiseFuture is safe for concurrent use.
type PromiseFuture[T any] struct {
	mu      sync.Mutex
	done    bool
	value   T
	waiters []*Agent
}

// NewPromiseFuture returns an unsatisfied PromiseFuture.
func NewPromiseFuture[T any]() *PromiseFuture[T] {
	return new(PromiseFuture[T])
}

// Satisfy sets the value of f, if not already set.
// It reports whether this call set it.
func (f *PromiseFuture[T]) Satisfy(v T) bool {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return false
	}
	f.done = true
	f.value = v
	waiters := f.waiters
	f.waiters = nil
	f.mu.Unlock()

	for _, a := range waiters {
		a.wake()
	}

	return true
}

// Satisfied reports whether f has a value.
func (f *PromiseFuture[T]) Satisfied() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Peek returns the value of f without waiting.
func (f *PromiseFuture[T]) Peek() (v T, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.done
}

// Wait blocks the task of a until f is satisfied, then returns its value.
func (f *PromiseFuture[T]) Wait(a *Agent) T {
	for {
		f.mu.Lock()
		if f.done {
			v := f.value
			f.mu.Unlock()
			return v
		}
		if !slices.Contains(f.waiters, a) {
			f.waiters = append(f.waiters, a)
		}
		f.mu.Unlock()

		a.suspend()
	}
}
