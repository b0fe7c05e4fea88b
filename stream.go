package commander

import (
	"slices"
	"sync"
)

// A CommanderStream is an unbounded FIFO queue that tasks can wait on.
//
// Items are handed to waiting getters in the order the getters arrived;
// when nobody waits, items are buffered. The zero value is an empty
// CommanderStream.
//
// A CommanderStream is safe for concurrent use.
type CommanderStream[T any] struct {
	mu      sync.Mutex
	used    bool
	items   []T
	waiters []*PromiseFuture[T]
}

// NewCommanderStream returns an empty CommanderStream.
func NewCommanderStream[T any]() *CommanderStream[T] {
	return new(CommanderStream[T])
}

// Add appends v, handing it to the oldest waiter if any.
func (s *CommanderStream[T]) Add(v T) {
	s.mu.Lock()
	w := s.add(v)
	s.mu.Unlock()

	if w != nil {
		w.Satisfy(v)
	}
}

// AddFirst adds v only if nothing was ever added to s before.
// It reports whether v was added.
func (s *CommanderStream[T]) AddFirst(v T) bool {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		return false
	}
	w := s.add(v)
	s.mu.Unlock()

	if w != nil {
		w.Satisfy(v)
	}

	return true
}

func (s *CommanderStream[T]) add(v T) *PromiseFuture[T] {
	s.used = true
	if len(s.waiters) != 0 {
		w := s.waiters[0]
		s.waiters[0] = nil
		s.waiters = s.waiters[1:]
		return w
	}
	s.items = append(s.items, v)
	return nil
}

// GetFuture returns a future for the next item. If an item is buffered,
// the future is already satisfied with it; otherwise the future joins the
// queue of waiters.
func (s *CommanderStream[T]) GetFuture() *PromiseFuture[T] {
	f := NewPromiseFuture[T]()

	s.mu.Lock()
	if len(s.items) != 0 {
		v := s.pop()
		s.mu.Unlock()
		f.Satisfy(v)
		return f
	}
	s.waiters = append(s.waiters, f)
	s.mu.Unlock()

	return f
}

// Get blocks the task of a until an item is available, then removes and
// returns it.
//
// If the task is killed while waiting, its place in the queue of waiters
// is given up, and an item already handed to it is put back at the front.
func (s *CommanderStream[T]) Get(a *Agent) T {
	f := s.GetFuture()

	ok := false
	defer func() {
		if !ok {
			s.abandon(f)
		}
	}()

	v := f.Wait(a)
	ok = true
	return v
}

func (s *CommanderStream[T]) abandon(f *PromiseFuture[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.waiters, f); i >= 0 {
		s.waiters = slices.Delete(s.waiters, i, i+1)
		return
	}

	if v, ok := f.Peek(); ok {
		s.items = slices.Insert(s.items, 0, v)
	}
}

// GetNowait removes and returns the first buffered item, if any.
func (s *CommanderStream[T]) GetNowait() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return v, false
	}
	return s.pop(), true
}

// GetMultiNowait removes and returns up to limit buffered items.
// A limit of zero or less means no limit.
func (s *CommanderStream[T]) GetMultiNowait(limit int) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.items)
	if limit > 0 && limit < n {
		n = limit
	}

	out := slices.Clone(s.items[:n])
	clear(s.items[:n])
	s.items = s.items[n:]

	return out
}

// GetMulti is like GetMultiNowait, but blocks the task of a until at
// least one item is available.
func (s *CommanderStream[T]) GetMulti(a *Agent, limit int) []T {
	if out := s.GetMultiNowait(limit); len(out) != 0 {
		return out
	}

	out := []T{s.Get(a)}

	if limit != 1 {
		rest := 0
		if limit > 1 {
			rest = limit - 1
		}
		out = append(out, s.GetMultiNowait(rest)...)
	}

	return out
}

// Clear discards every buffered item. Waiters are not affected.
func (s *CommanderStream[T]) Clear() {
	s.mu.Lock()
	clear(s.items)
	s.items = nil
	s.mu.Unlock()
}

// Len returns the number of buffered items.
func (s *CommanderStream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *CommanderStream[T]) pop() T {
	var zero T
	v := s.items[0]
	s.items[0] = zero
	s.items = s.items[1:]
	return v
}
