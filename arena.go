package commander

import "container/heap"

// A Handle refers to a value stored in an [Arena].
//
// A Handle stays unique for the lifetime of its Arena: once the value is
// removed, the slot may be reused, but with a new generation, so the old
// Handle never resolves again. The zero Handle is never live.
type Handle struct {
	slot       uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

// An Arena is a slot map with generation-checked handles.
//
// Freed slots are reused lowest first.
//
// An Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots []arenaSlot[T]
	free  freeslots
	len   int
}

type arenaSlot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Allocate reserves a slot and returns its Handle.
// The slot holds the zero value of T until [Arena.Set] is called.
func (a *Arena[T]) Allocate() Handle {
	var i uint32
	if a.free.Len() != 0 {
		i = heap.Pop(&a.free).(uint32)
	} else {
		i = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot[T]{})
	}
	s := &a.slots[i]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.live = true
	a.len++
	return Handle{slot: i, generation: s.generation}
}

// Insert allocates a slot for v and returns its Handle.
func (a *Arena[T]) Insert(v T) Handle {
	h := a.Allocate()
	a.slots[h.slot].value = v
	return h
}

// Set replaces the value referred to by h.
//
// Set panics if h is not live: writing through a stale handle means a slot
// was freed while still in use.
func (a *Arena[T]) Set(h Handle, v T) {
	s := a.lookup(h)
	if s == nil {
		panic("commander(Arena): set through a stale handle")
	}
	s.value = v
}

// Get returns the value referred to by h, and whether h is live.
func (a *Arena[T]) Get(h Handle) (v T, ok bool) {
	if s := a.lookup(h); s != nil {
		return s.value, true
	}
	return v, false
}

// Contains reports whether h is live.
func (a *Arena[T]) Contains(h Handle) bool {
	return a.lookup(h) != nil
}

// Remove frees the slot referred to by h and returns its value.
// Removing a stale handle does nothing.
func (a *Arena[T]) Remove(h Handle) (v T, ok bool) {
	s := a.lookup(h)
	if s == nil {
		return v, false
	}
	v = s.value
	var zero T
	s.value = zero
	s.live = false
	a.len--
	heap.Push(&a.free, h.slot)
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.len
}

// Handles returns the handles of all live values, in slot order.
func (a *Arena[T]) Handles() []Handle {
	handles := make([]Handle, 0, a.len)
	for i := range a.slots {
		if s := &a.slots[i]; s.live {
			handles = append(handles, Handle{slot: uint32(i), generation: s.generation})
		}
	}
	return handles
}

func (a *Arena[T]) lookup(h Handle) *arenaSlot[T] {
	if h.IsZero() || int(h.slot) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.slot]
	if !s.live || s.generation != h.generation {
		return nil
	}
	return s
}

type freeslots []uint32

func (s freeslots) Len() int           { return len(s) }
func (s freeslots) Less(i, j int) bool { return s[i] < s[j] }
func (s freeslots) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (s *freeslots) Push(x any) { *s = append(*s, x.(uint32)) }

func (s *freeslots) Pop() any {
	old := *s
	n := len(old)
	x := old[n-1]
	*s = old[:n-1]
	return x
}
