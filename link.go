package commander

import (
	"log/slog"
	"sync"
)

// A link is a command queue from agents to their executor.
// Agents push from anywhere; the executor drains in one place.
type link[T any] struct {
	mu    sync.Mutex
	items []T
}

func (l *link[T]) push(v T) {
	l.mu.Lock()
	l.items = append(l.items, v)
	l.mu.Unlock()
}

func (l *link[T]) drain() []T {
	l.mu.Lock()
	items := l.items
	l.items = nil
	l.mu.Unlock()
	return items
}

type requestKind int

const (
	requestCreate requestKind = iota
	requestTimer
	requestTick
	requestLock
	requestUnlock
)

var requestKindNames = [...]string{
	requestCreate: "create",
	requestTimer:  "timer",
	requestTick:   "tick",
	requestLock:   "lock",
	requestUnlock: "unlock",
}

func (k requestKind) String() string {
	return requestKindNames[k]
}

// A request asks the executor to change its state on behalf of a task.
type request struct {
	kind   requestKind
	handle Handle
	task   *task        // create
	at     float64      // timer
	tick   uint64       // tick
	f      func()       // timer, tick
	lock   *Lock        // lock, unlock
	grant  *lockRequest // lock
}

// links is shared by an executor and every agent created from it.
type links struct {
	integration *reenteringIntegration
	logger      *slog.Logger
	wakes       link[Handle]
	requests    link[request]
}
