package commander

import (
	"slices"
	"sync"
)

// A WaitGroup is a counter that tasks can wait on to reach zero.
//
// A WaitGroup is safe for concurrent use.
type WaitGroup struct {
	mu      sync.Mutex
	n       int
	waiters []*Agent
}

// Add adds delta, which may be negative, to the [WaitGroup] counter.
// If the counter becomes zero, Add wakes every task waiting on wg.
// If the counter goes negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	wg.n += delta
	if wg.n < 0 {
		wg.mu.Unlock()
		panic("commander(WaitGroup): negative counter")
	}
	var waiters []*Agent
	if wg.n == 0 {
		waiters = wg.waiters
		wg.waiters = nil
	}
	wg.mu.Unlock()

	for _, a := range waiters {
		a.wake()
	}
}

// Done decrements the [WaitGroup] counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks the task of a until the counter is zero.
func (wg *WaitGroup) Wait(a *Agent) {
	for {
		wg.mu.Lock()
		if wg.n == 0 {
			wg.mu.Unlock()
			return
		}
		if !slices.Contains(wg.waiters, a) {
			wg.waiters = append(wg.waiters, a)
		}
		wg.mu.Unlock()

		a.suspend()
	}
}
