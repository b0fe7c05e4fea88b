package commander

import "sync"

// A Lock is an asynchronous mutex for tasks of one [Executor].
// Create Locks with [Executor.MakeLock].
//
// Tasks acquire a Lock with [Agent.Lock] and are served in request order.
// A Lock stays held until its [LockGuard] is released; a leaked guard
// blocks every later request forever.
type Lock struct {
	id uint64
}

// ID returns the lock's identity within its executor.
func (l *Lock) ID() uint64 { return l.id }

// A LockGuard is a held [Lock].
type LockGuard struct {
	lock  *Lock
	agent *Agent
	once  sync.Once
}

// Release releases the lock, handing it to the next waiting task.
// Release is meant to be deferred; calls after the first do nothing.
func (g *LockGuard) Release() {
	g.once.Do(func() {
		g.agent.send(request{kind: requestUnlock, lock: g.lock})
	})
}

// Lock blocks the task of a until it holds l.
//
// A task killed while waiting gives up its place; if the lock was already
// granted to it, the lock is released.
func (a *Agent) Lock(l *Lock) *LockGuard {
	r := &lockRequest{wake: a.wake}
	a.send(request{kind: requestLock, lock: l, grant: r})

	ok := false
	defer func() {
		if !ok && r.abandon() {
			a.send(request{kind: requestUnlock, lock: l})
		}
	}()

	for !r.isGranted() {
		a.suspend()
	}

	ok = true
	return &LockGuard{lock: l, agent: a}
}

type lockRequest struct {
	mu        sync.Mutex
	wake      func()
	granted   bool
	abandoned bool
}

// grant hands the lock to r. It reports false if r was abandoned.
func (r *lockRequest) grant() bool {
	r.mu.Lock()
	if r.abandoned {
		r.mu.Unlock()
		return false
	}
	r.granted = true
	r.mu.Unlock()
	r.wake()
	return true
}

// abandon gives up r. It reports whether the lock had already been
// granted, in which case the caller must release it.
func (r *lockRequest) abandon() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned = true
	return r.granted
}

func (r *lockRequest) isGranted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.granted
}

type lockWaiter struct {
	handle Handle
	req    *lockRequest
}

// lockManager serializes lock requests per Lock. A Lock has an entry in
// waiting exactly while it is held.
type lockManager struct {
	nextID  uint64
	waiting map[*Lock][]lockWaiter
}

func (m *lockManager) makeLock() *Lock {
	m.nextID++
	return &Lock{id: m.nextID}
}

func (m *lockManager) lock(h Handle, l *Lock, r *lockRequest, live func(Handle) bool) {
	if m.waiting == nil {
		m.waiting = make(map[*Lock][]lockWaiter)
	}

	if waiters, held := m.waiting[l]; held {
		m.waiting[l] = append(waiters, lockWaiter{h, r})
		return
	}

	m.waiting[l] = nil

	if !r.grant() {
		m.unlock(l, live)
	}
}

// unlock hands l to the first waiter that still wants it, skipping waiters
// whose task is gone. It reports false if l was not held.
func (m *lockManager) unlock(l *Lock, live func(Handle) bool) bool {
	waiters, held := m.waiting[l]
	if !held {
		return false
	}

	for len(waiters) != 0 {
		w := waiters[0]
		waiters[0] = lockWaiter{}
		waiters = waiters[1:]
		m.waiting[l] = waiters

		if live(w.handle) && w.req.grant() {
			return true
		}
	}

	delete(m.waiting, l)

	return true
}

func (m *lockManager) held(l *Lock) bool {
	_, held := m.waiting[l]
	return held
}
