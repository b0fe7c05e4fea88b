package commander

import "iter"

// A coroutine runs a task body in steps.
//
// The body runs on its own stack and only ever runs while the executor is
// blocked in resume, so there is one logical thread of control.
// A coroutine that is never resumed never runs its body.
type coroutine struct {
	next  func() (struct{}, bool)
	stop  func()
	yield func(struct{}) bool
	pe    *PanicError
	done  bool
}

func newCoroutine(body func()) *coroutine {
	co := new(coroutine)
	co.next, co.stop = iter.Pull(func(yield func(struct{}) bool) {
		co.yield = yield
		co.pe = try(body)
	})
	return co
}

// resume runs the body until it suspends or ends.
// It reports whether the body has ended.
func (co *coroutine) resume() bool {
	if !co.done {
		if _, ok := co.next(); !ok {
			co.done = true
		}
	}
	return co.done
}

// suspend must only be called by the body.
// It panics with an unwind if the coroutine is cancelled meanwhile.
func (co *coroutine) suspend() {
	if !co.yield(struct{}{}) {
		panic(unwind{})
	}
}

// cancel ends the coroutine. A suspended body unwinds, running its
// deferred calls.
func (co *coroutine) cancel() {
	co.stop()
	co.done = true
}
