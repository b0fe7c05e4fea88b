package commander

import (
	"fmt"
	"runtime/debug"
)

// unwind is the value a suspended task body panics with when its task is
// killed. It is recovered by the task's coroutine.
type unwind struct{}

// PanicError is the error reported for a task whose body panicked.
//
// errors.Is(err, KillPanicked) reports true for a PanicError.
type PanicError struct {
	Value any
	Stack []byte
}

func (pe *PanicError) Error() string {
	return fmt.Sprintf("commander: task panicked: %v\n\n%s", pe.Value, pe.Stack)
}

func (pe *PanicError) Unwrap() []error {
	errs := []error{KillPanicked}
	if err, ok := pe.Value.(error); ok {
		errs = append(errs, err)
	}
	return errs
}

// try calls f and catches any panic, except an unwind.
// It returns nil if f returns normally or unwinds.
func try(f func()) (pe *PanicError) {
	ok := false
	defer func() {
		if !ok {
			v := recover()
			if v == nil {
				panic("commander: task bodies must not call runtime.Goexit()")
			}
			if _, ok := v.(unwind); ok {
				return
			}
			pe = &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	f()
	ok = true
	return nil
}
