package commander

import (
	"strings"
	"testing"
)

func TestTimerSet(t *testing.T) {
	t.Run("Order", func(t *testing.T) {
		var ts TimerSet[float64, int]

		var fired []string
		add := func(at float64, name string) {
			ts.Add(0, at, func() { fired = append(fired, name) })
		}

		add(3, "t3")
		add(1, "t1a")
		add(2, "t2")
		add(1, "t1b")

		ts.Run(2, nil)

		if got := strings.Join(fired, ","); got != "t1a,t1b,t2" {
			t.Fatalf("fired %s", got)
		}
		if m, ok := ts.Min(); !ok || m != 3 {
			t.Fatalf("Min() = %v, %v; want 3", m, ok)
		}
	})
	t.Run("Gate", func(t *testing.T) {
		var ts TimerSet[uint64, bool]

		n := 0
		ts.Add(true, 1, func() { n++ })
		ts.Add(false, 1, func() { n += 10 })

		ts.Run(1, func(live bool) bool { return live })

		if n != 1 {
			t.Fatalf("n = %d, want 1", n)
		}
		if ts.Len() != 0 {
			t.Fatal("fired bucket was kept")
		}
	})
	t.Run("Reregister", func(t *testing.T) {
		var ts TimerSet[uint64, int]

		n := 0
		var f func()
		f = func() {
			n++
			ts.Add(0, 5, f)
		}
		ts.Add(0, 5, f)

		ts.Run(5, nil)

		if n != 1 {
			t.Fatalf("n = %d, want 1", n)
		}
		if m, ok := ts.Min(); !ok || m != 5 {
			t.Fatalf("Min() = %v, %v; want 5", m, ok)
		}

		ts.Run(5, nil)

		if n != 2 {
			t.Fatalf("n = %d, want 2", n)
		}
	})
	t.Run("ReregisterEarlier", func(t *testing.T) {
		var ts TimerSet[uint64, int]

		var fired []string
		ts.Add(0, 4, func() {
			fired = append(fired, "a")
			ts.Add(0, 3, func() { fired = append(fired, "c") })
		})
		ts.Add(0, 5, func() { fired = append(fired, "b") })

		ts.Run(5, nil)

		if got := strings.Join(fired, ","); got != "a,b" {
			t.Fatalf("fired %s", got)
		}
		if m, ok := ts.Min(); !ok || m != 3 {
			t.Fatalf("Min() = %v, %v; want 3", m, ok)
		}
	})
	t.Run("Empty", func(t *testing.T) {
		var ts TimerSet[float64, int]

		if _, ok := ts.Min(); ok {
			t.Fatal("Min() on empty set reported a time")
		}

		ts.Run(100, nil)
	})
	t.Run("TidyHandles", func(t *testing.T) {
		var ts TimerSet[int, string]

		var fired []string
		add := func(at int, state string) {
			ts.Add(state, at, func() { fired = append(fired, state) })
		}

		add(1, "dead1")
		add(2, "dead2")
		add(3, "live3")
		add(4, "dead4")

		ts.TidyHandles(func(s string) bool { return strings.HasPrefix(s, "live") })

		if m, _ := ts.Min(); m != 3 {
			t.Fatalf("Min() = %d, want 3", m)
		}
		if ts.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", ts.Len())
		}

		ts.Run(10, nil)

		if got := strings.Join(fired, ","); got != "live3,dead4" {
			t.Fatalf("fired %s", got)
		}
	})
}
