package commander

import "testing"

func TestWaiterRegistration(t *testing.T) {
	t.Run("PromiseFuture", func(t *testing.T) {
		x := NewExecutor(NewTestIntegration(), nil)
		defer x.Shutdown()

		f := NewPromiseFuture[int]()
		h := Add(x, x.NewAgent("waiter", nil), func(a *Agent) int {
			return f.Wait(a)
		})

		x.Tick(1)
		for range 3 {
			h.Agent().wake()
			x.Tick(1)
		}

		f.mu.Lock()
		n := len(f.waiters)
		f.mu.Unlock()
		if n != 1 {
			t.Fatalf("%d waiters after spurious wakes, want 1", n)
		}

		f.Satisfy(7)
		x.Tick(1)

		if v, ok := h.Result(); !ok || v != 7 {
			t.Fatalf("Result() = %d, %v", v, ok)
		}
	})
	t.Run("WaitGroup", func(t *testing.T) {
		x := NewExecutor(NewTestIntegration(), nil)
		defer x.Shutdown()

		var wg WaitGroup
		wg.Add(1)

		h := Add(x, x.NewAgent("waiter", nil), func(a *Agent) struct{} {
			wg.Wait(a)
			return struct{}{}
		})

		x.Tick(1)
		for range 3 {
			h.Agent().wake()
			x.Tick(1)
		}

		wg.mu.Lock()
		n := len(wg.waiters)
		wg.mu.Unlock()
		if n != 1 {
			t.Fatalf("%d waiters after spurious wakes, want 1", n)
		}

		// The counter drops to zero and rises again before the waiter
		// resumes, so it must register anew.
		wg.Done()
		wg.Add(1)
		x.Tick(1)

		if h.State().Status != Ongoing {
			t.Fatalf("State() = %v", h.State())
		}

		wg.mu.Lock()
		n = len(wg.waiters)
		wg.mu.Unlock()
		if n != 1 {
			t.Fatalf("%d waiters after re-arming, want 1", n)
		}

		wg.Done()
		x.Tick(1)

		if h.State().Status != Done {
			t.Fatalf("State() = %v", h.State())
		}
	})
}
