package commander

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// An Integration connects an [Executor] to its host.
//
// CurrentTime supplies the clock used by timers and time slices.
// Sleep is told, at the end of every tick, how long the host may wait
// before ticking again.
type Integration interface {
	CurrentTime() float64
	Sleep(q SleepQuantity)
}

// SleepKind classifies a [SleepQuantity].
type SleepKind int

const (
	// SleepNone asks the host to tick again as soon as it can.
	SleepNone SleepKind = iota
	// SleepTime means nothing is due for SleepQuantity.Time units.
	SleepTime
	// SleepForever means nothing is pending at all.
	SleepForever
	// SleepYesterday reports that work arrived between ticks.
	SleepYesterday
)

// A SleepQuantity is the amount of idle time reported to an [Integration].
type SleepQuantity struct {
	Kind SleepKind
	Time float64
}

// SleepFor returns a SleepQuantity of kind SleepTime.
func SleepFor(t float64) SleepQuantity {
	return SleepQuantity{Kind: SleepTime, Time: t}
}

func (q SleepQuantity) String() string {
	switch q.Kind {
	case SleepNone:
		return "none"
	case SleepTime:
		return strconv.FormatFloat(q.Time, 'g', -1, 64)
	case SleepForever:
		return "forever"
	case SleepYesterday:
		return "yesterday"
	default:
		return fmt.Sprintf("SleepKind(%d)", int(q.Kind))
	}
}

// reenteringIntegration wraps the host Integration. Once a reentry is
// caused between ticks, it reports SleepYesterday a single time and
// suppresses any further sleep until the next tick begins.
type reenteringIntegration struct {
	mu        sync.Mutex
	inner     Integration
	ticking   bool
	yesterday bool
}

func (r *reenteringIntegration) CurrentTime() float64 {
	return r.inner.CurrentTime()
}

// enter marks the beginning of a tick.
func (r *reenteringIntegration) enter() {
	r.mu.Lock()
	r.yesterday = false
	r.ticking = true
	r.mu.Unlock()
}

// sleep marks the end of a tick.
func (r *reenteringIntegration) sleep(q SleepQuantity) {
	r.mu.Lock()
	r.ticking = false
	suppressed := r.yesterday
	r.mu.Unlock()

	if !suppressed {
		r.inner.Sleep(q)
	}
}

// causeReentry tells the host to tick soon. It does nothing during a tick,
// since the tick reports its own sleep when it ends.
func (r *reenteringIntegration) causeReentry() {
	r.mu.Lock()
	if r.ticking || r.yesterday {
		r.mu.Unlock()
		return
	}
	r.yesterday = true
	r.mu.Unlock()

	r.inner.Sleep(SleepQuantity{Kind: SleepYesterday})
}

// TestIntegration is a virtual clock for deterministic tests.
// Time only moves when SetTime is called; every reported sleep is recorded.
//
// A TestIntegration is safe for concurrent use.
type TestIntegration struct {
	mu     sync.Mutex
	now    float64
	sleeps []SleepQuantity
}

// NewTestIntegration returns a TestIntegration at time zero.
func NewTestIntegration() *TestIntegration {
	return &TestIntegration{}
}

func (ti *TestIntegration) CurrentTime() float64 {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.now
}

// SetTime sets the current time.
func (ti *TestIntegration) SetTime(t float64) {
	ti.mu.Lock()
	ti.now = t
	ti.mu.Unlock()
}

// Advance moves the current time forward by d.
func (ti *TestIntegration) Advance(d float64) {
	ti.mu.Lock()
	ti.now += d
	ti.mu.Unlock()
}

func (ti *TestIntegration) Sleep(q SleepQuantity) {
	ti.mu.Lock()
	ti.sleeps = append(ti.sleeps, q)
	ti.mu.Unlock()
}

// Sleeps returns the sleeps recorded so far and forgets them.
func (ti *TestIntegration) Sleeps() []SleepQuantity {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	s := ti.sleeps
	ti.sleeps = nil
	return s
}

// ClockIntegration reads the wall clock, in milliseconds since it was
// created. Sleeps are forwarded to an optional callback so that a host loop
// can adjust its ticker.
type ClockIntegration struct {
	start   time.Time
	OnSleep func(SleepQuantity)
}

// NewClockIntegration returns a ClockIntegration starting now.
func NewClockIntegration() *ClockIntegration {
	return &ClockIntegration{start: time.Now()}
}

func (c *ClockIntegration) CurrentTime() float64 {
	return float64(time.Since(c.start)) / float64(time.Millisecond)
}

func (c *ClockIntegration) Sleep(q SleepQuantity) {
	if c.OnSleep != nil {
		c.OnSleep(q)
	}
}
