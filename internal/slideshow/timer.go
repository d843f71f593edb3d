package slideshow

import (
	"fmt"
	"sync"
	"time"
)

// Timer owns the single outstanding auto-advance. Arming always cancels the
// previous handle first, so at most one schedule is ever live.
type Timer struct {
	clock Clock

	mu     sync.Mutex
	handle Stopper
	gen    uint64
	live   bool
	delay  time.Duration
	armed  time.Time
}

func NewTimer(clock Clock) *Timer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Timer{clock: clock}
}

// Arm schedules fn after delay. fn receives the generation it was armed
// with; callers pass it to Fired to discard stale callbacks.
func (t *Timer) Arm(delay time.Duration, fn func(gen uint64)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.gen++
	gen := t.gen
	h, err := t.clock.AfterFunc(delay, func() { fn(gen) })
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchedule, err)
	}
	if h == nil {
		return fmt.Errorf("%w: clock returned no handle", ErrSchedule)
	}
	t.handle = h
	t.live = true
	t.delay = delay
	t.armed = time.Now()
	return nil
}

// Fired consumes the schedule for gen. It reports false when the schedule
// was cancelled or superseded after the callback started.
func (t *Timer) Fired(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.live || gen != t.gen {
		return false
	}
	t.live = false
	t.handle = nil
	return true
}

// Cancel is safe on an idle, fired or already cancelled timer.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *Timer) cancelLocked() {
	if t.handle != nil {
		t.handle.Stop()
	}
	t.handle = nil
	t.live = false
}

func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Remaining estimates the time left on the live schedule.
func (t *Timer) Remaining(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.live {
		return 0
	}
	return max(0, t.delay-now.Sub(t.armed))
}

// SystemClock schedules on the runtime timer wheel.
type SystemClock struct{}

func (SystemClock) AfterFunc(d time.Duration, fn func()) (Stopper, error) {
	if d < 0 {
		return nil, fmt.Errorf("negative delay %s", d)
	}
	return time.AfterFunc(d, fn), nil
}
