package slideshow

import (
	"sync"
	"time"
)

// ManualClock is a deterministic Clock. Scheduled callbacks run
// synchronously inside Advance, in due order.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*manualTimer
	fail    error
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) (Stopper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.pending = append(c.pending, t)
	return t, nil
}

// SetFailure makes every later AfterFunc fail with err; nil clears it.
func (c *ManualClock) SetFailure(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending counts schedules that have neither fired nor been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and returns how many callbacks ran.
func (c *ManualClock) Advance(d time.Duration) int {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	fired := 0
	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.compactLocked()
			c.mu.Unlock()
			return fired
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
		fired++
	}
}

func (c *ManualClock) nextDueLocked(target time.Time) *manualTimer {
	var best *manualTimer
	for _, t := range c.pending {
		if t.stopped || t.fired || t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) {
			best = t
		}
	}
	return best
}

func (c *ManualClock) compactLocked() {
	kept := c.pending[:0]
	for _, t := range c.pending {
		if !t.stopped && !t.fired {
			kept = append(kept, t)
		}
	}
	c.pending = kept
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
