package poller

import (
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock. Every timer creation is reported
// on created so tests can tell when the loop went to sleep.
type fakeClock struct {
	now     time.Time
	created chan time.Duration
	timers  []*fakeTimer
	mu      sync.Mutex
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, created: make(chan time.Duration, 64)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	ft := &fakeTimer{clock: c, at: c.now.Add(d), c: make(chan time.Time, 1)}
	if d <= 0 {
		ft.fired = true
		ft.c <- c.now
	} else {
		c.timers = append(c.timers, ft)
	}
	c.mu.Unlock()

	c.created <- d
	return ft
}

// Advance moves time forward and fires every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, ft := range c.timers {
		if !ft.fired && !ft.stopped && !ft.at.After(c.now) {
			ft.fired = true
			ft.c <- c.now
		}
	}
}

type fakeTimer struct {
	at      time.Time
	clock   *fakeClock
	c       chan time.Time
	fired   bool
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.fired && !t.stopped
	t.stopped = true
	return wasActive
}
