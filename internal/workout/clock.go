package workout

import (
	"sort"
	"sync"
	"time"
)

// Ticker is a handle to a scheduled callback.
type Ticker interface {
	Stop()
}

// Clock schedules the session's timers.
type Clock interface {
	Now() time.Time
	// Every calls fn once per d until stopped.
	Every(d time.Duration, fn func()) Ticker
	// After calls fn once after d unless stopped first.
	After(d time.Duration, fn func()) Ticker
}

// SystemClock runs callbacks on their own goroutines using the time package.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Every(d time.Duration, fn func()) Ticker {
	t := &intervalTicker{stop: make(chan struct{})}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-tk.C:
				fn()
			}
		}
	}()
	return t
}

func (SystemClock) After(d time.Duration, fn func()) Ticker {
	return timerTicker{time.AfterFunc(d, fn)}
}

type intervalTicker struct {
	stop chan struct{}
	once sync.Once
}

func (t *intervalTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

type timerTicker struct {
	t *time.Timer
}

func (t timerTicker) Stop() { t.t.Stop() }

// ManualClock is a Clock whose time only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

var _ Clock = (*ManualClock)(nil)

type manualTimer struct {
	c     *ManualClock
	at    time.Time
	every time.Duration
	seq   int
	fn    func()
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(d time.Duration, fn func()) Ticker {
	return c.schedule(d, d, fn)
}

func (c *ManualClock) After(d time.Duration, fn func()) Ticker {
	return c.schedule(d, 0, fn)
}

func (c *ManualClock) schedule(d, every time.Duration, fn func()) *manualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{c: c, at: c.now.Add(d), every: every, seq: c.seq, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Pending reports how many timers are still scheduled.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Advance moves time forward by d, firing every callback that falls due in
// order of due time.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool {
			a, b := c.timers[i], c.timers[j]
			if a.at.Equal(b.at) {
				return a.seq < b.seq
			}
			return a.at.Before(b.at)
		})
		if len(c.timers) == 0 || c.timers[0].at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		t := c.timers[0]
		c.now = t.at
		if t.every > 0 {
			t.at = t.at.Add(t.every)
		} else {
			c.timers = c.timers[1:]
		}
		c.mu.Unlock()

		t.fn()
	}
}

func (t *manualTimer) Stop() {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}
