// Copyright 2026 The Facet Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called; pending After, Sleep, and Ticker
// operations fire when the clock advances past their deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. Waiters fire in
// deadline order during Advance; ticker waiters reschedule themselves
// at deadline + interval, so a single Advance spanning several
// intervals delivers up to one tick per interval boundary (bounded by
// the channel's capacity of 1, matching real ticker drop behavior).
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time

	// interval is non-zero for ticker waiters, which reschedule
	// after firing instead of being removed.
	interval time.Duration

	// stopped is set by Ticker.Stop; stopped waiters are skipped and
	// swept on the next Advance.
	stopped bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock advances past
// duration d from now. If d <= 0, the channel receives immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	return channel
}

// NewTicker returns a ticker that fires on interval boundaries as the
// clock advances. Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	waiter := &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  make(chan time.Time, 1),
		interval: d,
	}
	c.waiters = append(c.waiters, waiter)

	return &Ticker{
		C: waiter.channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
		resetFunc: func(interval time.Duration) {
			if interval <= 0 {
				panic("clock: non-positive ticker interval")
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.deadline = c.current.Add(interval)
			waiter.interval = interval
			waiter.stopped = false
		},
	}
}

// Sleep blocks until the clock advances past duration d. Another
// goroutine must call Advance, or Sleep never returns.
func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

// Advance moves the clock forward by d, firing every waiter whose
// deadline falls within the advanced window, in deadline order.
// One-shot waiters are removed after firing; tickers reschedule.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.current.Add(d)
	for {
		next := c.earliestLocked(target)
		if next == nil {
			break
		}

		// Step time to the waiter's deadline before delivering, so a
		// receiver that reads Now() sees a consistent clock.
		c.current = next.deadline

		// Non-blocking send: capacity-1 channels drop when the
		// consumer is behind, matching time.Ticker semantics. One-shot
		// channels are always empty here (single producer).
		select {
		case next.channel <- c.current:
		default:
		}

		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
		} else {
			c.removeLocked(next)
		}
	}
	c.current = target
	c.sweepStoppedLocked()
}

// earliestLocked returns the live waiter with the earliest deadline
// not after target, or nil when none fall within the window.
func (c *FakeClock) earliestLocked(target time.Time) *fakeWaiter {
	var earliest *fakeWaiter
	for _, waiter := range c.waiters {
		if waiter.stopped || waiter.deadline.After(target) {
			continue
		}
		if earliest == nil || waiter.deadline.Before(earliest.deadline) {
			earliest = waiter
		}
	}
	return earliest
}

func (c *FakeClock) removeLocked(target *fakeWaiter) {
	for index, waiter := range c.waiters {
		if waiter == target {
			c.waiters = append(c.waiters[:index], c.waiters[index+1:]...)
			return
		}
	}
}

func (c *FakeClock) sweepStoppedLocked() {
	live := c.waiters[:0]
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			live = append(live, waiter)
		}
	}
	c.waiters = live
}

// PendingWaiters returns the deadlines of live waiters, sorted. Test
// helper for asserting that Stop released a ticker.
func (c *FakeClock) PendingWaiters() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadlines := make([]time.Time, 0, len(c.waiters))
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			deadlines = append(deadlines, waiter.deadline)
		}
	}
	sort.Slice(deadlines, func(i, j int) bool { return deadlines[i].Before(deadlines[j]) })
	return deadlines
}
