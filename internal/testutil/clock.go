package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock counts from.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests: every call to Now returns
// Epoch plus one more Step than the last call.
//
// Pass its Now method wherever a func() time.Time is accepted so that traces
// carry reproducible timestamps.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	step time.Duration
}

// NewDeterministicClock creates a clock ticking one millisecond per call.
//
// The first call to Now() returns Epoch + 1ms.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Millisecond}
}

// Now advances the clock by one step and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return Epoch.Add(time.Duration(c.seq) * c.step)
}

// Ticks returns how many times Now has been called since the last Reset.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock. After Reset(), the next call to Now() returns Epoch + 1 step.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
