package machine

import "sync/atomic"

// Clock is the logical clock that stamps state events.
//
// Every state invocation takes exactly one tick, so Seq values in a run are
// 1, 2, 3, ... in dispatch order. Startup replaces the clock, which restarts
// the sequence.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
