package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time a DeterministicClock starts from.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe fake clock for tests.
//
// Every call to Now advances the clock by one millisecond, so two data
// mutations in a row always carry distinct, ordered timestamps. Next and
// Current expose the same counter as a logical sequence.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	base time.Time
	seq  int64
}

// NewDeterministicClock creates a clock starting at Epoch.
//
// The first call to Now returns Epoch plus one millisecond.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(Epoch)
}

// NewDeterministicClockAt creates a clock starting at base.
func NewDeterministicClockAt(base time.Time) *DeterministicClock {
	return &DeterministicClock{base: base}
}

// Now advances the clock by one millisecond and returns the new time.
func (c *DeterministicClock) Now() time.Time {
	return c.At(c.Next())
}

// At returns the wall time belonging to sequence number seq.
func (c *DeterministicClock) At(seq int64) time.Time {
	return c.base.Add(time.Duration(seq) * time.Millisecond)
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to its base.
//
// Used for test reuse. After Reset(), the next call to Now() returns
// base plus one millisecond again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

// FrozenClock always returns the same instant.
type FrozenClock struct {
	T time.Time
}

// Now returns the frozen instant.
func (c FrozenClock) Now() time.Time {
	return c.T
}
