package entity

import "time"

// Clock supplies the timestamps written to State.LastUpdated.
//
// Production code uses SystemClock. Tests use a deterministic clock
// (testutil.DeterministicClock) so timestamps are reproducible and strictly
// increasing between transitions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
