package chime

import "time"

// Clock abstracts the scheduler's time source so ticks can be driven by a
// controllable clock in tests. The scheduler treats the returned instant as
// server-authoritative and resolves it into each owner's timezone per tick.
type Clock interface {
	// Now returns the current reference instant.
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the instant produced by the wrapped function.
func (f ClockFunc) Now() time.Time {
	return f()
}
