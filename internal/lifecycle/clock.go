package lifecycle

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// InLocation reports c's time in loc, so calendar dates derived from Now
// follow the configured zone.
func InLocation(c Clock, loc *time.Location) Clock {
	return ClockFunc(func() time.Time { return c.Now().In(loc) })
}
