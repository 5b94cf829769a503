package utils

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

// StubClock returns a fixed instant, advanced explicitly by tests.
type StubClock struct {
	FixedNow time.Time
}

func (c *StubClock) Now() time.Time {
	return c.FixedNow
}

func (c *StubClock) Advance(d time.Duration) {
	c.FixedNow = c.FixedNow.Add(d)
}
