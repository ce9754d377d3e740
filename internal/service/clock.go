package service

import "time"

// Clock abstracts time so window and cutoff rules are testable.
// Production code injects RealClock; tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }
