// Package clock supplies the current time to components that reason about
// recency. Production code uses System; tests and rehearsal runs pin the
// clock, either directly with Fixed or through *_NOW environment overrides.
package clock

import (
	"os"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the real wall clock.
var System Clock = systemClock{}

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time { return f.t }

// Fixed returns a clock pinned to t.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

// FromEnv returns a clock pinned to the first set environment variable
// among names, parsed as RFC 3339. Unset or unparseable values fall
// through; with none usable, the system clock is returned.
func FromEnv(names ...string) Clock {
	for _, name := range names {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return Fixed(t)
		}
	}
	return System
}
