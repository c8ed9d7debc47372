// window.go picks the digest window from recent stream activity.

package digest

import (
	"math"
	"time"

	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/stream"
)

// SelectWindow sizes the digest window from event metrics. Busy streams
// shrink toward MinHours so the digest stays dense with recent activity;
// quiet streams stretch toward MaxHours so there is anything to say at
// all. Rising velocity shrinks the window further.
func SelectWindow(events []stream.Event, now time.Time, cfg config.HotDigestConfig) float64 {
	m := stream.ComputeEventMetrics(events, now)
	longRate := m.Windows[len(m.Windows)-1].RatePerHour
	return WindowFor(longRate, m.Velocity, cfg)
}

// WindowFor maps a long-window event rate and a velocity to a window
// size in hours, clamped to [MinHours, MaxHours].
func WindowFor(longRate, velocity float64, cfg config.HotDigestConfig) float64 {
	window := cfg.BaseHours * cfg.TargetRate /
		math.Max(longRate, 0.1) /
		math.Max(velocity, 1)
	return clamp(cfg.MinHours, cfg.MaxHours, window)
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
