package digest

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/stream"
)

func TestWindowFor(t *testing.T) {
	cfg := config.DefaultHotDigest

	cases := []struct {
		name     string
		longRate float64
		velocity float64
		want     float64
	}{
		// base*target/max(rate,0.1)/max(vel,1) = 12*10/...
		{"dead stream expands to max", 0, 0, 24},
		{"quiet stream expands to max", 1, 1, 24},
		{"steady stream lands mid-range", 10, 1, 12},
		{"busy stream shrinks", 30, 1, 4},
		{"burst shrinks to min", 30, 4, 2},
	}
	for _, tc := range cases {
		if got := WindowFor(tc.longRate, tc.velocity, cfg); got != tc.want {
			t.Errorf("%s: WindowFor(%v, %v) = %v, want %v",
				tc.name, tc.longRate, tc.velocity, got, tc.want)
		}
	}
}

func TestSelectWindowFromEvents(t *testing.T) {
	now := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

	// No events at all: the window stretches to the maximum.
	if got := SelectWindow(nil, now, config.DefaultHotDigest); got != 24 {
		t.Errorf("empty stream window = %v, want 24", got)
	}

	// A steady busy stream pulls the window down.
	var events []stream.Event
	for i := 0; i < 360; i++ {
		events = append(events, stream.Event{
			Timestamp: stream.FormatTimestamp(now.Add(-time.Duration(i*2) * time.Minute)),
		})
	}
	got := SelectWindow(events, now, config.DefaultHotDigest)
	if got >= 24 {
		t.Errorf("busy stream window = %v, want < 24", got)
	}
	if got < 2 {
		t.Errorf("window %v under the floor", got)
	}
}

// TestWindowMonotonicity checks that with velocity fixed at or above 1,
// a higher long-window rate never selects a larger window, and that the
// result always stays inside [MinHours, MaxHours].
func TestWindowMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	cfg := config.DefaultHotDigest

	properties.Property("higher long rate never widens the window", prop.ForAll(
		func(rate, bump, velocity float64) bool {
			lower := WindowFor(rate, velocity, cfg)
			higher := WindowFor(rate+bump, velocity, cfg)
			return higher <= lower
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(1, 10),
	))

	properties.Property("window stays clamped", prop.ForAll(
		func(rate, velocity float64) bool {
			w := WindowFor(rate, velocity, cfg)
			return w >= cfg.MinHours && w <= cfg.MaxHours
		},
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
	))

	properties.TestingRun(t)
}
