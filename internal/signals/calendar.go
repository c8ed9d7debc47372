// Package signals reads the cache files satellites leave under state/:
// calendar, patterns, weather, location, battery and queue snapshots.
// Every reader degrades to its zero value when a file is missing or
// malformed; a half-written cache must never take down a wake or an
// evaluation.
package signals

import (
	"math"
	"time"

	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// CalendarEvent is one entry of calendar-cache.json.
type CalendarEvent struct {
	Title        string   `json:"title"`
	Start        string   `json:"start"`
	End          string   `json:"end,omitempty"`
	MinutesUntil *float64 `json:"minutes_until,omitempty"`
}

type calendarCache struct {
	Events []CalendarEvent `json:"events"`
}

// UpcomingEvent is a calendar event relative to now. MinutesUntil is
// negative once the event has started.
type UpcomingEvent struct {
	Title        string
	MinutesUntil float64
	InProgress   bool
}

// inProgressGrace is how long an event without an explicit end is
// considered in progress after it starts.
const inProgressGrace = 60 * time.Minute

// Upcoming returns calendar events starting within the horizon, plus
// events already in progress. Events whose cache entry carries a
// precomputed minutes_until use it; otherwise the field is derived from
// the start time.
func Upcoming(root mind.Root, now time.Time, horizon time.Duration) []UpcomingEvent {
	var cache calendarCache
	if !util.ReadJSONFile(root.CalendarCacheFile(), &cache) {
		return nil
	}

	var out []UpcomingEvent
	for _, ev := range cache.Events {
		minutes, ok := minutesUntil(ev, now)
		if !ok {
			continue
		}
		inProgress := eventInProgress(ev, minutes, now)
		if minutes > horizon.Minutes() {
			continue
		}
		if minutes < 0 && !inProgress {
			continue
		}
		out = append(out, UpcomingEvent{
			Title:        ev.Title,
			MinutesUntil: minutes,
			InProgress:   inProgress,
		})
	}
	return out
}

func minutesUntil(ev CalendarEvent, now time.Time) (float64, bool) {
	if ev.MinutesUntil != nil {
		return *ev.MinutesUntil, true
	}
	start, err := time.Parse(time.RFC3339, ev.Start)
	if err != nil {
		return 0, false
	}
	return math.Ceil(start.Sub(now).Minutes()), true
}

func eventInProgress(ev CalendarEvent, minutes float64, now time.Time) bool {
	if minutes > 0 {
		return false
	}
	if ev.End != "" {
		end, err := time.Parse(time.RFC3339, ev.End)
		if err == nil {
			return now.Before(end)
		}
	}
	return minutes > -inProgressGrace.Minutes()
}

// LeadConfidence maps how soon an event starts to trigger confidence.
// The ladder tops out just before the meeting and fades past an hour.
func LeadConfidence(minutesUntil float64) float64 {
	switch {
	case minutesUntil < 0:
		return 0
	case minutesUntil <= 5:
		return 0.9
	case minutesUntil <= 15:
		return 0.8
	case minutesUntil <= 30:
		return 0.6
	case minutesUntil <= 60:
		return 0.4
	default:
		return 0
	}
}
