// patterns.go reads the behavioral patterns file the dream cycle writes.

package signals

import (
	"time"

	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// Patterns is the distilled behavioral model from state/patterns.json.
type Patterns struct {
	Temporal  TemporalPattern `json:"temporal"`
	Topics    []Topic         `json:"topics"`
	Anomalies []Anomaly       `json:"anomalies"`
}

// TemporalPattern captures when the person is usually active.
type TemporalPattern struct {
	ActiveHours          []int   `json:"active_hours"`
	DailyAverageMessages float64 `json:"daily_average_messages"`
}

// Topic is a recurring conversational subject.
type Topic struct {
	Topic       string `json:"topic"`
	DaysPresent int    `json:"days_present"`
}

// Anomaly is a deviation the dream cycle flagged.
type Anomaly struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// LoadPatterns returns the patterns file, or nil when it is missing or
// unreadable.
func LoadPatterns(root mind.Root) *Patterns {
	var p Patterns
	if !util.ReadJSONFile(root.PatternsFile(), &p) {
		return nil
	}
	return &p
}

// ActiveNow reports whether the local hour of now is one of the learned
// active hours. An empty model reports false.
func (p *Patterns) ActiveNow(now time.Time) bool {
	if p == nil {
		return false
	}
	hour := now.Hour()
	for _, h := range p.Temporal.ActiveHours {
		if h == hour {
			return true
		}
	}
	return false
}

// RecurringTopics returns topics seen on at least minDays distinct days.
func (p *Patterns) RecurringTopics(minDays int) []Topic {
	if p == nil {
		return nil
	}
	var out []Topic
	for _, t := range p.Topics {
		if t.DaysPresent >= minDays {
			out = append(out, t)
		}
	}
	return out
}
