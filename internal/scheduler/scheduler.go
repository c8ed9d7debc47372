// Package scheduler decides when the mind should wake. A fixed base
// schedule guarantees a few passes a day; between those, queue
// pressure, imminent calendar events and accumulated triggers can earn
// an early wake through a confidence score.
package scheduler

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/signals"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/util"
)

// Wake types, in decreasing weight. A full wake loads the whole digest
// and runs trigger evaluation; a light wake only checks for urgent work.
const (
	WakeFull  = "full"
	WakeLight = "light"
	WakeNone  = "none"
)

// Confidence thresholds for unscheduled wakes.
const (
	fullWakeConfidence  = 0.7
	lightWakeConfidence = 0.4
)

// DefaultBaseHours are the local hours of the fixed wake schedule.
var DefaultBaseHours = []int{9, 14, 20}

// DefaultMinInterval is the shortest allowed gap between wakes.
const DefaultMinInterval = 60 * time.Minute

// baseHourSlack is how far from a base hour the scheduled wake still
// fires.
const baseHourSlack = 15 * time.Minute

// staleWakeAge is how long without a wake before restlessness adds
// confidence.
const staleWakeAge = 180 * time.Minute

// pendingTriggerThreshold is how many parked triggers add confidence.
const pendingTriggerThreshold = 3

// State is scheduler-state.json.
type State struct {
	LastWake       string `json:"last_wake"`
	LastWakeType   string `json:"last_wake_type"`
	WakeCountToday int    `json:"wake_count_today"`
	Date           string `json:"date"`
}

// Decision is the outcome of a wake check.
type Decision struct {
	Wake       bool    `json:"wake"`
	WakeType   string  `json:"wake_type"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Scheduler owns the wake decision and its persisted state.
type Scheduler struct {
	root   mind.Root
	logger *zap.Logger

	// Clock supplies the local reference time.
	Clock clock.Clock

	// BaseHours overrides the fixed schedule; nil means
	// DefaultBaseHours.
	BaseHours []int

	// MinInterval overrides the wake cooldown; zero means
	// DefaultMinInterval.
	MinInterval time.Duration
}

// New returns a scheduler rooted at root. A nil logger disables logging.
func New(root mind.Root, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{root: root, logger: logger, Clock: clock.System}
}

// ShouldWakeNow runs the decision ladder: cooldown first, then the base
// schedule, then signal confidence.
func (s *Scheduler) ShouldWakeNow() Decision {
	now := s.Clock.Now()

	lastWake, woke := s.lastWakeTime()
	if woke {
		since := now.Sub(lastWake)
		if since < s.minInterval() {
			return Decision{
				Wake:     false,
				WakeType: WakeNone,
				Reason:   fmt.Sprintf("Too soon since last wake (%d min ago)", int(since.Minutes())),
			}
		}
	}

	if hour, ok := s.nearBaseHour(now); ok {
		return Decision{
			Wake:     true,
			WakeType: WakeFull,
			Reason:   fmt.Sprintf("Scheduled %02d:00 wake", hour),
		}
	}

	confidence, reasons := s.Confidence(now)
	reason := strings.Join(reasons, "; ")
	if reason == "" {
		reason = "No wake signals"
	}
	d := Decision{Confidence: confidence, Reason: reason}
	switch {
	case confidence >= fullWakeConfidence:
		d.Wake, d.WakeType = true, WakeFull
	case confidence >= lightWakeConfidence:
		d.Wake, d.WakeType = true, WakeLight
	default:
		d.WakeType = WakeNone
	}
	return d
}

// Confidence scores the case for an unscheduled wake from queue,
// calendar, wake-staleness and pending-trigger signals.
func (s *Scheduler) Confidence(now time.Time) (float64, []string) {
	var score float64
	var reasons []string

	if signals.HasUrgent(signals.LoadQueue(s.root)) {
		score += 0.4
		reasons = append(reasons, "urgent queue items waiting")
	}

	if minutes, ok := nearestUpcoming(signals.Upcoming(s.root, now, time.Hour)); ok {
		switch {
		case minutes < 30:
			score += 0.5
			reasons = append(reasons, fmt.Sprintf("calendar event in %d min", int(minutes)))
		case minutes < 60:
			score += 0.3
			reasons = append(reasons, fmt.Sprintf("calendar event in %d min", int(minutes)))
		}
	}

	lastWake, woke := s.lastWakeTime()
	if !woke || now.Sub(lastWake) >= staleWakeAge {
		score += 0.2
		reasons = append(reasons, "no wake in over 3 hours")
	}

	if pending := len(signals.LoadPendingTriggers(s.root)); pending >= pendingTriggerThreshold {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("%d triggers pending", pending))
	}

	return math.Min(1, math.Max(0, score)), reasons
}

// RecordWake persists a wake of the given type, resetting the daily
// counter on date rollover.
func (s *Scheduler) RecordWake(wakeType string) error {
	now := s.Clock.Now()
	state := s.loadState()

	today := mind.LocalDateOf(now)
	if state.Date != today {
		state.WakeCountToday = 0
		state.Date = today
	}
	state.LastWake = stream.FormatTimestamp(now)
	state.LastWakeType = wakeType
	state.WakeCountToday++

	if err := util.AtomicWriteJSON(s.root.SchedulerStateFile(), state); err != nil {
		return fmt.Errorf("writing scheduler state: %w", err)
	}
	s.logger.Info("recorded wake",
		zap.String("type", wakeType),
		zap.Int("count_today", state.WakeCountToday))
	return nil
}

// LoadState returns the persisted state with the daily counter reset
// applied for reads. Missing and malformed files read as the zero state.
func (s *Scheduler) LoadState() State {
	state := s.loadState()
	if state.Date != mind.LocalDateOf(s.Clock.Now()) {
		state.WakeCountToday = 0
	}
	return state
}

func (s *Scheduler) loadState() State {
	var state State
	util.ReadJSONFile(s.root.SchedulerStateFile(), &state)
	return state
}

// lastWakeTime parses the stored last wake. A missing or malformed
// timestamp reads as "never woke".
func (s *Scheduler) lastWakeTime() (time.Time, bool) {
	state := s.loadState()
	if state.LastWake == "" {
		return time.Time{}, false
	}
	t, err := stream.ParseTimestamp(state.LastWake)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// nearBaseHour reports whether now is within the slack window of a base
// hour.
func (s *Scheduler) nearBaseHour(now time.Time) (int, bool) {
	hours := s.BaseHours
	if hours == nil {
		hours = DefaultBaseHours
	}
	for _, hour := range hours {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		diff := now.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff <= baseHourSlack {
			return hour, true
		}
	}
	return 0, false
}

func (s *Scheduler) minInterval() time.Duration {
	if s.MinInterval > 0 {
		return s.MinInterval
	}
	return DefaultMinInterval
}

// nearestUpcoming returns the smallest positive minutes-until among
// events. In-progress events do not make a wake more urgent.
func nearestUpcoming(events []signals.UpcomingEvent) (float64, bool) {
	best := math.Inf(1)
	for _, ev := range events {
		if ev.MinutesUntil > 0 && ev.MinutesUntil < best {
			best = ev.MinutesUntil
		}
	}
	return best, !math.IsInf(best, 1)
}
