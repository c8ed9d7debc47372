// Package trigger fuses every ambient signal into one engagement
// verdict. Safeguards run first and can block outright; surviving
// evaluations gather triggers from patterns, calendar, anomalies,
// cross-temporal memory, location, satellites, weather and the question
// synthesizer, then escalate on the strongest one.
package trigger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/memoryindex"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/question"
	"github.com/steveyegge/samara/internal/signals"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/util"
)

// Escalation levels. log through engage form the confidence ladder;
// blocked and suppressed short-circuit it.
const (
	EscalationLog        = "log"
	EscalationDream      = "dream"
	EscalationWake       = "wake"
	EscalationEngage     = "engage"
	EscalationSuppressed = "suppressed"
	EscalationBlocked    = "blocked"
)

// topTriggerCount is how many triggers a decision carries for context.
const topTriggerCount = 5

// Trigger is one reason to consider engaging.
type Trigger struct {
	Type             string  `json:"type"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
	SuggestedMessage string  `json:"suggested_message,omitempty"`
}

// Decision is the outcome of one evaluation pass.
type Decision struct {
	ShouldEngage bool      `json:"should_engage"`
	Escalation   string    `json:"escalation_level"`
	Reason       string    `json:"reason"`
	Best         *Trigger  `json:"best_trigger,omitempty"`
	Triggers     []Trigger `json:"triggers,omitempty"`
	LowBattery   bool      `json:"low_battery,omitempty"`
}

// Evaluator runs the trigger evaluation over one mind root.
type Evaluator struct {
	root   mind.Root
	store  *stream.Store
	logger *zap.Logger

	// Clock supplies the local reference time.
	Clock clock.Clock

	// Memory answers cross-temporal searches. Defaults to the
	// unavailable backend.
	Memory memoryindex.Index

	// Questions supplies question candidates. Nil means no synthesizer
	// is wired in.
	Questions func(ctx context.Context, now time.Time) []question.Candidate
}

// New returns an evaluator rooted at root. A nil logger disables
// logging.
func New(root mind.Root, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		root:   root,
		store:  stream.New(root, logger),
		logger: logger,
		Clock:  clock.System,
		Memory: memoryindex.Unavailable{},
	}
}

// Evaluate runs safeguards, gathers triggers and fuses them into a
// decision. The decision is always returned; the error covers only the
// evaluation-log append.
func (e *Evaluator) Evaluate(ctx context.Context) (Decision, error) {
	now := e.Clock.Now()

	pending := signals.LoadPendingTriggers(e.root)
	lowBattery := hasBatterySuppression(pending)

	if reason, ok := e.checkSafeguards(now); !ok {
		d := Decision{Escalation: EscalationBlocked, Reason: reason, LowBattery: lowBattery}
		return d, e.logEvaluation(now, d, 0)
	}

	triggers, suppressor := e.collect(ctx, now, pending)
	if suppressor != nil {
		d := Decision{Escalation: EscalationSuppressed, Reason: suppressor.Reason, LowBattery: lowBattery}
		return d, e.logEvaluation(now, d, 0)
	}

	d := fuse(triggers)
	d.LowBattery = lowBattery
	e.logger.Info("evaluated triggers",
		zap.Int("count", len(triggers)),
		zap.String("escalation", d.Escalation))
	return d, e.logEvaluation(now, d, len(triggers))
}

// fuse picks the strongest trigger and maps it to an escalation band.
// Ties keep the earliest-collected trigger.
func fuse(triggers []Trigger) Decision {
	if len(triggers) == 0 {
		return Decision{Escalation: EscalationLog, Reason: "No triggers detected"}
	}

	best := 0
	for i, t := range triggers {
		if t.Confidence > triggers[best].Confidence {
			best = i
		}
	}

	top := make([]Trigger, len(triggers))
	copy(top, triggers)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Confidence > top[j].Confidence
	})
	if len(top) > topTriggerCount {
		top = top[:topTriggerCount]
	}

	winner := triggers[best]
	escalation := escalationFor(winner.Confidence)
	return Decision{
		ShouldEngage: escalation == EscalationEngage,
		Escalation:   escalation,
		Reason:       winner.Reason,
		Best:         &winner,
		Triggers:     top,
	}
}

// escalationFor maps a confidence to its band.
func escalationFor(confidence float64) string {
	switch {
	case confidence < 0.3:
		return EscalationLog
	case confidence < 0.6:
		return EscalationDream
	case confidence < 0.8:
		return EscalationWake
	default:
		return EscalationEngage
	}
}

type bestRecord struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

type evalRecord struct {
	Timestamp    string      `json:"timestamp"`
	TriggerCount int         `json:"trigger_count"`
	BestTrigger  *bestRecord `json:"best_trigger,omitempty"`
	Escalation   string      `json:"escalation"`
}

func (e *Evaluator) logEvaluation(now time.Time, d Decision, count int) error {
	rec := evalRecord{
		Timestamp:    stream.FormatTimestamp(now),
		TriggerCount: count,
		Escalation:   d.Escalation,
	}
	if d.Best != nil {
		rec.BestTrigger = &bestRecord{
			Type:       d.Best.Type,
			Confidence: d.Best.Confidence,
			Reason:     d.Best.Reason,
		}
	}
	if err := util.AppendJSONLine(e.root.TriggerEvalLogFile(), rec); err != nil {
		return fmt.Errorf("appending evaluation log: %w", err)
	}
	return nil
}
