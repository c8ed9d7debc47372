// sources.go gathers triggers from each signal. Collection order is
// fixed so confidence ties resolve the same way every run.

package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/memoryindex"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/signals"
	"github.com/steveyegge/samara/internal/stream"
)

const (
	// activityDipRatio: active hour with today under this share of the
	// daily average reads as unusual quiet.
	activityDipRatio      = 0.3
	activityDipConfidence = 0.4

	recurringTopicMinDays    = 5
	recurringTopicConfidence = 0.3

	crossTemporalMaxDistance  = 0.3
	crossTemporalConfidence   = 0.5
	crossTemporalSnippetRunes = 500
	crossTemporalResults      = 5

	weatherAlertConfidence = 0.6

	// questionMinConfidence filters synthesizer candidates.
	questionMinConfidence = 0.6
)

var anomalyConfidence = map[string]float64{
	"high":   0.7,
	"medium": 0.5,
	"low":    0.3,
}

// collect gathers triggers from every source. A location trigger with
// suppress_engagement set aborts collection and is returned instead.
func (e *Evaluator) collect(ctx context.Context, now time.Time, pending []signals.PendingTrigger) ([]Trigger, *signals.LocationTrigger) {
	var triggers []Trigger

	patterns := signals.LoadPatterns(e.root)
	triggers = append(triggers, e.patternTriggers(ctx, now, patterns)...)
	triggers = append(triggers, e.calendarTriggers(now)...)
	triggers = append(triggers, anomalyTriggers(patterns)...)
	triggers = append(triggers, e.crossTemporalTriggers(ctx, now)...)

	if loc := signals.LoadLocation(e.root); loc != nil && loc.Trigger != nil {
		if loc.Trigger.SuppressEngagement {
			return nil, loc.Trigger
		}
		triggers = append(triggers, Trigger{
			Type:       loc.Trigger.Type,
			Confidence: loc.Trigger.Confidence,
			Reason:     loc.Trigger.Reason,
		})
	}

	triggers = append(triggers, forwardPending(pending)...)
	triggers = append(triggers, weatherTriggers(signals.LoadWeather(e.root))...)
	triggers = append(triggers, e.questionTriggers(ctx, now)...)
	return triggers, nil
}

func (e *Evaluator) patternTriggers(ctx context.Context, now time.Time, p *signals.Patterns) []Trigger {
	if p == nil {
		return nil
	}
	var out []Trigger
	if p.ActiveNow(now) && p.Temporal.DailyAverageMessages > 0 {
		count := e.todayInteractions(ctx, now)
		if float64(count) < activityDipRatio*p.Temporal.DailyAverageMessages {
			out = append(out, Trigger{
				Type:       "pattern_quiet",
				Confidence: activityDipConfidence,
				Reason: fmt.Sprintf("Usually active now but only %d messages today (avg %.0f)",
					count, p.Temporal.DailyAverageMessages),
			})
		}
	}
	if topics := p.RecurringTopics(recurringTopicMinDays); len(topics) > 0 {
		top := topics[0]
		out = append(out, Trigger{
			Type:       "recurring_topic",
			Confidence: recurringTopicConfidence,
			Reason:     fmt.Sprintf("%q has come up %d days running", top.Topic, top.DaysPresent),
		})
	}
	return out
}

// todayInteractions counts interaction events since local midnight,
// distilled or not. Query failures degrade to zero.
func (e *Evaluator) todayInteractions(ctx context.Context, now time.Time) int {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	hours := now.Sub(midnight).Hours()
	if hours <= 0 {
		return 0
	}
	events, err := e.store.Query(ctx, stream.QueryOptions{
		Hours:            hours,
		Type:             stream.TypeInteraction,
		IncludeDistilled: true,
		Now:              now,
	})
	if err != nil {
		e.logger.Warn("counting today's messages", zap.Error(err))
		return 0
	}
	return len(events)
}

func (e *Evaluator) calendarTriggers(now time.Time) []Trigger {
	var out []Trigger
	for _, ev := range signals.Upcoming(e.root, now, meetingHorizon) {
		if ev.MinutesUntil <= 0 {
			// Started events are the in-meeting safeguard's business.
			continue
		}
		confidence := signals.LeadConfidence(ev.MinutesUntil)
		if confidence == 0 {
			continue
		}
		minutes := int(ev.MinutesUntil)
		out = append(out, Trigger{
			Type:             "calendar",
			Confidence:       confidence,
			Reason:           fmt.Sprintf("%s in %d min", ev.Title, minutes),
			SuggestedMessage: fmt.Sprintf("Heads up: %s starts in %d minutes.", ev.Title, minutes),
		})
	}
	return out
}

func anomalyTriggers(p *signals.Patterns) []Trigger {
	if p == nil {
		return nil
	}
	var out []Trigger
	for _, a := range p.Anomalies {
		confidence, ok := anomalyConfidence[strings.ToLower(a.Severity)]
		if !ok {
			continue
		}
		out = append(out, Trigger{
			Type:       "anomaly",
			Confidence: confidence,
			Reason:     a.Description,
		})
	}
	return out
}

// crossTemporalTriggers searches long-term memory with today's episode
// snippet. Close matches from other days suggest an echo worth
// surfacing.
func (e *Evaluator) crossTemporalTriggers(ctx context.Context, now time.Time) []Trigger {
	snippet := signals.Snippet(e.root, now, crossTemporalSnippetRunes)
	if snippet == "" {
		return nil
	}
	results, err := e.Memory.Search(ctx, snippet, crossTemporalResults)
	if err != nil {
		if !errors.Is(err, memoryindex.ErrUnavailable) {
			e.logger.Warn("memory search failed", zap.Error(err))
		}
		return nil
	}
	today := mind.LocalDateOf(now)
	var out []Trigger
	for _, r := range results {
		if r.Date == today || r.Distance >= crossTemporalMaxDistance {
			continue
		}
		out = append(out, Trigger{
			Type:       "cross_temporal",
			Confidence: crossTemporalConfidence,
			Reason:     fmt.Sprintf("Today's activity echoes %s: %s", r.Date, clip(r.Text, 80)),
		})
	}
	return out
}

// forwardPending passes satellite-deposited triggers through verbatim.
func forwardPending(pending []signals.PendingTrigger) []Trigger {
	var out []Trigger
	for _, t := range pending {
		out = append(out, Trigger{
			Type:       t.Type,
			Confidence: t.Confidence,
			Reason:     t.Reason,
		})
	}
	return out
}

func weatherTriggers(w *signals.Weather) []Trigger {
	if w == nil {
		return nil
	}
	var out []Trigger
	for _, alert := range w.Alerts {
		out = append(out, Trigger{
			Type:       "weather",
			Confidence: weatherAlertConfidence,
			Reason:     alert,
		})
	}
	return out
}

func (e *Evaluator) questionTriggers(ctx context.Context, now time.Time) []Trigger {
	if e.Questions == nil {
		return nil
	}
	var out []Trigger
	for _, c := range e.Questions(ctx, now) {
		if c.Confidence < questionMinConfidence {
			continue
		}
		reason := c.Trigger
		if reason == "" {
			reason = "Question ready to ask"
		}
		out = append(out, Trigger{
			Type:             "question",
			Confidence:       c.Confidence,
			Reason:           reason,
			SuggestedMessage: c.Question,
		})
	}
	return out
}

// clip truncates s to n runes for log-sized reasons.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
