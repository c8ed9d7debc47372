// safeguards.go gates engagement. The checks run in a fixed order and
// the first failure blocks with its reason.

package trigger

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/signals"
	"github.com/steveyegge/samara/internal/util"
)

// Quiet hours: no proactive contact between 23:00 and 07:00 local.
const (
	quietStartHour = 23
	quietEndHour   = 7
)

// engagementCooldown is the minimum gap between proactive engagements.
const engagementCooldown = 60 * time.Minute

// recentInteractionWindow blocks engagement when the person was already
// talking to the mind recently.
const recentInteractionWindow = 2 * time.Hour

// meetingHorizon is how far ahead the in-meeting check looks.
const meetingHorizon = time.Hour

// safeguard is one engagement gate. ok=false blocks with the reason.
type safeguard struct {
	name  string
	check func(now time.Time) (string, bool)
}

func (e *Evaluator) safeguards() []safeguard {
	return []safeguard{
		{"quiet_hours", e.quietHours},
		{"cooldown", e.cooldown},
		{"recent_interaction", e.recentInteraction},
		{"in_meeting", e.inMeeting},
	}
}

func (e *Evaluator) checkSafeguards(now time.Time) (string, bool) {
	for _, sg := range e.safeguards() {
		if reason, ok := sg.check(now); !ok {
			e.logger.Info("engagement blocked",
				zap.String("safeguard", sg.name),
				zap.String("reason", reason))
			return reason, false
		}
	}
	return "", true
}

func (e *Evaluator) quietHours(now time.Time) (string, bool) {
	hour := now.Hour()
	if hour >= quietStartHour || hour < quietEndHour {
		return fmt.Sprintf("Quiet hours (%02d:00-%02d:00)", quietStartHour, quietEndHour), false
	}
	return "", true
}

func (e *Evaluator) cooldown(now time.Time) (string, bool) {
	last, ok := e.LastEngagement()
	if !ok {
		return "", true
	}
	since := now.Sub(last)
	if since >= 0 && since < engagementCooldown {
		return fmt.Sprintf("Engaged %d min ago, still cooling down", int(since.Minutes())), false
	}
	return "", true
}

func (e *Evaluator) recentInteraction(now time.Time) (string, bool) {
	block, ok := signals.LatestBlockTime(e.root, now)
	if !ok {
		return "", true
	}
	since := now.Sub(block)
	if since >= 0 && since < recentInteractionWindow {
		return fmt.Sprintf("Interacted %d min ago", int(since.Minutes())), false
	}
	return "", true
}

func (e *Evaluator) inMeeting(now time.Time) (string, bool) {
	for _, ev := range signals.Upcoming(e.root, now, meetingHorizon) {
		if ev.MinutesUntil <= 0 {
			return fmt.Sprintf("In a meeting (%s)", ev.Title), false
		}
	}
	return "", true
}

// hasBatterySuppression reports a pending low-battery trigger asking to
// hold non-urgent contact. It flags the decision but never blocks.
func hasBatterySuppression(pending []signals.PendingTrigger) bool {
	for _, t := range pending {
		if suppress, _ := t.Data["suppress_non_urgent"].(bool); suppress {
			return true
		}
	}
	return false
}

// RecordEngagement stamps now into the cooldown file as a Unix epoch.
func (e *Evaluator) RecordEngagement() error {
	epoch := strconv.FormatInt(e.Clock.Now().Unix(), 10)
	if err := util.AtomicWriteFile(e.root.LastTriggerFile(), []byte(epoch), 0644); err != nil {
		return fmt.Errorf("writing engagement stamp: %w", err)
	}
	e.logger.Info("recorded engagement", zap.String("epoch", epoch))
	return nil
}

// LastEngagement reads the cooldown stamp. Missing and malformed files
// read as never engaged.
func (e *Evaluator) LastEngagement() (time.Time, bool) {
	data, err := os.ReadFile(e.root.LastTriggerFile())
	if err != nil {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0), true
}
