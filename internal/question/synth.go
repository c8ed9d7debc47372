// synth.go owns the asked-questions log and the emission throttle.

package question

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/util"
)

// maxQuestionsPerDay caps emissions per local calendar day.
const maxQuestionsPerDay = 3

// questionGap is the minimum spacing between emitted questions.
const questionGap = 4 * time.Hour

// dedupWindow is how far back a repeated stem stays suppressed.
const dedupWindow = 7 * 24 * time.Hour

// Synthesizer filters question candidates and records emissions.
type Synthesizer struct {
	root   mind.Root
	logger *zap.Logger

	// Clock supplies emission timestamps.
	Clock clock.Clock
}

// New returns a synthesizer rooted at root. A nil logger disables
// logging.
func New(root mind.Root, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{root: root, logger: logger, Clock: clock.System}
}

// Log returns the asked-questions log, oldest first. Missing files and
// malformed lines read as absent.
func (s *Synthesizer) Log() []Entry {
	f, err := os.Open(s.root.AskedQuestionsFile())
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Throttled reports whether emission is paused: three questions already
// today, or any question within the last four hours.
func (s *Synthesizer) Throttled(now time.Time) bool {
	return throttled(s.Log(), now)
}

func throttled(entries []Entry, now time.Time) bool {
	today := mind.LocalDateOf(now)
	var todayCount int
	for _, e := range entries {
		t, err := stream.ParseTimestamp(e.Timestamp)
		if err != nil {
			continue
		}
		if mind.LocalDateOf(t) == today {
			todayCount++
		}
		since := now.Sub(t)
		if since >= 0 && since < questionGap {
			return true
		}
	}
	return todayCount >= maxQuestionsPerDay
}

func askedRecently(entries []Entry, stem string, now time.Time) bool {
	cutoff := now.Add(-dedupWindow)
	for _, e := range entries {
		if e.QuestionStem != stem {
			continue
		}
		t, err := stream.ParseTimestamp(e.Timestamp)
		if err != nil {
			continue
		}
		if !t.Before(cutoff) {
			return true
		}
	}
	return false
}

// Filter applies the throttle and stem dedup to candidates, preserving
// order. A throttled synthesizer proposes nothing.
func (s *Synthesizer) Filter(now time.Time, candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}
	entries := s.Log()
	if throttled(entries, now) {
		return nil
	}
	seen := make(map[string]bool)
	var out []Candidate
	for _, c := range candidates {
		stem := Stem(c.Question)
		if stem == "" || seen[stem] || askedRecently(entries, stem, now) {
			continue
		}
		seen[stem] = true
		out = append(out, c)
	}
	return out
}

// Record appends an emitted question to the log.
func (s *Synthesizer) Record(c Candidate) error {
	entry := Entry{
		Timestamp:    stream.FormatTimestamp(s.Clock.Now()),
		Question:     c.Question,
		QuestionStem: Stem(c.Question),
		Category:     c.Category,
		Trigger:      c.Trigger,
		Context:      c.Context,
	}
	if err := util.AppendJSONLine(s.root.AskedQuestionsFile(), entry); err != nil {
		return fmt.Errorf("appending question log: %w", err)
	}
	s.logger.Info("recorded question",
		zap.String("stem", entry.QuestionStem),
		zap.String("category", c.Category))
	return nil
}

// RecordResponse marks the newest entry with the given stem as answered
// and rewrites the log atomically.
func (s *Synthesizer) RecordResponse(stem, summary string) error {
	entries := s.Log()
	match := -1
	for i, e := range entries {
		if e.QuestionStem == stem {
			match = i
		}
	}
	if match < 0 {
		return fmt.Errorf("no question with stem %q", stem)
	}
	entries[match].ResponseReceived = true
	entries[match].ResponseSummary = summary
	entries[match].ResponseTimestamp = stream.FormatTimestamp(s.Clock.Now())

	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding question log: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := util.AtomicWriteFile(s.root.AskedQuestionsFile(), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing question log: %w", err)
	}
	s.logger.Info("recorded response", zap.String("stem", stem))
	return nil
}
