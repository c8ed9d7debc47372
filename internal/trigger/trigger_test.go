package trigger

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/memoryindex"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/question"
	"github.com/steveyegge/samara/internal/signals"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/util"
)

// evalNow sits mid-day, clear of quiet hours and base schedules.
var evalNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(t *testing.T, now time.Time) (*Evaluator, mind.Root) {
	t.Helper()
	root := mind.At(t.TempDir())
	e := New(root, nil)
	e.Clock = clock.Fixed(now)
	return e, root
}

func writeFixture(t *testing.T, path string, v any) {
	t.Helper()
	if err := util.AtomicWriteJSON(path, v); err != nil {
		t.Fatal(err)
	}
}

func writeEpisode(t *testing.T, root mind.Root, date, content string) {
	t.Helper()
	path := root.EpisodeFile(date)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func stampEngagement(t *testing.T, e *Evaluator, at time.Time) {
	t.Helper()
	saved := e.Clock
	e.Clock = clock.Fixed(at)
	if err := e.RecordEngagement(); err != nil {
		t.Fatal(err)
	}
	e.Clock = saved
}

func findTrigger(triggers []Trigger, typ string) (Trigger, bool) {
	for _, tr := range triggers {
		if tr.Type == typ {
			return tr, true
		}
	}
	return Trigger{}, false
}

func TestEvaluateNoSignals(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.ShouldEngage || d.Escalation != EscalationLog {
		t.Fatalf("decision = %+v, want quiet log", d)
	}
	if d.Reason != "No triggers detected" {
		t.Errorf("reason = %q", d.Reason)
	}
	if d.Best != nil || d.Triggers != nil {
		t.Errorf("decision carries triggers: %+v", d)
	}

	recs := readEvalLog(t, root)
	if len(recs) != 1 {
		t.Fatalf("eval log has %d lines, want 1", len(recs))
	}
	if recs[0].TriggerCount != 0 || recs[0].Escalation != EscalationLog {
		t.Errorf("record = %+v", recs[0])
	}
	if recs[0].BestTrigger != nil {
		t.Errorf("record has best trigger: %+v", recs[0].BestTrigger)
	}
}

func TestEvaluateQuietHours(t *testing.T) {
	lateNight := time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC)
	e, root := newTestEvaluator(t, lateNight)
	// A strong trigger that must not survive the safeguard.
	writeFixture(t, root.WeatherCacheFile(), signals.Weather{
		Condition: "Windy",
		Alerts:    []string{"High Wind Warning until 6 PM"},
	})

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.ShouldEngage {
		t.Error("engaged during quiet hours")
	}
	if d.Escalation != EscalationBlocked {
		t.Errorf("escalation = %q, want blocked", d.Escalation)
	}
	if !strings.Contains(d.Reason, "Quiet hours") {
		t.Errorf("reason = %q, want quiet hours", d.Reason)
	}
}

func TestQuietHoursBoundaries(t *testing.T) {
	tests := []struct {
		hour    int
		blocked bool
	}{
		{22, false},
		{23, true},
		{0, true},
		{6, true},
		{7, false},
		{12, false},
	}
	for _, tt := range tests {
		now := time.Date(2026, 1, 15, tt.hour, 30, 0, 0, time.UTC)
		e, _ := newTestEvaluator(t, now)
		reason, ok := e.quietHours(now)
		if ok != !tt.blocked {
			t.Errorf("hour %d: blocked=%v reason=%q", tt.hour, !ok, reason)
		}
	}
}

func TestSafeguardPrecedence(t *testing.T) {
	lateNight := time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC)
	midday := evalNow

	type state struct {
		engagement bool
		episode    bool
		meeting    bool
	}
	all := state{engagement: true, episode: true, meeting: true}

	setup := func(t *testing.T, now time.Time, st state) *Evaluator {
		e, root := newTestEvaluator(t, now)
		if st.engagement {
			stampEngagement(t, e, now.Add(-30*time.Minute))
		}
		if st.episode {
			block := now.Add(-time.Hour)
			writeEpisode(t, root, mind.LocalDateOf(now),
				"## "+block.Format("15:04")+"\n\nTalked through the plan.\n")
		}
		if st.meeting {
			writeFixture(t, root.CalendarCacheFile(), map[string]any{
				"events": []map[string]any{
					{"title": "Standup", "start": now.Add(-5 * time.Minute).Format(time.RFC3339)},
				},
			})
		}
		return e
	}

	tests := []struct {
		name   string
		now    time.Time
		state  state
		reason string
	}{
		{"quiet hours wins over everything", lateNight, all, "Quiet hours"},
		{"then cooldown", midday, all, "Engaged 30 min ago"},
		{"then recent interaction", midday, state{episode: true, meeting: true}, "Interacted 60 min ago"},
		{"then in-meeting", midday, state{meeting: true}, "In a meeting (Standup)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t, tt.now, tt.state)
			d, err := e.Evaluate(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if d.Escalation != EscalationBlocked {
				t.Fatalf("escalation = %q, want blocked", d.Escalation)
			}
			if !strings.Contains(d.Reason, tt.reason) {
				t.Errorf("reason = %q, want %q", d.Reason, tt.reason)
			}
		})
	}

	t.Run("all clear evaluates", func(t *testing.T) {
		e := setup(t, midday, state{})
		d, err := e.Evaluate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if d.Escalation == EscalationBlocked {
			t.Fatalf("blocked with no safeguard tripped: %+v", d)
		}
	})
}

func TestFuse(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		d := fuse(nil)
		if d.Escalation != EscalationLog || d.Reason != "No triggers detected" {
			t.Errorf("decision = %+v", d)
		}
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		d := fuse([]Trigger{
			{Type: "first", Confidence: 0.5, Reason: "a"},
			{Type: "second", Confidence: 0.5, Reason: "b"},
		})
		if d.Best == nil || d.Best.Type != "first" {
			t.Errorf("best = %+v, want first", d.Best)
		}
	})

	t.Run("keeps top five sorted", func(t *testing.T) {
		var triggers []Trigger
		for i := 0; i < 7; i++ {
			triggers = append(triggers, Trigger{Type: "t", Confidence: float64(i) / 10})
		}
		d := fuse(triggers)
		if len(d.Triggers) != topTriggerCount {
			t.Fatalf("kept %d triggers, want %d", len(d.Triggers), topTriggerCount)
		}
		for i := 1; i < len(d.Triggers); i++ {
			if d.Triggers[i].Confidence > d.Triggers[i-1].Confidence {
				t.Fatalf("triggers not sorted: %+v", d.Triggers)
			}
		}
	})

	t.Run("engage threshold", func(t *testing.T) {
		d := fuse([]Trigger{{Type: "t", Confidence: 0.85, Reason: "big"}})
		if !d.ShouldEngage || d.Escalation != EscalationEngage || d.Reason != "big" {
			t.Errorf("decision = %+v", d)
		}
	})
}

func TestPatternTriggers(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.PatternsFile(), signals.Patterns{
		Temporal: signals.TemporalPattern{
			ActiveHours:          []int{evalNow.Hour()},
			DailyAverageMessages: 20,
		},
		Topics: []signals.Topic{{Topic: "garden redesign", DaysPresent: 6}},
	})

	store := stream.New(root, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ev := stream.NewEvent(evalNow.Add(-time.Duration(i+1)*time.Hour),
			stream.SurfaceIMessage, stream.TypeInteraction, stream.DirectionInbound, "hello")
		if err := store.Append(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	d, err := e.Evaluate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	quiet, ok := findTrigger(d.Triggers, "pattern_quiet")
	if !ok {
		t.Fatalf("no pattern_quiet trigger: %+v", d.Triggers)
	}
	if quiet.Confidence != 0.4 || !strings.Contains(quiet.Reason, "only 2 messages") {
		t.Errorf("quiet trigger = %+v", quiet)
	}

	topic, ok := findTrigger(d.Triggers, "recurring_topic")
	if !ok {
		t.Fatalf("no recurring_topic trigger: %+v", d.Triggers)
	}
	if topic.Confidence != 0.3 || !strings.Contains(topic.Reason, "garden redesign") {
		t.Errorf("topic trigger = %+v", topic)
	}

	// The dip wins and lands in the dream band.
	if d.Best == nil || d.Best.Type != "pattern_quiet" || d.Escalation != EscalationDream {
		t.Errorf("decision = %+v", d)
	}
}

func TestPatternTriggersQuietOnlyWhenBelowAverage(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.PatternsFile(), signals.Patterns{
		Temporal: signals.TemporalPattern{
			ActiveHours:          []int{evalNow.Hour()},
			DailyAverageMessages: 20,
		},
	})

	store := stream.New(root, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		ev := stream.NewEvent(evalNow.Add(-time.Duration(i+1)*time.Minute),
			stream.SurfaceIMessage, stream.TypeInteraction, stream.DirectionInbound, "busy day")
		if err := store.Append(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	d, err := e.Evaluate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := findTrigger(d.Triggers, "pattern_quiet"); ok {
		t.Errorf("dip fired on a busy day: %+v", d.Triggers)
	}
}

func TestCalendarTriggers(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.CalendarCacheFile(), map[string]any{
		"events": []map[string]any{
			{"title": "Design review", "start": evalNow.Add(10 * time.Minute).Format(time.RFC3339)},
			{"title": "Dentist", "start": evalNow.Add(45 * time.Minute).Format(time.RFC3339)},
		},
	})

	triggers := e.calendarTriggers(evalNow)
	if len(triggers) != 2 {
		t.Fatalf("got %d triggers: %+v", len(triggers), triggers)
	}
	if triggers[0].Confidence != 0.8 || !strings.Contains(triggers[0].Reason, "Design review in 10 min") {
		t.Errorf("near event = %+v", triggers[0])
	}
	if triggers[1].Confidence != 0.4 {
		t.Errorf("far event = %+v", triggers[1])
	}
	if !strings.Contains(triggers[0].SuggestedMessage, "Design review starts in 10 minutes") {
		t.Errorf("suggested message = %q", triggers[0].SuggestedMessage)
	}
}

func TestCalendarTriggersSkipStarted(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.CalendarCacheFile(), map[string]any{
		"events": []map[string]any{
			{"title": "Running", "start": evalNow.Add(-5 * time.Minute).Format(time.RFC3339)},
		},
	})
	if triggers := e.calendarTriggers(evalNow); triggers != nil {
		t.Errorf("started event produced triggers: %+v", triggers)
	}
}

func TestAnomalyTriggers(t *testing.T) {
	p := &signals.Patterns{Anomalies: []signals.Anomaly{
		{Description: "No messages for 3 days", Severity: "high"},
		{Description: "Unusual late-night activity", Severity: "MEDIUM"},
		{Description: "Slightly fewer walks", Severity: "low"},
		{Description: "Weird but unrated", Severity: "critical"},
	}}
	triggers := anomalyTriggers(p)
	if len(triggers) != 3 {
		t.Fatalf("got %d triggers: %+v", len(triggers), triggers)
	}
	want := []float64{0.7, 0.5, 0.3}
	for i, tr := range triggers {
		if tr.Confidence != want[i] {
			t.Errorf("trigger %d confidence = %v, want %v", i, tr.Confidence, want[i])
		}
	}
}

type fakeIndex struct {
	results []memoryindex.Result
	err     error
	queries []string
}

func (f *fakeIndex) Search(_ context.Context, query string, _ int) ([]memoryindex.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestCrossTemporalTriggers(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeEpisode(t, root, mind.LocalDateOf(evalNow),
		"## 08:30\n\nSketched the greenhouse irrigation loop again.\n")

	idx := &fakeIndex{results: []memoryindex.Result{
		{ID: "m1", Text: "irrigation sketching", Date: mind.LocalDateOf(evalNow), Distance: 0.1},
		{ID: "m2", Text: "totally unrelated", Date: "2025-12-01", Distance: 0.5},
		{ID: "m3", Text: "greenhouse irrigation brainstorm", Date: "2025-12-01", Distance: 0.12},
	}}
	e.Memory = idx

	triggers := e.crossTemporalTriggers(context.Background(), evalNow)
	if len(triggers) != 1 {
		t.Fatalf("got %d triggers: %+v", len(triggers), triggers)
	}
	tr := triggers[0]
	if tr.Confidence != 0.5 || !strings.Contains(tr.Reason, "2025-12-01") {
		t.Errorf("trigger = %+v", tr)
	}
	if len(idx.queries) != 1 || !strings.Contains(idx.queries[0], "irrigation") {
		t.Errorf("queries = %v", idx.queries)
	}
}

func TestCrossTemporalSkipsWithoutEpisode(t *testing.T) {
	e, _ := newTestEvaluator(t, evalNow)
	idx := &fakeIndex{results: []memoryindex.Result{{Date: "2025-12-01", Distance: 0.1}}}
	e.Memory = idx
	if triggers := e.crossTemporalTriggers(context.Background(), evalNow); triggers != nil {
		t.Errorf("triggers without an episode: %+v", triggers)
	}
	if len(idx.queries) != 0 {
		t.Errorf("searched with an empty snippet: %v", idx.queries)
	}
}

func TestCrossTemporalUnavailableIndex(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeEpisode(t, root, mind.LocalDateOf(evalNow), "## 08:30\n\nNotes.\n")
	if triggers := e.crossTemporalTriggers(context.Background(), evalNow); triggers != nil {
		t.Errorf("unavailable index produced triggers: %+v", triggers)
	}
}

func TestLocationSuppression(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.LocationFile(), signals.LocationState{
		Trigger: &signals.LocationTrigger{
			Type:               "location",
			Confidence:         0.9,
			Reason:             "Driving on I-90",
			SuppressEngagement: true,
		},
	})
	// Another strong trigger that must be discarded.
	writeFixture(t, root.WeatherCacheFile(), signals.Weather{Alerts: []string{"Flood Watch"}})

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Escalation != EscalationSuppressed || d.ShouldEngage {
		t.Fatalf("decision = %+v, want suppressed", d)
	}
	if d.Reason != "Driving on I-90" {
		t.Errorf("reason = %q", d.Reason)
	}
	if d.Triggers != nil {
		t.Errorf("suppressed decision carries triggers: %+v", d.Triggers)
	}
}

func TestLocationTriggerForwarded(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.LocationFile(), signals.LocationState{
		Trigger: &signals.LocationTrigger{
			Type:       "location_arrival",
			Confidence: 0.45,
			Reason:     "Arrived home",
		},
	})

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tr, ok := findTrigger(d.Triggers, "location_arrival")
	if !ok || tr.Confidence != 0.45 {
		t.Errorf("decision = %+v", d)
	}
}

func TestBatteryFlag(t *testing.T) {
	pendingFixture := map[string]any{
		"triggers": []map[string]any{{
			"type":       "battery",
			"confidence": 0.2,
			"reason":     "Battery at 15%",
			"data":       map[string]any{"suppress_non_urgent": true},
		}},
	}

	t.Run("evaluation continues with the flag", func(t *testing.T) {
		e, root := newTestEvaluator(t, evalNow)
		writeFixture(t, root.PendingTriggersFile(), pendingFixture)

		d, err := e.Evaluate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !d.LowBattery {
			t.Error("low battery flag missing")
		}
		if d.Escalation == EscalationBlocked || d.Escalation == EscalationSuppressed {
			t.Errorf("battery stopped evaluation: %+v", d)
		}
		if _, ok := findTrigger(d.Triggers, "battery"); !ok {
			t.Errorf("battery trigger not forwarded: %+v", d.Triggers)
		}
	})

	t.Run("blocked decisions still carry the flag", func(t *testing.T) {
		lateNight := time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC)
		e, root := newTestEvaluator(t, lateNight)
		writeFixture(t, root.PendingTriggersFile(), pendingFixture)

		d, err := e.Evaluate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if d.Escalation != EscalationBlocked || !d.LowBattery {
			t.Errorf("decision = %+v", d)
		}
	})
}

func TestWeatherAlerts(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.WeatherCacheFile(), signals.Weather{
		Condition: "Windy",
		Alerts:    []string{"High Wind Warning until 6 PM"},
	})

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	tr, ok := findTrigger(d.Triggers, "weather")
	if !ok || tr.Confidence != 0.6 || tr.Reason != "High Wind Warning until 6 PM" {
		t.Fatalf("decision = %+v", d)
	}
	if d.Escalation != EscalationWake {
		t.Errorf("escalation = %q, want wake", d.Escalation)
	}
}

func TestQuestionTriggers(t *testing.T) {
	e, _ := newTestEvaluator(t, evalNow)
	e.Questions = func(context.Context, time.Time) []question.Candidate {
		return []question.Candidate{
			{Question: "Still on for the climb Saturday?", Trigger: "recurring_topic", Confidence: 0.7},
			{Question: "Too weak to ask", Confidence: 0.5},
		}
	}

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Triggers) != 1 {
		t.Fatalf("got %d triggers: %+v", len(d.Triggers), d.Triggers)
	}
	tr := d.Triggers[0]
	if tr.Type != "question" || tr.Confidence != 0.7 {
		t.Errorf("trigger = %+v", tr)
	}
	if tr.SuggestedMessage != "Still on for the climb Saturday?" {
		t.Errorf("suggested message = %q", tr.SuggestedMessage)
	}
}

func TestCooldownAfterRecordEngagement(t *testing.T) {
	e, _ := newTestEvaluator(t, evalNow)
	stampEngagement(t, e, evalNow.Add(-30*time.Minute))

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Escalation != EscalationBlocked || !strings.Contains(d.Reason, "Engaged 30 min ago") {
		t.Fatalf("decision = %+v", d)
	}

	// Past the cooldown the same stamp no longer blocks.
	e.Clock = clock.Fixed(evalNow.Add(time.Hour))
	d, err = e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Escalation == EscalationBlocked {
		t.Fatalf("still blocked after cooldown: %+v", d)
	}
}

func TestLastEngagement(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)

	if _, ok := e.LastEngagement(); ok {
		t.Fatal("engagement read from a fresh root")
	}

	stampEngagement(t, e, evalNow)
	got, ok := e.LastEngagement()
	if !ok || !got.Equal(time.Unix(evalNow.Unix(), 0)) {
		t.Fatalf("got %v ok=%v", got, ok)
	}

	if err := os.WriteFile(root.LastTriggerFile(), []byte("not-a-number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.LastEngagement(); ok {
		t.Fatal("malformed stamp read as engaged")
	}
}

func TestRecentInteractionBlocks(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeEpisode(t, root, mind.LocalDateOf(evalNow),
		"## 09:00\n\nMorning pages.\n\n## 11:00\n\nPlanning session.\n")

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Escalation != EscalationBlocked || !strings.Contains(d.Reason, "Interacted 60 min ago") {
		t.Fatalf("decision = %+v", d)
	}
}

func TestOldInteractionDoesNotBlock(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeEpisode(t, root, mind.LocalDateOf(evalNow), "## 08:00\n\nEarly notes.\n")

	d, err := e.Evaluate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Escalation == EscalationBlocked {
		t.Fatalf("blocked by a 4h-old interaction: %+v", d)
	}
}

func TestEvaluationLogAppends(t *testing.T) {
	e, root := newTestEvaluator(t, evalNow)
	writeFixture(t, root.WeatherCacheFile(), signals.Weather{Alerts: []string{"Heat Advisory"}})

	ctx := context.Background()
	if _, err := e.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(ctx); err != nil {
		t.Fatal(err)
	}

	recs := readEvalLog(t, root)
	if len(recs) != 2 {
		t.Fatalf("eval log has %d lines, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.Timestamp != stream.FormatTimestamp(evalNow) {
			t.Errorf("timestamp = %q", rec.Timestamp)
		}
		if rec.TriggerCount != 1 || rec.Escalation != EscalationWake {
			t.Errorf("record = %+v", rec)
		}
		if rec.BestTrigger == nil || rec.BestTrigger.Type != "weather" {
			t.Errorf("best trigger = %+v", rec.BestTrigger)
		}
	}
}

func readEvalLog(t *testing.T, root mind.Root) []evalRecord {
	t.Helper()
	f, err := os.Open(root.TriggerEvalLogFile())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var recs []evalRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec evalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad eval log line %q: %v", scanner.Text(), err)
		}
		recs = append(recs, rec)
	}
	return recs
}
