package feed

import (
	"testing"
	"time"

	"github.com/steveyegge/samara/internal/stream"
)

func TestParseStreamLine(t *testing.T) {
	now := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	ev := stream.NewEvent(now, stream.SurfaceIMessage, stream.TypeInteraction, stream.DirectionInbound, "asked about the visa timeline")
	line, err := ev.EncodeLine()
	if err != nil {
		t.Fatalf("EncodeLine: %v", err)
	}

	got, ok := parseStreamLine(line)
	if !ok {
		t.Fatal("parseStreamLine returned ok=false for a valid line")
	}
	if got.Surface != stream.SurfaceIMessage {
		t.Errorf("Surface = %q, want %q", got.Surface, stream.SurfaceIMessage)
	}
	if got.Type != stream.TypeInteraction {
		t.Errorf("Type = %q, want %q", got.Type, stream.TypeInteraction)
	}
	if got.Direction != stream.DirectionInbound {
		t.Errorf("Direction = %q, want %q", got.Direction, stream.DirectionInbound)
	}
	if got.Summary != "asked about the visa timeline" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if !got.Time.Equal(now) {
		t.Errorf("Time = %v, want %v", got.Time, now)
	}
	if got.ID != ev.ID {
		t.Errorf("ID = %q, want %q", got.ID, ev.ID)
	}
}

func TestParseStreamLineBadTimestamp(t *testing.T) {
	line := []byte(`{"schema_version":"1","id":"evt_1_abc","timestamp":"not-a-time","surface":"cli","type":"system","direction":"internal","summary":"x"}`)

	got, ok := parseStreamLine(line)
	if !ok {
		t.Fatal("parseStreamLine returned ok=false; bad timestamps should still display")
	}
	if !got.Time.IsZero() {
		t.Errorf("Time = %v, want zero for unparseable timestamp", got.Time)
	}
	if got.Summary != "x" {
		t.Errorf("Summary = %q, want %q", got.Summary, "x")
	}
}

func TestParseStreamLineSkips(t *testing.T) {
	for _, line := range []string{"", "   ", "{not json"} {
		if _, ok := parseStreamLine([]byte(line)); ok {
			t.Errorf("parseStreamLine(%q) ok = true, want false", line)
		}
	}
}
