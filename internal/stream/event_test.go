package stream

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestNewIDFormat(t *testing.T) {
	now := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	id := NewID(now)
	pattern := regexp.MustCompile(`^evt_1768487400_[0-9a-f]{8}$`)
	if !pattern.MatchString(id) {
		t.Errorf("ID %q does not match evt_<unix>_<8 hex>", id)
	}
}

func TestNewIDUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID(now)
		if seen[id] {
			t.Fatalf("duplicate ID %q within one second", id)
		}
		seen[id] = true
	}
}

func TestFormatTimestampUTCZ(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	ts := FormatTimestamp(time.Date(2026, 1, 15, 9, 30, 45, 123456789, est))
	if ts != "2026-01-15T14:30:45Z" {
		t.Errorf("FormatTimestamp = %q, want UTC Z second precision", ts)
	}
}

func TestParseTimestampAcceptsOffsets(t *testing.T) {
	for _, raw := range []string{"2026-01-15T14:30:45Z", "2026-01-15T09:30:45-05:00"} {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", raw, err)
			continue
		}
		if ts.UTC().Hour() != 14 {
			t.Errorf("ParseTimestamp(%q) = %v, want 14:30 UTC", raw, ts)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}

func TestNewFillsSchema(t *testing.T) {
	now := time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)
	ev := NewEvent(now, SurfaceIMessage, TypeInteraction, DirectionInbound, "hi")
	if ev.SchemaVersion != "1" {
		t.Errorf("schema_version = %q", ev.SchemaVersion)
	}
	if ev.Timestamp != "2026-01-15T14:30:00Z" {
		t.Errorf("timestamp = %q", ev.Timestamp)
	}
	if !strings.HasPrefix(ev.ID, "evt_") {
		t.Errorf("id = %q", ev.ID)
	}
	if ev.Distilled {
		t.Error("new events start undistilled")
	}
}

func TestEncodeLineVerbatimText(t *testing.T) {
	ev := NewEvent(time.Now(), SurfaceIMessage, TypeInteraction, DirectionInbound,
		`said "2 < 3 && 4 > 1" — ok ✓`)
	line, err := ev.EncodeLine()
	if err != nil {
		t.Fatalf("EncodeLine failed: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Error("line must be LF-terminated")
	}
	if bytes.ContainsRune(line[:len(line)-1], '\n') {
		t.Error("event must encode to a single line")
	}
	// No HTML escaping: <, >, & stay literal.
	for _, tok := range []string{"<", ">", "&&", "✓"} {
		if !bytes.Contains(line, []byte(tok)) {
			t.Errorf("expected %q verbatim in %s", tok, line)
		}
	}
	if bytes.Contains(line, []byte(`<`)) {
		t.Error("found HTML-escaped angle bracket")
	}

	// Round-trips.
	back, err := DecodeLine(bytes.TrimSpace(line))
	if err != nil {
		t.Fatalf("DecodeLine failed: %v", err)
	}
	if back.Summary != ev.Summary {
		t.Errorf("summary round-trip: %q != %q", back.Summary, ev.Summary)
	}
}

func TestEncodeLineDistilledAlwaysPresent(t *testing.T) {
	ev := NewEvent(time.Now(), SurfaceCLI, TypeSystem, DirectionInternal, "x")
	line, err := ev.EncodeLine()
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["distilled"]; !ok {
		t.Error("distilled field must always be serialized")
	}
	// Optional fields stay absent when empty.
	for _, name := range []string{"session_id", "content", "metadata"} {
		if _, ok := raw[name]; ok {
			t.Errorf("empty %s should be omitted", name)
		}
	}
}

func TestSortEventsGlobalOrder(t *testing.T) {
	events := []Event{
		{ID: "evt_2_bb", Timestamp: "2026-01-15T10:00:02Z"},
		{ID: "evt_1_zz", Timestamp: "2026-01-15T10:00:01Z"},
		{ID: "evt_2_aa", Timestamp: "2026-01-15T10:00:02Z"},
		{ID: "evt_1_aa", Timestamp: "2026-01-15T10:00:01Z"},
	}
	SortEvents(events)
	want := []string{"evt_1_aa", "evt_1_zz", "evt_2_aa", "evt_2_bb"}
	for i, id := range want {
		if events[i].ID != id {
			t.Fatalf("position %d = %s, want %s (order %v)", i, events[i].ID, id, events)
		}
	}
}

func TestSortEventsMixedOffsets(t *testing.T) {
	// Same instant written with different offsets still compares equal,
	// so the ID breaks the tie.
	events := []Event{
		{ID: "evt_b", Timestamp: "2026-01-15T09:00:00-05:00"},
		{ID: "evt_a", Timestamp: "2026-01-15T14:00:00Z"},
	}
	SortEvents(events)
	if events[0].ID != "evt_a" {
		t.Errorf("expected ID tiebreak across offsets, got %v", events)
	}
}

func TestEnumPredicates(t *testing.T) {
	if !ValidSurface("imessage") || ValidSurface("carrier-pigeon") {
		t.Error("ValidSurface misbehaves")
	}
	if !ValidType("handoff") || ValidType("announcement") {
		t.Error("ValidType misbehaves")
	}
	if !ValidDirection("internal") || ValidDirection("sideways") {
		t.Error("ValidDirection misbehaves")
	}
	if len(Surfaces) != 12 {
		t.Errorf("expected 12 surfaces, have %d", len(Surfaces))
	}
}

func TestEventDate(t *testing.T) {
	ev := Event{Timestamp: "2026-01-15T23:30:00-05:00"}
	date, ok := ev.Date()
	if !ok || date != "2026-01-16" {
		t.Errorf("Date() = %q, %v; want UTC date 2026-01-16", date, ok)
	}
	if _, ok := (Event{Timestamp: "bad"}).Date(); ok {
		t.Error("Date() should fail on a bad timestamp")
	}
}
