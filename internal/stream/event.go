// Package stream owns the append-only event stream: the JSONL shards under
// stream/daily/, the legacy single-file stream, and the distilled-index
// sidecar. Every observation the mind makes flows through here.
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = "1"

// Surfaces an event can arrive on.
const (
	SurfaceCLI      = "cli"
	SurfaceIMessage = "imessage"
	SurfaceWake     = "wake"
	SurfaceDream    = "dream"
	SurfaceWebhook  = "webhook"
	SurfaceX        = "x"
	SurfaceBluesky  = "bluesky"
	SurfaceEmail    = "email"
	SurfaceCalendar = "calendar"
	SurfaceLocation = "location"
	SurfaceSense    = "sense"
	SurfaceSystem   = "system"
)

// Event types.
const (
	TypeInteraction = "interaction"
	TypeSense       = "sense"
	TypeSystem      = "system"
	TypeHandoff     = "handoff"
)

// Event directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
	DirectionInternal = "internal"
)

// Surfaces lists every known surface in canonical order.
var Surfaces = []string{
	SurfaceCLI, SurfaceIMessage, SurfaceWake, SurfaceDream,
	SurfaceWebhook, SurfaceX, SurfaceBluesky, SurfaceEmail,
	SurfaceCalendar, SurfaceLocation, SurfaceSense, SurfaceSystem,
}

// Types lists every known event type.
var Types = []string{TypeInteraction, TypeSense, TypeSystem, TypeHandoff}

// Directions lists every known direction.
var Directions = []string{DirectionInbound, DirectionOutbound, DirectionInternal}

// ValidSurface reports whether s is a known surface.
func ValidSurface(s string) bool { return contains(Surfaces, s) }

// ValidType reports whether t is a known event type.
func ValidType(t string) bool { return contains(Types, t) }

// ValidDirection reports whether d is a known direction.
func ValidDirection(d string) bool { return contains(Directions, d) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Event is one line of the stream. Readers must tolerate unknown surfaces
// and types in old data; the enums above gate writes, not reads.
type Event struct {
	SchemaVersion string         `json:"schema_version"`
	ID            string         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	Surface       string         `json:"surface"`
	Type          string         `json:"type"`
	Direction     string         `json:"direction"`
	Summary       string         `json:"summary"`
	Distilled     bool           `json:"distilled"`
	SessionID     string         `json:"session_id,omitempty"`
	Content       string         `json:"content,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewEvent creates an event stamped at now with a fresh ID.
func NewEvent(now time.Time, surface, eventType, direction, summary string) Event {
	return Event{
		SchemaVersion: SchemaVersion,
		ID:            NewID(now),
		Timestamp:     FormatTimestamp(now),
		Surface:       surface,
		Type:          eventType,
		Direction:     direction,
		Summary:       summary,
	}
}

// NewID generates an event ID: evt_<unix_seconds>_<8 hex chars>.
// The timestamp prefix keeps IDs roughly sortable; the hex suffix keeps
// same-second events distinct.
func NewID(now time.Time) string {
	return fmt.Sprintf("evt_%d_%s", now.Unix(), uuid.NewString()[:8])
}

// FormatTimestamp renders t as ISO 8601 UTC with a Z suffix, second
// precision. This is the only timestamp format the stream writes.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseTimestamp parses a stream timestamp. Z and numeric offsets are both
// accepted on read.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// Time returns the event's parsed timestamp.
func (e Event) Time() (time.Time, error) {
	return ParseTimestamp(e.Timestamp)
}

// Date returns the event's UTC calendar date ("YYYY-MM-DD"), used for
// shard placement. Returns false if the timestamp doesn't parse.
func (e Event) Date() (string, bool) {
	t, err := e.Time()
	if err != nil {
		return "", false
	}
	return t.UTC().Format("2006-01-02"), true
}

// EncodeLine renders the event as a single LF-terminated JSON line.
// HTML escaping is disabled so summaries carry <, >, & and non-ASCII
// text verbatim.
func (e Event) EncodeLine() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	line := buf.Bytes()
	if bytes.ContainsRune(line[:len(line)-1], '\n') {
		return nil, fmt.Errorf("event %s encodes to multiple lines", e.ID)
	}
	return line, nil
}

// DecodeLine parses one stream line into an Event.
func DecodeLine(line []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	return ev, nil
}

// SortEvents orders events by (timestamp, id) ascending, the stream's
// global order. Unparseable timestamps sort by raw string so ordering
// stays deterministic.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, CompareEvents)
}

// CompareEvents is the (timestamp, id) comparison underlying SortEvents.
func CompareEvents(a, b Event) int {
	at, aerr := a.Time()
	bt, berr := b.Time()
	if aerr == nil && berr == nil {
		if c := at.Compare(bt); c != 0 {
			return c
		}
	} else if c := strings.Compare(a.Timestamp, b.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
