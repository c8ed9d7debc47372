package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(mind.At(t.TempDir()), nil)
}

func mustAppend(t *testing.T, s *Store, ev Event) Event {
	t.Helper()
	if err := s.Append(context.Background(), ev); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	return ev
}

// eventAt builds an event stamped at the given RFC3339 time.
func eventAt(ts, surface, eventType, direction, summary string) Event {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	ev := NewEvent(parsed, surface, eventType, direction, summary)
	return ev
}

func TestAppendCreatesDailyShard(t *testing.T) {
	s := newTestStore(t)
	ev := mustAppend(t, s, eventAt("2026-01-15T14:30:00Z", SurfaceIMessage, TypeInteraction, DirectionInbound, "hello"))

	shard := s.Root().DailyFile("2026-01-15")
	data, err := os.ReadFile(shard)
	if err != nil {
		t.Fatalf("shard not created: %v", err)
	}
	if !strings.Contains(string(data), ev.ID) {
		t.Error("shard missing the appended event")
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("shard must end with a newline")
	}
}

func TestAppendShardsByUTCDate(t *testing.T) {
	s := newTestStore(t)
	// 23:30 EST on the 15th is 04:30 UTC on the 16th.
	ev := Event{
		SchemaVersion: SchemaVersion,
		ID:            NewID(time.Now()),
		Timestamp:     "2026-01-15T23:30:00-05:00",
		Surface:       SurfaceIMessage,
		Type:          TypeInteraction,
		Direction:     DirectionInbound,
		Summary:       "late night",
	}
	mustAppend(t, s, ev)

	if _, err := os.Stat(s.Root().DailyFile("2026-01-16")); err != nil {
		t.Error("expected event sharded under its UTC date")
	}
	if _, err := os.Stat(s.Root().DailyFile("2026-01-15")); !os.IsNotExist(err) {
		t.Error("event leaked into the local-date shard")
	}
}

func TestAppendFillsMissingFields(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(context.Background(), Event{
		Surface:   SurfaceCLI,
		Type:      TypeSystem,
		Direction: DirectionInternal,
		Summary:   "bare event",
	}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	events, err := s.Query(context.Background(), QueryOptions{Hours: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID == "" || ev.Timestamp == "" || ev.SchemaVersion != SchemaVersion {
		t.Errorf("missing fields not filled: %+v", ev)
	}
}

func TestAppendDeadline(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, NewEvent(time.Now(), SurfaceCLI, TypeSystem, DirectionInternal, "x"))
	if !errors.Is(err, ErrDeadline) {
		t.Fatalf("expected ErrDeadline, got %v", err)
	}
}

func TestAppendLockTimeout(t *testing.T) {
	s := newTestStore(t)
	s.LockWait = 50 * time.Millisecond

	// Hold the stream lock from a second descriptor.
	holder := util.NewFileLock(s.Root().StreamLockFile())
	if err := holder.Lock(); err != nil {
		t.Fatalf("acquiring blocker lock: %v", err)
	}
	defer holder.Unlock()

	err := s.Append(context.Background(), NewEvent(time.Now(), SurfaceCLI, TypeSystem, DirectionInternal, "x"))
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestAppendHealsTornTrailingLine(t *testing.T) {
	s := newTestStore(t)
	shardDate := mind.DateOf(time.Now())
	shard := s.Root().DailyFile(shardDate)
	if err := os.MkdirAll(filepath.Dir(shard), 0755); err != nil {
		t.Fatal(err)
	}
	// Simulate a crashed writer: torn line, no trailing newline.
	if err := os.WriteFile(shard, []byte(`{"schema_version":"1","id":"evt_torn`), 0644); err != nil {
		t.Fatal(err)
	}

	ev := mustAppend(t, s, NewEvent(time.Now(), SurfaceCLI, TypeSystem, DirectionInternal, "after crash"))

	events, err := s.Query(context.Background(), QueryOptions{Hours: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("healed append not readable: %v", events)
	}
}

func TestQueryWindowAndFilters(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

	recent := mustAppend(t, s, eventAt("2026-01-15T13:30:00Z", SurfaceIMessage, TypeInteraction, DirectionInbound, "recent message"))
	mustAppend(t, s, eventAt("2026-01-15T01:00:00Z", SurfaceIMessage, TypeInteraction, DirectionInbound, "this morning"))
	mustAppend(t, s, eventAt("2026-01-13T10:00:00Z", SurfaceCLI, TypeSystem, DirectionInternal, "two days ago"))

	events, err := s.Query(context.Background(), QueryOptions{Hours: 2, Now: now})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != recent.ID {
		t.Fatalf("window filter wrong: %v", events)
	}

	events, err = s.Query(context.Background(), QueryOptions{Hours: 24, Now: now, Surface: SurfaceIMessage})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("surface filter: expected 2 events, got %d", len(events))
	}

	events, err = s.Query(context.Background(), QueryOptions{Hours: 72, Now: now, Type: TypeSystem})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].Surface != SurfaceCLI {
		t.Fatalf("type filter wrong: %v", events)
	}
}

func TestQuerySessionFilter(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ev := NewEvent(now, SurfaceCLI, TypeInteraction, DirectionInbound, "in session")
	ev.SessionID = "sess-42"
	mustAppend(t, s, ev)
	mustAppend(t, s, NewEvent(now, SurfaceCLI, TypeInteraction, DirectionInbound, "no session"))

	events, err := s.Query(context.Background(), QueryOptions{Hours: 1, SessionID: "sess-42"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].SessionID != "sess-42" {
		t.Fatalf("session filter wrong: %v", events)
	}
}

func TestQueryTolerantOfMalformedLines(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ev := mustAppend(t, s, NewEvent(now, SurfaceIMessage, TypeInteraction, DirectionInbound, "good"))

	// Corrupt the shard with garbage, a blank line, and a torn tail.
	shard := s.Root().DailyFile(mind.DateOf(now))
	f, err := os.OpenFile(shard, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("not json at all\n\n{\"id\": \"evt_torn")
	f.Close()

	events, err := s.Query(context.Background(), QueryOptions{Hours: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("expected only the valid event, got %v", events)
	}
}

func TestQueryReadsLegacyFile(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	ev := NewEvent(now, SurfaceEmail, TypeInteraction, DirectionInbound, "from the old days")
	line, err := ev.EncodeLine()
	if err != nil {
		t.Fatal(err)
	}
	legacy := s.Root().LegacyStreamFile()
	if err := os.MkdirAll(filepath.Dir(legacy), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(legacy, line, 0644); err != nil {
		t.Fatal(err)
	}

	events, err := s.Query(context.Background(), QueryOptions{Hours: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("legacy event not read: %v", events)
	}
}

func TestFilesWindowSelection(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)

	mustAppend(t, s, eventAt("2026-01-15T01:00:00Z", SurfaceCLI, TypeSystem, DirectionInternal, "today"))
	mustAppend(t, s, eventAt("2026-01-14T12:00:00Z", SurfaceCLI, TypeSystem, DirectionInternal, "yesterday"))
	mustAppend(t, s, eventAt("2026-01-10T12:00:00Z", SurfaceCLI, TypeSystem, DirectionInternal, "last week"))

	files := s.Files(12, now)
	if len(files) != 2 {
		t.Fatalf("expected shards for the 14th and 15th, got %v", files)
	}
	if filepath.Base(files[0]) != "events-2026-01-14.jsonl" {
		t.Errorf("files not oldest-first: %v", files)
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	const writers = 8
	const perWriter = 20
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		go func() {
			var err error
			for i := 0; i < perWriter; i++ {
				ev := NewEvent(now, SurfaceCLI, TypeSystem, DirectionInternal, "concurrent")
				if e := s.Append(context.Background(), ev); e != nil {
					err = e
					break
				}
			}
			errs <- err
		}()
	}
	for w := 0; w < writers; w++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent append failed: %v", err)
		}
	}

	events, err := s.Query(context.Background(), QueryOptions{Hours: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != writers*perWriter {
		t.Fatalf("lost events under concurrency: have %d, want %d", len(events), writers*perWriter)
	}
}
