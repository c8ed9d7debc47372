package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/util"
)

// IndexEntry is one line of the distilled-index sidecar. The sidecar is
// authoritative: marking an event distilled appends here instead of
// rewriting shard lines, so shards stay append-only.
type IndexEntry struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp,omitempty"`
	DistilledAt string `json:"distilled_at"`
}

// DistilledIDs loads the set of distilled event IDs from the sidecar.
// A missing sidecar is an empty set; malformed lines are skipped.
func (s *Store) DistilledIDs() (map[string]bool, error) {
	ids := make(map[string]bool)
	f, err := os.Open(s.root.DistilledIndexFile())
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, fmt.Errorf("opening distilled index: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry IndexEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			s.logger.Debug("skipping malformed index line", zap.Error(err))
			continue
		}
		if entry.ID != "" {
			ids[entry.ID] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading distilled index: %w", err)
	}
	return ids, nil
}

// MarkDistilled records the given event IDs as distilled. Already-marked
// IDs are skipped, so re-running a distillation is harmless. Timestamps
// are recovered from the stream where the events can be found. Returns
// the number of newly marked IDs.
func (s *Store) MarkDistilled(ctx context.Context, ids []string) (int, error) {
	existing, err := s.DistilledIDs()
	if err != nil {
		return 0, err
	}

	var fresh []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if id == "" || existing[id] || seen[id] {
			continue
		}
		seen[id] = true
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	timestamps := s.findTimestamps(ctx, seen)

	now := FormatTimestamp(time.Now())
	entries := make([]IndexEntry, 0, len(fresh))
	for _, id := range fresh {
		entries = append(entries, IndexEntry{
			ID:          id,
			Timestamp:   timestamps[id],
			DistilledAt: now,
		})
	}

	if err := s.withLock(ctx, func() error {
		return appendIndexEntries(s.root.DistilledIndexFile(), entries)
	}); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// MarkDistilledBefore marks every undistilled event dated strictly
// before the given UTC date ("YYYY-MM-DD"). Returns the count marked.
func (s *Store) MarkDistilledBefore(ctx context.Context, date string) (int, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}

	existing, err := s.DistilledIDs()
	if err != nil {
		return 0, err
	}

	now := FormatTimestamp(time.Now())
	var entries []IndexEntry
	seen := make(map[string]bool)
	keep := func(ev Event) bool {
		if ev.Distilled || existing[ev.ID] || seen[ev.ID] {
			return false
		}
		d, ok := ev.Date()
		if !ok || d >= date {
			return false
		}
		seen[ev.ID] = true
		entries = append(entries, IndexEntry{
			ID:          ev.ID,
			Timestamp:   ev.Timestamp,
			DistilledAt: now,
		})
		return false
	}

	var discard []Event
	for _, path := range s.AllFiles() {
		if !s.scanFile(ctx, path, keep, &discard) {
			return 0, ErrDeadline
		}
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := s.withLock(ctx, func() error {
		return appendIndexEntries(s.root.DistilledIndexFile(), entries)
	}); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Undistilled returns events not yet distilled, optionally restricted to
// one UTC date or to dates strictly before a bound. Empty filters mean
// the whole stream.
func (s *Store) Undistilled(ctx context.Context, onDate, beforeDate string) ([]Event, error) {
	distilled, err := s.DistilledIDs()
	if err != nil {
		return nil, err
	}

	keep := func(ev Event) bool {
		if ev.Distilled || distilled[ev.ID] {
			return false
		}
		d, ok := ev.Date()
		if !ok {
			return onDate == "" && beforeDate == ""
		}
		if onDate != "" && d != onDate {
			return false
		}
		if beforeDate != "" && d >= beforeDate {
			return false
		}
		return true
	}

	var events []Event
	for _, path := range s.AllFiles() {
		if !s.scanFile(ctx, path, keep, &events) {
			return events, nil
		}
	}
	return events, nil
}

// RebuildIndex reconstructs the sidecar: the union of inline distilled
// flags found in the stream and whatever sidecar lines are still
// readable, deduplicated, written atomically. This is the recovery path
// for a corrupted or lost sidecar.
func (s *Store) RebuildIndex(ctx context.Context) (int, error) {
	existing, err := s.DistilledIDs()
	if err != nil {
		// A corrupted-beyond-reading sidecar is the very thing being
		// rebuilt from scratch.
		s.logger.Warn("discarding unreadable distilled index", zap.Error(err))
		existing = make(map[string]bool)
	}

	var entries []IndexEntry
	seen := make(map[string]bool)
	now := FormatTimestamp(time.Now())
	keep := func(ev Event) bool {
		if ev.ID == "" || seen[ev.ID] {
			return false
		}
		if ev.Distilled || existing[ev.ID] {
			seen[ev.ID] = true
			entries = append(entries, IndexEntry{
				ID:          ev.ID,
				Timestamp:   ev.Timestamp,
				DistilledAt: now,
			})
		}
		return false
	}

	var discard []Event
	for _, path := range s.AllFiles() {
		if !s.scanFile(ctx, path, keep, &discard) {
			return 0, ErrDeadline
		}
	}

	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := encodeIndexEntry(entry)
		if err != nil {
			return 0, err
		}
		buf.Write(line)
	}

	if err := s.withLock(ctx, func() error {
		return util.AtomicWriteFile(s.root.DistilledIndexFile(), buf.Bytes(), 0644)
	}); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// findTimestamps scans the stream for the given IDs and returns the
// timestamps of those found. Stops early once every ID is resolved.
func (s *Store) findTimestamps(ctx context.Context, want map[string]bool) map[string]string {
	found := make(map[string]string, len(want))
	remaining := len(want)
	keep := func(ev Event) bool {
		if remaining > 0 && want[ev.ID] {
			if _, ok := found[ev.ID]; !ok {
				found[ev.ID] = ev.Timestamp
				remaining--
			}
		}
		return false
	}
	var discard []Event
	for _, path := range s.AllFiles() {
		if remaining == 0 {
			break
		}
		if !s.scanFile(ctx, path, keep, &discard) {
			break
		}
	}
	return found
}

func appendIndexEntries(path string, entries []IndexEntry) error {
	var buf bytes.Buffer
	for _, entry := range entries {
		line, err := encodeIndexEntry(entry)
		if err != nil {
			return err
		}
		buf.Write(line)
	}
	return appendBytes(path, buf.Bytes())
}

func encodeIndexEntry(entry IndexEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encoding index entry: %w", err)
	}
	return append(data, '\n'), nil
}
