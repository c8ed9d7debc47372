package stream

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"time"

	"go.uber.org/zap"
)

// maxLineBytes bounds a single stream line. Events carrying full
// conversation content can get large; 4 MiB is far beyond anything the
// writers produce.
const maxLineBytes = 4 << 20

// deadlineCheckEvery is how many lines a scan reads between context
// checks.
const deadlineCheckEvery = 512

// QueryOptions filters a stream read. The zero value reads the last 24
// hours of undistilled events across all surfaces.
type QueryOptions struct {
	// Hours is the trailing window size. <= 0 means 24.
	Hours float64

	// Surface restricts to one surface when non-empty.
	Surface string

	// Type restricts to one event type when non-empty.
	Type string

	// SessionID restricts to one session when non-empty.
	SessionID string

	// IncludeDistilled keeps events already folded into long-term
	// memory. Off by default: most readers want only the un-absorbed
	// residue.
	IncludeDistilled bool

	// Now anchors the window. Zero means time.Now().
	Now time.Time
}

// Query reads events in the window, file order, unfiltered by any lock.
// Malformed lines (including a concurrent writer's partial trailing
// line) are skipped. If ctx expires mid-read the events gathered so far
// are returned with a nil error; queries are best-effort by contract.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Event, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	hours := opts.Hours
	if hours <= 0 {
		hours = 24
	}
	cutoff := now.Add(-time.Duration(hours * float64(time.Hour)))

	var distilled map[string]bool
	if !opts.IncludeDistilled {
		var err error
		distilled, err = s.DistilledIDs()
		if err != nil {
			return nil, err
		}
	}

	keep := func(ev Event) bool {
		if opts.Surface != "" && ev.Surface != opts.Surface {
			return false
		}
		if opts.Type != "" && ev.Type != opts.Type {
			return false
		}
		if opts.SessionID != "" && ev.SessionID != opts.SessionID {
			return false
		}
		if !opts.IncludeDistilled && (ev.Distilled || distilled[ev.ID]) {
			return false
		}
		t, err := ev.Time()
		if err != nil {
			return false
		}
		return !t.Before(cutoff)
	}

	var events []Event
	for _, path := range s.Files(hours, now) {
		if !s.scanFile(ctx, path, keep, &events) {
			s.logger.Debug("query deadline hit, returning partial results",
				zap.Int("events", len(events)))
			return events, nil
		}
	}
	return events, nil
}

// scanFile streams one JSONL file through keep, appending matches to out.
// Returns false when the context expired mid-scan.
func (s *Store) scanFile(ctx context.Context, path string, keep func(Event) bool, out *[]Event) bool {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("opening stream file",
				zap.String("path", path), zap.Error(err))
		}
		return true
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lines := 0
	for scanner.Scan() {
		lines++
		if lines%deadlineCheckEvery == 0 && ctx.Err() != nil {
			return false
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := DecodeLine(line)
		if err != nil {
			// Partial trailing lines from in-flight writers land here.
			s.logger.Debug("skipping malformed stream line",
				zap.String("path", path), zap.Int("line", lines))
			continue
		}
		if keep(ev) {
			*out = append(*out, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("reading stream file",
			zap.String("path", path), zap.Error(err))
	}
	return ctx.Err() == nil
}
