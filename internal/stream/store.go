package stream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// DefaultLockWait bounds how long a mutating operation waits for the
// stream lock before failing with ErrLockTimeout.
const DefaultLockWait = 30 * time.Second

// lockRetryDelay is the poll interval while waiting on a contended lock.
const lockRetryDelay = 25 * time.Millisecond

// Store reads and mutates one mind's event stream. Mutations serialize
// through a single advisory lock; reads never lock and instead tolerate
// a partial trailing line.
type Store struct {
	root   mind.Root
	logger *zap.Logger

	// LockWait bounds lock acquisition for mutating operations.
	LockWait time.Duration
}

// New returns a Store for the given mind root. A nil logger is replaced
// with a no-op logger.
func New(root mind.Root, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger, LockWait: DefaultLockWait}
}

// Root returns the mind root this store operates on.
func (s *Store) Root() mind.Root { return s.root }

// Append writes one event to its daily shard. Missing schema fields are
// filled in (ID, timestamp, schema version); an unparseable timestamp
// shards the event under today's UTC date but is written verbatim.
func (s *Store) Append(ctx context.Context, ev Event) error {
	if ev.SchemaVersion == "" {
		ev.SchemaVersion = SchemaVersion
	}
	if ev.Timestamp == "" {
		ev.Timestamp = FormatTimestamp(time.Now())
	}
	if ev.ID == "" {
		now, err := ev.Time()
		if err != nil {
			now = time.Now()
		}
		ev.ID = NewID(now)
	}

	line, err := ev.EncodeLine()
	if err != nil {
		return err
	}

	date, ok := ev.Date()
	if !ok {
		date = mind.DateOf(time.Now())
	}
	path := s.root.DailyFile(date)

	return s.withLock(ctx, func() error {
		return appendBytes(path, line)
	})
}

// withLock runs fn while holding the stream lock, honoring both the
// caller's deadline and the store's lock-wait bound.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	if ctx.Err() != nil {
		return ErrDeadline
	}

	wait := s.LockWait
	if wait <= 0 {
		wait = DefaultLockWait
	}
	lock := util.NewFileLock(s.root.StreamLockFile())
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	locked, err := lock.LockContext(waitCtx, lockRetryDelay)
	cancel()
	if err != nil {
		return fmt.Errorf("locking stream: %w", err)
	}
	if !locked {
		if ctx.Err() != nil {
			return ErrDeadline
		}
		return ErrLockTimeout
	}
	defer lock.Unlock()

	if ctx.Err() != nil {
		return ErrDeadline
	}
	return fn()
}

// appendBytes appends pre-encoded line data and fsyncs before returning.
// The single write keeps concurrent appenders from interleaving partial
// lines; O_APPEND makes the offset atomic. Callers hold the stream lock.
func appendBytes(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating stream directory: %w", err)
	}
	if truncated, err := missingTrailingNewline(path); err != nil {
		return err
	} else if truncated {
		// A crashed writer left a torn line; terminate it so the new
		// event doesn't fuse with it.
		line = append([]byte{'\n'}, line...)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening stream file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("writing event: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing stream file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing stream file: %w", err)
	}
	return nil
}

// Files returns the stream files covering the trailing window, oldest
// shard first, with any legacy catch-all files appended last. Only files
// that exist are returned.
func (s *Store) Files(hours float64, now time.Time) []string {
	if hours <= 0 {
		hours = 24
	}
	var files []string
	start := now.Add(-time.Duration(hours * float64(time.Hour))).UTC()
	end := now.UTC()
	for d := startOfDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		path := s.root.DailyFile(d.Format("2006-01-02"))
		if fileExists(path) {
			files = append(files, path)
		}
	}
	return append(files, s.legacyFiles()...)
}

// AllFiles returns every stream file present: all daily shards in date
// order, then legacy catch-alls. Archived shards are excluded.
func (s *Store) AllFiles() []string {
	var files []string
	entries, err := os.ReadDir(s.root.DailyDir())
	if err == nil {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasPrefix(name, "events-") || !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(s.root.DailyDir(), name))
		}
	}
	// ReadDir returns sorted names, which for events-YYYY-MM-DD.jsonl
	// is date order.
	return append(files, s.legacyFiles()...)
}

func (s *Store) legacyFiles() []string {
	var files []string
	for _, path := range []string{s.root.LegacyStreamFile(), s.root.LegacyAltStreamFile()} {
		if fileExists(path) {
			files = append(files, path)
		}
	}
	return files
}

// missingTrailingNewline reports whether the file ends mid-line.
func missingTrailingNewline(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("opening stream file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("checking stream file: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("checking stream file: %w", err)
	}
	return last[0] != '\n', nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
