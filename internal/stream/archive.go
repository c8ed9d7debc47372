package stream

import (
	"bufio"
	"bytes"
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

// Archive moves events older than daysOld out of the active stream into
// stream/archive/. Whole daily shards are renamed; the legacy single file
// is partitioned line by line, with old events appended to archive shards
// and the remainder rewritten atomically. Returns the number of events
// archived.
func (s *Store) Archive(ctx context.Context, daysOld int, now time.Time) (int, error) {
	if daysOld <= 0 {
		daysOld = 30
	}
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := mind.DateOf(now.AddDate(0, 0, -daysOld))

	archived := 0
	err := s.withLock(ctx, func() error {
		n, err := s.archiveShards(cutoff)
		if err != nil {
			return err
		}
		archived += n

		for _, legacy := range s.legacyFiles() {
			n, err := s.archiveLegacy(legacy, cutoff)
			if err != nil {
				return err
			}
			archived += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return archived, nil
}

// archiveShards relocates whole daily shards dated before cutoff.
func (s *Store) archiveShards(cutoff string) (int, error) {
	entries, err := os.ReadDir(s.root.DailyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading daily directory: %w", err)
	}

	if err := os.MkdirAll(s.root.ArchiveDir(), 0755); err != nil {
		return 0, fmt.Errorf("creating archive directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		date, ok := shardDate(entry.Name())
		if !ok || date >= cutoff {
			continue
		}
		src := filepath.Join(s.root.DailyDir(), entry.Name())
		dst := s.root.ArchiveFile(date)

		n, err := countEventLines(src)
		if err != nil {
			return total, err
		}

		if fileExists(dst) {
			// A previous partial archive left a shard here; merge.
			if err := appendFileTo(src, dst); err != nil {
				return total, err
			}
			if err := os.Remove(src); err != nil {
				return total, fmt.Errorf("removing archived shard: %w", err)
			}
		} else if err := os.Rename(src, dst); err != nil {
			return total, fmt.Errorf("archiving shard %s: %w", entry.Name(), err)
		}

		s.logger.Info("archived shard",
			zap.String("date", date), zap.Int("events", n))
		total += n
	}
	return total, nil
}

// archiveLegacy partitions one legacy stream file around the cutoff date.
// Lines are moved verbatim; malformed lines are retained in place.
func (s *Store) archiveLegacy(path, cutoff string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening legacy stream: %w", err)
	}

	old := make(map[string][][]byte)
	var retained [][]byte
	moved := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		line := append([]byte(nil), raw...)

		ev, err := DecodeLine(line)
		if err != nil {
			retained = append(retained, line)
			continue
		}
		date, ok := ev.Date()
		if !ok || date >= cutoff {
			retained = append(retained, line)
			continue
		}
		old[date] = append(old[date], line)
		moved++
	}
	if scanErr := scanner.Err(); scanErr != nil {
		f.Close()
		return 0, fmt.Errorf("reading legacy stream: %w", scanErr)
	}
	f.Close()

	if moved == 0 {
		return 0, nil
	}

	for date, lines := range old {
		if err := appendBytes(s.root.ArchiveFile(date), joinLines(lines)); err != nil {
			return 0, err
		}
	}

	if err := util.AtomicWriteFile(path, joinLines(retained), 0644); err != nil {
		return 0, err
	}

	s.logger.Info("archived legacy events",
		zap.String("file", filepath.Base(path)), zap.Int("events", moved))
	return moved, nil
}

// shardDate extracts the date from an events-YYYY-MM-DD.jsonl name.
func shardDate(name string) (string, bool) {
	if !strings.HasPrefix(name, "events-") || !strings.HasSuffix(name, ".jsonl") {
		return "", false
	}
	date := strings.TrimSuffix(strings.TrimPrefix(name, "events-"), ".jsonl")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", false
	}
	return date, true
}

func countEventLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("counting %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

func appendFileTo(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(src), err)
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	return appendBytes(dst, data)
}

func joinLines(lines [][]byte) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
