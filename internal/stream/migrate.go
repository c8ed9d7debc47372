package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/mind"
)

// MigrateLegacy moves events out of the legacy single-file stream into
// daily shards, grouped by each event's UTC date. Lines move verbatim;
// malformed lines go to today's shard rather than being dropped. The
// drained legacy file is deleted when deleteLegacy is set, otherwise
// renamed aside so it can't be migrated twice. Returns the number of
// events moved.
func (s *Store) MigrateLegacy(ctx context.Context, deleteLegacy bool) (int, error) {
	migrated := 0
	err := s.withLock(ctx, func() error {
		for _, legacy := range s.legacyFiles() {
			n, err := s.migrateFile(legacy, deleteLegacy)
			if err != nil {
				return err
			}
			migrated += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return migrated, nil
}

func (s *Store) migrateFile(path string, deleteLegacy bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("opening legacy stream: %w", err)
	}

	today := mind.DateOf(time.Now())
	byDate := make(map[string][][]byte)
	var order []string
	moved := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		line := append([]byte(nil), raw...)

		date := today
		if ev, err := DecodeLine(line); err == nil {
			if d, ok := ev.Date(); ok {
				date = d
			}
		}
		if _, seen := byDate[date]; !seen {
			order = append(order, date)
		}
		byDate[date] = append(byDate[date], line)
		moved++
	}
	if scanErr := scanner.Err(); scanErr != nil {
		f.Close()
		return 0, fmt.Errorf("reading legacy stream: %w", scanErr)
	}
	f.Close()

	if moved == 0 {
		// Nothing to move; still retire the empty file.
		return 0, s.retireLegacy(path, deleteLegacy)
	}

	for _, date := range order {
		if err := appendBytes(s.root.DailyFile(date), joinLines(byDate[date])); err != nil {
			return 0, err
		}
	}

	if err := s.retireLegacy(path, deleteLegacy); err != nil {
		return 0, err
	}

	s.logger.Info("migrated legacy stream",
		zap.String("file", filepath.Base(path)),
		zap.Int("events", moved), zap.Int("days", len(byDate)))
	return moved, nil
}

// retireLegacy deletes or renames a drained legacy file. The rename
// breaks the .jsonl suffix so the file stops being picked up as part of
// the stream.
func (s *Store) retireLegacy(path string, deleteLegacy bool) error {
	if deleteLegacy {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing legacy stream: %w", err)
		}
		return nil
	}
	retired := fmt.Sprintf("%s.migrated.%d", path, time.Now().Unix())
	if err := os.Rename(path, retired); err != nil {
		return fmt.Errorf("retiring legacy stream: %w", err)
	}
	return nil
}
