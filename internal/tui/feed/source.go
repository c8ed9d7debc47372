package feed

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/stream"
)

// pollInterval is how often the tail loop checks for new lines.
const pollInterval = 100 * time.Millisecond

// Event is one stream event prepared for display.
type Event struct {
	Time      time.Time
	ID        string
	Surface   string
	Type      string
	Direction string
	Summary   string
	Raw       string
}

// StreamSource tails the stream's daily shards and emits events as they
// are appended. At UTC midnight it follows the writer to the new shard.
type StreamSource struct {
	root   mind.Root
	file   *os.File
	date   string
	events chan Event
	cancel context.CancelFunc
}

// NewStreamSource opens today's shard and starts tailing it from the
// beginning, so the feed opens with today's history already loaded.
func NewStreamSource(root mind.Root) (*StreamSource, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &StreamSource{
		root:   root,
		events: make(chan Event, 100),
		cancel: cancel,
	}
	if err := s.openShard(mind.DateOf(time.Now())); err != nil {
		cancel()
		return nil, err
	}

	go s.tail(ctx)

	return s, nil
}

// openShard opens the daily shard for date, creating an empty file when
// the day has no events yet.
func (s *StreamSource) openShard(date string) error {
	path := s.root.DailyFile(date)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		_ = f.Close()
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}

	if s.file != nil {
		_ = s.file.Close()
	}
	s.file = file
	s.date = date
	return nil
}

// tail follows the shard, emitting complete lines as the writer lands
// them. A partial trailing line stays buffered until its newline arrives,
// matching the writer's line-atomic append discipline.
func (s *StreamSource) tail(ctx context.Context) {
	defer close(s.events)
	defer func() { _ = s.file.Close() }()

	reader := bufio.NewReader(s.file)
	var pending []byte

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				chunk, err := reader.ReadBytes('\n')
				pending = append(pending, chunk...)
				if err != nil {
					break
				}
				if ev, ok := parseStreamLine(pending); ok {
					select {
					case s.events <- ev:
					default:
						// Drop event if channel full
					}
				}
				pending = pending[:0]
			}

			// Writes move to a new shard at UTC midnight.
			if today := mind.DateOf(time.Now()); today != s.date {
				if err := s.openShard(today); err != nil {
					continue
				}
				reader = bufio.NewReader(s.file)
				pending = pending[:0]
			}
		}
	}
}

// Events returns the event channel.
func (s *StreamSource) Events() <-chan Event {
	return s.events
}

// Close stops the source.
func (s *StreamSource) Close() error {
	s.cancel()
	return nil
}

// parseStreamLine decodes one stream line into a feed event. Blank and
// malformed lines report ok=false and are skipped.
func parseStreamLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Event{}, false
	}

	ev, err := stream.DecodeLine(line)
	if err != nil {
		return Event{}, false
	}

	t, err := ev.Time()
	if err != nil {
		t = time.Time{}
	}
	return Event{
		Time:      t,
		ID:        ev.ID,
		Surface:   ev.Surface,
		Type:      ev.Type,
		Direction: ev.Direction,
		Summary:   ev.Summary,
		Raw:       string(line),
	}, true
}
