// index.go folds parsed handoff threads into threads.json.

package threads

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/util"
)

// Indexer updates the thread index from handoff files.
type Indexer struct {
	root   mind.Root
	logger *zap.Logger

	// Clock supplies first_seen/last_seen timestamps.
	Clock clock.Clock
}

// NewIndexer returns an indexer rooted at root. A nil logger disables
// logging.
func NewIndexer(root mind.Root, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{root: root, logger: logger, Clock: clock.System}
}

// Result reports what one handoff pass did to the index.
type Result struct {
	Parsed  int
	Added   int
	Updated int
	Titles  []string
}

// IndexHandoff parses the handoff file at path and applies the update
// rule: titles already in the index are reopened in place, new titles
// are appended, and records the handoff does not mention are preserved
// unchanged.
func (ix *Indexer) IndexHandoff(path, sessionID string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading handoff: %w", err)
	}

	titles := ParseHandoff(string(content))
	res := &Result{Parsed: len(titles), Titles: titles}

	records := LoadRecords(ix.root)
	byID := make(map[string]int, len(records))
	for i, r := range records {
		byID[r.ID] = i
	}

	now := stream.FormatTimestamp(ix.Clock.Now())
	source := Source{HandoffPath: path, SessionID: sessionID}
	for _, title := range titles {
		id := ThreadID(title)
		if i, ok := byID[id]; ok {
			records[i].Title = title
			records[i].Status = "open"
			records[i].Source = source
			records[i].LastSeen = now
			res.Updated++
			continue
		}
		records = append(records, Record{
			ID:        id,
			Title:     title,
			Status:    "open",
			Source:    source,
			FirstSeen: now,
			LastSeen:  now,
		})
		byID[id] = len(records) - 1
		res.Added++
	}

	if err := util.AtomicWriteJSON(ix.root.ThreadsFile(), records); err != nil {
		return nil, fmt.Errorf("writing thread index: %w", err)
	}
	ix.logger.Info("indexed handoff",
		zap.String("path", path),
		zap.Int("parsed", res.Parsed),
		zap.Int("added", res.Added),
		zap.Int("updated", res.Updated))
	return res, nil
}
