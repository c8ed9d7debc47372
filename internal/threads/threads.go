// Package threads maintains the durable index of open topical threads.
// Session handoffs list threads under an "## Open Threads" heading; the
// indexer parses those, derives stable IDs, and folds them into
// state/threads.json so follow-ups survive across sessions.
package threads

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strings"

	"github.com/steveyegge/samara/internal/mind"
)

// closedStatuses are thread statuses that count as no longer open.
// Matching is case-insensitive.
var closedStatuses = map[string]bool{
	"closed":    true,
	"done":      true,
	"resolved":  true,
	"complete":  true,
	"completed": true,
	"archived":  true,
}

// Source records where a thread was last referenced.
type Source struct {
	HandoffPath string `json:"handoff_path"`
	SessionID   string `json:"session_id,omitempty"`
}

// Record is one entry of threads.json.
type Record struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Source    Source `json:"source"`
	FirstSeen string `json:"first_seen,omitempty"`
	LastSeen  string `json:"last_seen,omitempty"`
}

// Normalize canonicalizes a thread title for ID derivation: lowercase,
// whitespace runs collapsed to single spaces, ends trimmed.
func Normalize(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// ThreadID derives the stable ID for a title. Two titles differing only
// in case or whitespace map to the same ID, and the derivation must
// stay bit-identical across processes, so it hashes the normalized
// title with SHA-256 and keeps the first ten hex digits.
func ThreadID(title string) string {
	sum := sha256.Sum256([]byte(Normalize(title)))
	return "thread_" + hex.EncodeToString(sum[:])[:10]
}

// IsClosed reports whether a status means the thread is finished.
func IsClosed(status string) bool {
	return closedStatuses[strings.ToLower(strings.TrimSpace(status))]
}

// Open filters records down to threads still open.
func Open(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if !IsClosed(r.Status) {
			out = append(out, r)
		}
	}
	return out
}

// LoadRecords reads threads.json. Missing and malformed files both load
// as an empty index.
func LoadRecords(root mind.Root) []Record {
	data, err := os.ReadFile(root.ThreadsFile())
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}
