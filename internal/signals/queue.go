// queue.go reads the proactive queue satellites and dream cycles feed.

package signals

import (
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// Queue item priorities. high and time_sensitive items lift wake
// confidence; the rest wait for a scheduled pass.
const (
	PriorityHigh          = "high"
	PriorityTimeSensitive = "time_sensitive"
	PriorityNormal        = "normal"
	PriorityLow           = "low"
)

// QueueItem is one pending piece of proactive work.
type QueueItem struct {
	ID       string `json:"id,omitempty"`
	Priority string `json:"priority"`
	Content  string `json:"content"`
	Created  string `json:"created,omitempty"`
}

type queueFile struct {
	Items []QueueItem `json:"items"`
}

// LoadQueue returns the proactive queue, empty when the file is missing
// or malformed.
func LoadQueue(root mind.Root) []QueueItem {
	var q queueFile
	if !util.ReadJSONFile(root.QueueFile(), &q) {
		return nil
	}
	return q.Items
}

// HasUrgent reports whether any item demands prompt attention.
func HasUrgent(items []QueueItem) bool {
	for _, it := range items {
		if it.Priority == PriorityHigh || it.Priority == PriorityTimeSensitive {
			return true
		}
	}
	return false
}
