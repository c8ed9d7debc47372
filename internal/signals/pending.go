// pending.go reads triggers parked by earlier evaluation passes.

package signals

import (
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// PendingTrigger is a trigger a previous pass deferred, kept under
// state/triggers/ until something acts on it.
type PendingTrigger struct {
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Data       map[string]any `json:"data,omitempty"`
}

type pendingFile struct {
	Triggers []PendingTrigger `json:"triggers"`
}

// LoadPendingTriggers returns deferred triggers, empty when the file is
// missing or malformed.
func LoadPendingTriggers(root mind.Root) []PendingTrigger {
	var p pendingFile
	if !util.ReadJSONFile(root.PendingTriggersFile(), &p) {
		return nil
	}
	return p.Triggers
}
