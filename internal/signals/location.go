// location.go reads the location snapshot the location satellite writes.

package signals

import (
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/util"
)

// LocationState is state/location.json: a free-form snapshot plus an
// optional trigger the satellite wants evaluated.
type LocationState struct {
	Location map[string]any   `json:"location"`
	Trigger  *LocationTrigger `json:"trigger,omitempty"`
}

// LocationTrigger is a location-derived trigger. SuppressEngagement set
// means the person should not be contacted right now (driving, at the
// gym) no matter what else fires.
type LocationTrigger struct {
	Type               string  `json:"type"`
	Confidence         float64 `json:"confidence"`
	Reason             string  `json:"reason"`
	SuppressEngagement bool    `json:"suppress_engagement"`
}

// LoadLocation returns the location snapshot, or nil when the file is
// missing or unreadable.
func LoadLocation(root mind.Root) *LocationState {
	var s LocationState
	if !util.ReadJSONFile(root.LocationFile(), &s) {
		return nil
	}
	return &s
}
