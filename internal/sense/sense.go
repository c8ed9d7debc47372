// Package sense ingests satellite deposits into the stream. Satellites
// drop <name>.event.json files into senses/; each sweep validates them,
// converts them to stream events and removes them. Files that fail
// validation move to senses/rejected/ with a companion error note so a
// misbehaving satellite can be diagnosed later.
package sense

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/stream"
)

// Priorities a sense file may declare.
const (
	PriorityImmediate  = "immediate"
	PriorityNormal     = "normal"
	PriorityBackground = "background"
)

// fileSuffix marks ingestible deposits in senses/.
const fileSuffix = ".event.json"

// File is the schema of one sense deposit.
type File struct {
	Sense     string         `json:"sense" validate:"required"`
	Timestamp string         `json:"timestamp" validate:"required"`
	Priority  string         `json:"priority" validate:"required,oneof=immediate normal background"`
	Data      map[string]any `json:"data" validate:"required"`
	Context   map[string]any `json:"context,omitempty"`
	Auth      map[string]any `json:"auth,omitempty"`
}

// Event converts the deposit to a stream event. The surface comes from
// the satellite manifest, then an explicit data.surface, then the
// generic sense surface. The full body rides along in metadata.
func (f File) Event(manifest *config.Manifest) stream.Event {
	surface := stream.SurfaceSense
	if s, ok := manifest.SurfaceFor(f.Sense); ok {
		surface = s
	} else if s, ok := f.Data["surface"].(string); ok && s != "" {
		surface = s
	}

	summary, _ := f.Data["summary"].(string)
	if summary == "" {
		summary = fmt.Sprintf("%s event (%s)", f.Sense, f.Priority)
	}

	return stream.Event{
		SchemaVersion: stream.SchemaVersion,
		Timestamp:     f.Timestamp,
		Surface:       surface,
		Type:          stream.TypeSense,
		Direction:     stream.DirectionInbound,
		Summary:       summary,
		Metadata: map[string]any{
			"sense":      f.Sense,
			"priority":   f.Priority,
			"sense_data": f.Data,
		},
	}
}

// newValidator builds the struct validator for sense files.
func newValidator() *validator.Validate {
	return validator.New()
}
