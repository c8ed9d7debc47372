// Package summarize condenses runs of stream events into short prose.
// The digest builder feeds it a window of events; backends range from a
// deterministic fallback to local (Ollama) and hosted (Anthropic)
// models. Summarization is strictly best-effort: the chain always
// produces text, model or no model.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/steveyegge/samara/internal/stream"
)

// Summarizer condenses events into prose. model selects a backend
// model identifier; empty means the backend default.
type Summarizer interface {
	Summarize(ctx context.Context, events []stream.Event, model string) (string, error)
}

// surfaceLabels maps surfaces to their display names where plain
// title-casing gets it wrong.
var surfaceLabels = map[string]string{
	stream.SurfaceCLI:      "CLI",
	stream.SurfaceIMessage: "iMessage",
	stream.SurfaceX:        "X",
}

var titleCaser = cases.Title(language.English)

// SurfaceLabel returns the display name for a surface.
func SurfaceLabel(surface string) string {
	if label, ok := surfaceLabels[surface]; ok {
		return label
	}
	return titleCaser.String(surface)
}

const systemPrompt = "You summarize personal activity streams. Collapse " +
	"related events into one short narrative paragraph per surface. Keep " +
	"names, times, and commitments. Reply with the summary only."

// buildPrompt renders events as the user message sent to model backends.
func buildPrompt(events []stream.Event) string {
	var b strings.Builder
	b.WriteString("Summarize the following events:\n\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.Timestamp, SurfaceLabel(ev.Surface), ev.Summary)
	}
	return b.String()
}
