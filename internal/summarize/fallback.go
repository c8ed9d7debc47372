// fallback.go is the deterministic summarizer used when no model is
// reachable.

package summarize

import (
	"context"
	"strings"

	"github.com/steveyegge/samara/internal/stream"
)

// DefaultMaxPerSurface caps how many event summaries one surface
// contributes to a fallback line.
const DefaultMaxPerSurface = 3

// Fallback groups events by surface and joins their summaries. It never
// fails, which makes it the floor of every summarizer chain.
type Fallback struct {
	// MaxPerSurface caps summaries per surface; zero means
	// DefaultMaxPerSurface.
	MaxPerSurface int
}

// Summarize emits one "<Label> activity: ..." line per surface, in the
// order surfaces first appear in events. The model argument is ignored.
func (f Fallback) Summarize(_ context.Context, events []stream.Event, _ string) (string, error) {
	max := f.MaxPerSurface
	if max <= 0 {
		max = DefaultMaxPerSurface
	}

	var order []string
	grouped := make(map[string][]string)
	for _, ev := range events {
		summary := strings.TrimSpace(ev.Summary)
		if summary == "" {
			continue
		}
		if _, ok := grouped[ev.Surface]; !ok {
			order = append(order, ev.Surface)
		}
		if len(grouped[ev.Surface]) < max {
			grouped[ev.Surface] = append(grouped[ev.Surface], strings.TrimSuffix(summary, "."))
		}
	}

	var lines []string
	for _, surface := range order {
		lines = append(lines, SurfaceLabel(surface)+" activity: "+strings.Join(grouped[surface], "; ")+".")
	}
	return strings.Join(lines, "\n"), nil
}
