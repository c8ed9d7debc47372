// render.go lays out the digest markdown under a token budget.

package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/summarize"
)

// systemEventCap bounds the System Events section regardless of budget.
// Webhook storms should not crowd out conversations.
const systemEventCap = 10

// Section names as they appear in the digest and in Meta.SectionCounts.
const (
	SectionThreads       = "Open Threads"
	SectionConversations = "Conversations"
	SectionSessions      = "Sessions"
	SectionSystem        = "System Events"
)

var conversationSurfaces = map[string]bool{
	stream.SurfaceIMessage: true,
	stream.SurfaceX:        true,
	stream.SurfaceBluesky:  true,
	stream.SurfaceEmail:    true,
}

var sessionSurfaces = map[string]bool{
	stream.SurfaceCLI:   true,
	stream.SurfaceWake:  true,
	stream.SurfaceDream: true,
}

// partition assigns each event to exactly one section. Anything that is
// not a conversation or a session counts as a system event.
func partition(events []stream.Event) (conversations, sessions, system []stream.Event) {
	for _, ev := range events {
		switch {
		case conversationSurfaces[ev.Surface]:
			conversations = append(conversations, ev)
		case sessionSurfaces[ev.Surface]:
			sessions = append(sessions, ev)
		default:
			system = append(system, ev)
		}
	}
	return conversations, sessions, system
}

// tokens approximates the token cost of a piece of text.
func tokens(s string) int {
	return len(s) / 4
}

// renderer accumulates digest markdown against a token budget. Section
// headers are always emitted; bullets stop once the budget is spent.
type renderer struct {
	b      strings.Builder
	budget int
}

func newRenderer(budget int) *renderer {
	return &renderer{budget: budget}
}

// force writes a piece regardless of remaining budget (headers).
func (r *renderer) force(piece string) {
	r.b.WriteString(piece)
	r.budget -= tokens(piece)
}

// tryAdd writes a piece only when it fits the remaining budget.
func (r *renderer) tryAdd(piece string) bool {
	cost := tokens(piece)
	if cost > r.budget {
		return false
	}
	r.b.WriteString(piece)
	r.budget -= cost
	return true
}

func (r *renderer) String() string {
	return r.b.String()
}

// renderThreads emits the Open Threads prologue. Nothing is written when
// no threads are open.
func (r *renderer) renderThreads(titles []string) int {
	if len(titles) == 0 {
		return 0
	}
	r.force("### " + SectionThreads + "\n\n")
	count := 0
	for _, title := range titles {
		if !r.tryAdd("- " + title + "\n") {
			break
		}
		count++
	}
	r.force("\n")
	return count
}

// renderSection emits one event section, newest first, limit bullets at
// most (0 means unlimited). Returns the number of bullets written.
func (r *renderer) renderSection(name string, events []stream.Event, limit int, now time.Time) int {
	r.force("### " + name + "\n\n")
	count := 0
	for _, ev := range events {
		if limit > 0 && count >= limit {
			break
		}
		if !r.tryAdd(bullet(ev, now)) {
			break
		}
		count++
		if content := subLine(ev); content != "" {
			r.tryAdd(content)
		}
	}
	r.force("\n")
	return count
}

// bullet renders one event line: "- **<Δt ago> [<Label>]** <summary>".
func bullet(ev stream.Event, now time.Time) string {
	t, err := ev.Time()
	age := "unknown age"
	if err == nil {
		age = humanAgo(now.Sub(t))
	}
	return fmt.Sprintf("- **%s [%s]** %s\n", age, summarize.SurfaceLabel(ev.Surface), ev.Summary)
}

// subLine renders optional event content as an indented line under its
// bullet, collapsed to one line.
func subLine(ev stream.Event) string {
	content := strings.Join(strings.Fields(ev.Content), " ")
	if content == "" {
		return ""
	}
	return "  " + content + "\n"
}

func humanAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// newestFirst orders events descending by timestamp.
func newestFirst(events []stream.Event) []stream.Event {
	out := make([]stream.Event, len(events))
	copy(out, events)
	stream.SortEvents(out)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
