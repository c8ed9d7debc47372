package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/samara/internal/stream"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)

	// Event lines are colored by type: conversations green, sense
	// readings cyan, handoffs yellow, machinery faint.
	typeStyles = map[string]lipgloss.Style{
		stream.TypeInteraction: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		stream.TypeSense:       lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		stream.TypeHandoff:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		stream.TypeSystem:      lipgloss.NewStyle().Faint(true),
	}

	directionGlyphs = map[string]string{
		stream.DirectionInbound:  "→",
		stream.DirectionOutbound: "←",
		stream.DirectionInternal: "·",
	}
)

// View renders the TUI.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderHeader renders the title line and the separator under it.
func (m *Model) renderHeader() string {
	scope := "all surfaces"
	if m.filter != "" {
		scope = "surface: " + m.filter
	}
	info := fmt.Sprintf("%s · %d events", scope, len(m.visible()))

	w := m.width
	if w < 20 {
		w = 20
	}
	return titleStyle.Render("Samara Feed") + "  " + dimStyle.Render(info) + "\n" +
		dimStyle.Render(strings.Repeat("─", w))
}

// renderFeed renders the visible events, one line each.
func (m *Model) renderFeed() string {
	events := m.visible()
	if len(events) == 0 {
		return dimStyle.Render("No events yet.")
	}
	var b strings.Builder
	for _, e := range events {
		b.WriteString(m.renderEvent(e))
		b.WriteString("\n")
	}
	return b.String()
}

// renderEvent renders one feed line: local time, surface, direction
// glyph, summary.
func (m *Model) renderEvent(e Event) string {
	ts := "--:--:--"
	if !e.Time.IsZero() {
		ts = e.Time.Local().Format("15:04:05")
	}

	glyph := directionGlyphs[e.Direction]
	if glyph == "" {
		glyph = " "
	}

	st, ok := typeStyles[e.Type]
	if !ok {
		st = dimStyle
	}

	summary := e.Summary
	// Leave room for the fixed-width prefix.
	if maxW := m.viewport.Width - 22; maxW > 3 {
		if r := []rune(summary); len(r) > maxW {
			summary = string(r[:maxW-3]) + "..."
		}
	}

	return fmt.Sprintf("%s  %s %s  %s",
		dimStyle.Render(ts),
		st.Render(fmt.Sprintf("%-8s", e.Surface)),
		glyph,
		summary)
}
