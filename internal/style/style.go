// Package style centralizes terminal styling for samara commands: shared
// lipgloss styles, status prefixes, and a fixed-width table renderer.
package style

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Core styles. Render with e.g. style.Bold.Render("text").
var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Faint(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Info    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	Green  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Red    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Status prefixes for one-line command feedback.
var (
	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Cyan.Render("→")
)

// DisableColor drops every style to plain ASCII. Called once at startup
// when stdout is not a terminal or the NO_COLOR conventions apply.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	SuccessPrefix = "✓"
	WarningPrefix = "⚠"
	ErrorPrefix = "✗"
	ArrowPrefix = "→"
}

// PrintWarning writes a prefixed warning line to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningPrefix, fmt.Sprintf(format, args...))
}
