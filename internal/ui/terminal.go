// Package ui answers "what kind of terminal am I talking to" for the
// samara CLI: TTY detection plus the color and session conventions that
// decide between styled and machine-lean output.
package ui

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether stdout is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor decides whether ANSI styling is appropriate. It
// respects the NO_COLOR (https://no-color.org/), CLICOLOR, and
// CLICOLOR_FORCE conventions, then falls back to TTY detection.
func ShouldUseColor() bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if _, set := os.LookupEnv("CLICOLOR_FORCE"); set {
		return true
	}
	return IsTerminal()
}

// InsideMindSession reports whether the CLI is being run by one of the
// mind's own Claude sessions rather than a human shell. Sessions read
// command output as context, so rendering and pagination stay off.
func InsideMindSession() bool {
	return os.Getenv("CLAUDE_CODE") != ""
}
