// parse.go extracts thread titles from handoff markdown.

package threads

import (
	"regexp"
	"strings"
)

var (
	openThreadsHeading = regexp.MustCompile(`(?i)^##\s+open\s+threads\s*$`)
	numericBullet      = regexp.MustCompile(`^\d+[.)]\s+`)
	checkbox           = regexp.MustCompile(`^\[[ xX]\]\s*`)
)

// ParseHandoff returns the thread titles listed under the handoff's
// "## Open Threads" heading, in order. The section runs until the next
// "## " heading. A section consisting solely of "None identified." means
// the session left nothing open.
func ParseHandoff(content string) []string {
	var titles []string
	inSection := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if openThreadsHeading.MatchString(trimmed) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(trimmed, "## ") {
			break
		}
		title := stripListMarkers(trimmed)
		if title == "" {
			continue
		}
		if strings.EqualFold(title, "None identified.") {
			continue
		}
		titles = append(titles, title)
	}
	return titles
}

// stripListMarkers removes leading bullet syntax so only the title
// remains: "-", "*", "1." and "1)" bullets, then "[ ]"/"[x]" checkboxes.
func stripListMarkers(line string) string {
	s := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(s, "- "):
		s = strings.TrimSpace(s[2:])
	case strings.HasPrefix(s, "* "):
		s = strings.TrimSpace(s[2:])
	default:
		s = strings.TrimSpace(numericBullet.ReplaceAllString(s, ""))
	}
	return strings.TrimSpace(checkbox.ReplaceAllString(s, ""))
}
