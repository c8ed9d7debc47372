// episodes.go reads the daily episodic memory logs. Episode files are
// markdown, one file per local day, with intra-day entries introduced by
// "## HH:MM" or "### HH:MM" headings.

package signals

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/samara/internal/mind"
)

var blockHeading = regexp.MustCompile(`(?m)^#{2,3}\s+(\d{1,2}):(\d{2})\b`)

// LatestBlockTime returns the wall-clock time of the most recent
// timestamped block in today's episode file. ok is false when the file
// is absent or carries no timestamped blocks.
func LatestBlockTime(root mind.Root, now time.Time) (time.Time, bool) {
	data, err := os.ReadFile(root.EpisodeFile(mind.LocalDateOf(now)))
	if err != nil {
		return time.Time{}, false
	}

	var latest time.Time
	found := false
	for _, m := range blockHeading.FindAllStringSubmatch(string(data), -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			continue
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}

// Snippet returns up to maxRunes of today's episode content, taken from
// the end of the file where the newest blocks land. Whitespace runs are
// collapsed so the snippet works as a search query.
func Snippet(root mind.Root, now time.Time, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	data, err := os.ReadFile(root.EpisodeFile(mind.LocalDateOf(now)))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(string(data)), " ")
	runes := []rune(text)
	if len(runes) > maxRunes {
		runes = runes[len(runes)-maxRunes:]
	}
	return string(runes)
}
