package signals

import (
	"strings"
	"testing"
	"time"

	"github.com/steveyegge/samara/internal/mind"
)

const episodeFixture = `# Thursday

## 09:15
Morning run along the waterfront, then email triage.

### 13:42
Lunch with Dana. Talked about the Portland trip.

## 25:99
Garbage heading that should be ignored.
`

func TestLatestBlockTime(t *testing.T) {
	root := testRoot(t)
	now := time.Date(2026, 1, 15, 14, 0, 0, 0, time.Local)

	if _, ok := LatestBlockTime(root, now); ok {
		t.Fatal("missing episode file should report no blocks")
	}

	writeState(t, root.EpisodeFile(mind.LocalDateOf(now)), episodeFixture)

	got, ok := LatestBlockTime(root, now)
	if !ok {
		t.Fatal("expected a block time")
	}
	want := time.Date(2026, 1, 15, 13, 42, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("latest block = %v, want %v", got, want)
	}
}

func TestLatestBlockTimeNoHeadings(t *testing.T) {
	root := testRoot(t)
	now := time.Date(2026, 1, 15, 14, 0, 0, 0, time.Local)
	writeState(t, root.EpisodeFile(mind.LocalDateOf(now)), "# Just a title\n\nprose only\n")

	if _, ok := LatestBlockTime(root, now); ok {
		t.Fatal("file without timestamped blocks should report none")
	}
}

func TestSnippet(t *testing.T) {
	root := testRoot(t)
	now := time.Date(2026, 1, 15, 14, 0, 0, 0, time.Local)

	if got := Snippet(root, now, 100); got != "" {
		t.Fatalf("missing file: got %q", got)
	}

	writeState(t, root.EpisodeFile(mind.LocalDateOf(now)), episodeFixture)

	full := Snippet(root, now, 10000)
	if full == "" {
		t.Fatal("empty snippet")
	}
	if want := "Morning run along the waterfront,"; !strings.Contains(full, want) {
		t.Errorf("snippet missing %q: %q", want, full)
	}

	tail := Snippet(root, now, 20)
	if len([]rune(tail)) != 20 {
		t.Errorf("tail length = %d, want 20", len([]rune(tail)))
	}
	if full[len(full)-len(tail):] != tail {
		t.Errorf("snippet should come from the end of the content, got %q", tail)
	}

	if got := Snippet(root, now, 0); got != "" {
		t.Errorf("zero budget: got %q", got)
	}
}
