package mind

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveEnvPrecedence(t *testing.T) {
	t.Setenv(EnvMindPath, "/tmp/primary-mind")
	t.Setenv(EnvMindPathLegacy, "/tmp/legacy-mind")

	r, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.Path() != "/tmp/primary-mind" {
		t.Errorf("expected SAMARA_MIND_PATH to win, got %s", r.Path())
	}
}

func TestResolveLegacyEnv(t *testing.T) {
	t.Setenv(EnvMindPath, "")
	t.Setenv(EnvMindPathLegacy, "/tmp/legacy-mind")

	r, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if r.Path() != "/tmp/legacy-mind" {
		t.Errorf("expected MIND_PATH fallback, got %s", r.Path())
	}
}

func TestResolveDefault(t *testing.T) {
	t.Setenv(EnvMindPath, "")
	t.Setenv(EnvMindPathLegacy, "")

	r, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(r.Path()) != DefaultDirName {
		t.Errorf("expected default %s, got %s", DefaultDirName, r.Path())
	}
}

func TestLayoutPaths(t *testing.T) {
	r := At("/mind")

	cases := []struct {
		got  string
		want string
	}{
		{r.DailyFile("2026-01-15"), "/mind/stream/daily/events-2026-01-15.jsonl"},
		{r.ArchiveFile("2026-01-15"), "/mind/stream/archive/events-2026-01-15.jsonl"},
		{r.LegacyStreamFile(), "/mind/stream/events.jsonl"},
		{r.DistilledIndexFile(), "/mind/stream/distilled-index.jsonl"},
		{r.ThreadsFile(), "/mind/state/threads.json"},
		{r.QueueFile(), "/mind/state/proactive-queue/queue.json"},
		{r.PendingTriggersFile(), "/mind/state/triggers/triggers.json"},
		{r.EpisodeFile("2026-01-15"), "/mind/memory/episodes/2026-01-15.md"},
		{r.RejectedDir(), "/mind/senses/rejected"},
		{r.ConfigFile(), "/mind/config.json"},
	}
	for _, tc := range cases {
		if tc.got != filepath.FromSlash(tc.want) {
			t.Errorf("got %s, want %s", tc.got, tc.want)
		}
	}
}

func TestEnsureLayout(t *testing.T) {
	r := At(t.TempDir())
	if err := r.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}

	for _, dir := range []string{
		r.DailyDir(), r.ArchiveDir(), r.StateDir(),
		r.RejectedDir(), r.EpisodesDir(),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}

	// Idempotent on an existing layout.
	if err := r.EnsureLayout(); err != nil {
		t.Fatalf("second EnsureLayout failed: %v", err)
	}
}

func TestDateOfUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 next day UTC.
	est := time.FixedZone("EST", -5*3600)
	ts := time.Date(2026, 1, 15, 23, 30, 0, 0, est)
	if got := DateOf(ts); got != "2026-01-16" {
		t.Errorf("DateOf = %s, want 2026-01-16", got)
	}
	if got := LocalDateOf(ts); got != "2026-01-15" {
		t.Errorf("LocalDateOf = %s, want 2026-01-15", got)
	}
}
