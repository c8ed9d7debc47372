// Package mind locates the mind root and knows its on-disk layout.
//
// Everything the substrate persists lives under a single directory,
// ~/.claude-mind by default. Components never build paths themselves;
// they ask a Root so the layout stays in one place.
package mind

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Environment variables that override the mind root location.
// SAMARA_MIND_PATH wins; MIND_PATH is the older name still honored.
const (
	EnvMindPath       = "SAMARA_MIND_PATH"
	EnvMindPathLegacy = "MIND_PATH"

	// DefaultDirName is the mind directory created under $HOME when no
	// override is set.
	DefaultDirName = ".claude-mind"
)

// DateLayout is the calendar-date format used in shard and episode names.
const DateLayout = "2006-01-02"

// Root is the base directory of a mind. The zero value is not usable;
// obtain one from Resolve or At.
type Root struct {
	path string
}

// At returns a Root rooted at the given directory without checking that
// it exists. Tests and one-shot tools point this at temp directories.
func At(path string) Root {
	return Root{path: path}
}

// Resolve locates the mind root: SAMARA_MIND_PATH, then MIND_PATH, then
// ~/.claude-mind. The directory is not required to exist yet.
func Resolve() (Root, error) {
	if p := os.Getenv(EnvMindPath); p != "" {
		return At(p), nil
	}
	if p := os.Getenv(EnvMindPathLegacy); p != "" {
		return At(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Root{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return At(filepath.Join(home, DefaultDirName)), nil
}

// Path returns the root directory.
func (r Root) Path() string { return r.path }

// Exists reports whether the root directory is present on disk.
func (r Root) Exists() bool {
	info, err := os.Stat(r.path)
	return err == nil && info.IsDir()
}

// Stream layout.

func (r Root) StreamDir() string  { return filepath.Join(r.path, "stream") }
func (r Root) DailyDir() string   { return filepath.Join(r.StreamDir(), "daily") }
func (r Root) ArchiveDir() string { return filepath.Join(r.StreamDir(), "archive") }

// DailyFile returns the shard path for a calendar date ("YYYY-MM-DD").
func (r Root) DailyFile(date string) string {
	return filepath.Join(r.DailyDir(), "events-"+date+".jsonl")
}

// ArchiveFile returns the archive shard path for a calendar date.
func (r Root) ArchiveFile(date string) string {
	return filepath.Join(r.ArchiveDir(), "events-"+date+".jsonl")
}

// LegacyStreamFile is the pre-sharding single-file stream.
func (r Root) LegacyStreamFile() string {
	return filepath.Join(r.StreamDir(), "events.jsonl")
}

// LegacyAltStreamFile is the renamed legacy stream some minds carry.
func (r Root) LegacyAltStreamFile() string {
	return filepath.Join(r.StreamDir(), "events.legacy.jsonl")
}

// DistilledIndexFile is the sidecar recording distilled event IDs.
func (r Root) DistilledIndexFile() string {
	return filepath.Join(r.StreamDir(), "distilled-index.jsonl")
}

// StreamLockFile is the advisory lock serializing all stream mutation.
func (r Root) StreamLockFile() string {
	return filepath.Join(r.StreamDir(), ".stream.lock")
}

// State layout.

func (r Root) StateDir() string { return filepath.Join(r.path, "state") }

func (r Root) ThreadsFile() string        { return filepath.Join(r.StateDir(), "threads.json") }
func (r Root) SchedulerStateFile() string { return filepath.Join(r.StateDir(), "scheduler-state.json") }
func (r Root) LastTriggerFile() string {
	return filepath.Join(r.StateDir(), "last-proactive-trigger.txt")
}
func (r Root) TriggerEvalLogFile() string {
	return filepath.Join(r.StateDir(), "trigger-evaluations.jsonl")
}
func (r Root) AskedQuestionsFile() string {
	return filepath.Join(r.StateDir(), "asked_questions.jsonl")
}
func (r Root) HotDigestFile() string     { return filepath.Join(r.StateDir(), "hot-digest.md") }
func (r Root) PatternsFile() string      { return filepath.Join(r.StateDir(), "patterns.json") }
func (r Root) CalendarCacheFile() string { return filepath.Join(r.StateDir(), "calendar-cache.json") }
func (r Root) WeatherCacheFile() string  { return filepath.Join(r.StateDir(), "weather-cache.json") }
func (r Root) LocationFile() string      { return filepath.Join(r.StateDir(), "location.json") }

// QueueFile is the proactive queue satellites and wakes both consume.
func (r Root) QueueFile() string {
	return filepath.Join(r.StateDir(), "proactive-queue", "queue.json")
}

// PendingTriggersFile holds triggers deposited by satellites between
// evaluator runs.
func (r Root) PendingTriggersFile() string {
	return filepath.Join(r.StateDir(), "triggers", "triggers.json")
}

// Senses layout.

func (r Root) SensesDir() string   { return filepath.Join(r.path, "senses") }
func (r Root) RejectedDir() string { return filepath.Join(r.SensesDir(), "rejected") }

// Memory layout.

func (r Root) EpisodesDir() string { return filepath.Join(r.path, "memory", "episodes") }

// EpisodeFile returns the episode log path for a calendar date.
func (r Root) EpisodeFile(date string) string {
	return filepath.Join(r.EpisodesDir(), date+".md")
}

// Top-level files.

func (r Root) ConfigFile() string     { return filepath.Join(r.path, "config.json") }
func (r Root) SatellitesFile() string { return filepath.Join(r.path, "satellites.toml") }

// EnsureLayout creates the directory skeleton. Existing directories are
// left untouched, so this is safe to call on every startup.
func (r Root) EnsureLayout() error {
	dirs := []string{
		r.DailyDir(),
		r.ArchiveDir(),
		r.StateDir(),
		filepath.Dir(r.QueueFile()),
		filepath.Dir(r.PendingTriggersFile()),
		r.RejectedDir(),
		r.EpisodesDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// DateOf formats t's UTC calendar date for shard names.
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// LocalDateOf formats t's local calendar date, used for episode logs and
// the scheduler's per-day counters.
func LocalDateOf(t time.Time) string {
	return t.Format(DateLayout)
}
