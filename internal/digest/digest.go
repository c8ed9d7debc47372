// Package digest builds the hot context digest: a bounded markdown
// rendering of recent stream activity, sized by an adaptive window and
// cached under state/. The digest is what wake and dream sessions read
// first, so it leads with open threads and conversations and keeps
// system noise capped.
package digest

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/summarize"
	"github.com/steveyegge/samara/internal/threads"
	"github.com/steveyegge/samara/internal/util"
)

// EnvNow overrides the digest's reference time, for tests and replays.
const EnvNow = "HOT_DIGEST_NOW"

// DefaultBudget is the digest token budget when none is given.
const DefaultBudget = 3000

// Params configures one digest build.
type Params struct {
	// Hours is the window length in hours, or "auto" (or empty) for
	// adaptive selection.
	Hours string

	// Budget is the token budget; <= 0 means DefaultBudget.
	Budget int

	// Summarize passes the window through the summarizer. The
	// structured markdown is kept when summarization fails.
	Summarize bool

	// Model overrides the summarizer backend model.
	Model string

	// CacheTTL reuses a cached digest younger than this. Zero always
	// rebuilds.
	CacheTTL time.Duration

	// OutPath overrides where the digest is cached. Empty means
	// state/hot-digest.md under the mind root.
	OutPath string

	// Now anchors the window. Zero resolves via the clock, honoring
	// HOT_DIGEST_NOW.
	Now time.Time
}

// Meta describes how a digest was assembled.
type Meta struct {
	WindowHours   float64        `json:"window_hours"`
	EventCount    int            `json:"event_count"`
	SectionCounts map[string]int `json:"section_counts"`
	Summarized    bool           `json:"summarized"`
	Cached        bool           `json:"cached"`
}

// Builder assembles digests from a stream store.
type Builder struct {
	store  *stream.Store
	cfg    *config.Config
	logger *zap.Logger

	// Summarizer collapses the window into narrative when
	// Params.Summarize is set. Nil disables summarization.
	Summarizer summarize.Summarizer

	// Clock supplies the reference time when Params.Now is zero.
	Clock clock.Clock
}

// NewBuilder returns a digest builder. cfg may be nil for defaults; a
// nil logger disables logging.
func NewBuilder(store *stream.Store, cfg *config.Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		store:  store,
		cfg:    cfg,
		logger: logger,
		Clock:  clock.FromEnv(EnvNow),
	}
}

// Build returns the digest text.
func (b *Builder) Build(ctx context.Context, p Params) (string, error) {
	text, _, err := b.BuildWithMeta(ctx, p)
	return text, err
}

// BuildWithMeta returns the digest text plus assembly metadata.
func (b *Builder) BuildWithMeta(ctx context.Context, p Params) (string, *Meta, error) {
	now := p.Now
	if now.IsZero() {
		now = b.Clock.Now()
	}
	outPath := p.OutPath
	if outPath == "" {
		outPath = b.store.Root().HotDigestFile()
	}

	if text, ok := b.cached(outPath, p.CacheTTL, now); ok {
		return text, &Meta{Cached: true}, nil
	}

	tuning := b.cfg.HotDigest()
	windowHours, events, err := b.selectEvents(ctx, p.Hours, now, tuning)
	if err != nil {
		return "", nil, err
	}

	budget := p.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	meta := &Meta{
		WindowHours:   windowHours,
		EventCount:    len(events),
		SectionCounts: map[string]int{},
	}

	text := b.render(events, now, budget, meta)

	if p.Summarize && b.Summarizer != nil {
		if narrative, err := b.Summarizer.Summarize(ctx, events, p.Model); err == nil && narrative != "" {
			text = b.renderSummarized(narrative, now, budget)
			meta.Summarized = true
		} else if err != nil {
			b.logger.Warn("digest summarization failed, keeping structured form", zap.Error(err))
		}
	}

	if err := util.AtomicWriteFile(outPath, []byte(text), 0o644); err != nil {
		return "", nil, fmt.Errorf("caching digest: %w", err)
	}
	b.logger.Info("built hot digest",
		zap.Float64("window_hours", windowHours),
		zap.Int("events", len(events)),
		zap.Bool("summarized", meta.Summarized))
	return text, meta, nil
}

// cached returns a prior digest when it is younger than ttl.
func (b *Builder) cached(path string, ttl time.Duration, now time.Time) (string, bool) {
	if ttl <= 0 {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if now.Sub(info.ModTime()) >= ttl {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// selectEvents resolves the window (fixed or adaptive) and returns the
// events inside it.
func (b *Builder) selectEvents(ctx context.Context, hours string, now time.Time, tuning config.HotDigestConfig) (float64, []stream.Event, error) {
	if hours != "" && hours != "auto" {
		h, err := strconv.ParseFloat(hours, 64)
		if err != nil || h <= 0 {
			return 0, nil, fmt.Errorf("invalid hours %q: want a positive number or \"auto\"", hours)
		}
		events, err := b.store.Query(ctx, stream.QueryOptions{Hours: h, Now: now})
		if err != nil {
			return 0, nil, err
		}
		return h, events, nil
	}

	// Adaptive: read the widest window once, size from its metrics,
	// then narrow in memory.
	all, err := b.store.Query(ctx, stream.QueryOptions{Hours: tuning.MaxHours, Now: now})
	if err != nil {
		return 0, nil, err
	}
	windowHours := SelectWindow(all, now, tuning)
	cutoff := now.Add(-time.Duration(windowHours * float64(time.Hour)))

	var events []stream.Event
	for _, ev := range all {
		if t, err := ev.Time(); err == nil && !t.Before(cutoff) {
			events = append(events, ev)
		}
	}
	return windowHours, events, nil
}

// render assembles the structured markdown form.
func (b *Builder) render(events []stream.Event, now time.Time, budget int, meta *Meta) string {
	conversations, sessions, system := partition(events)

	r := newRenderer(budget)
	r.force(title(now))
	meta.SectionCounts[SectionThreads] = r.renderThreads(b.openThreadTitles())
	meta.SectionCounts[SectionConversations] = r.renderSection(SectionConversations, newestFirst(conversations), 0, now)
	meta.SectionCounts[SectionSessions] = r.renderSection(SectionSessions, newestFirst(sessions), 0, now)
	meta.SectionCounts[SectionSystem] = r.renderSection(SectionSystem, newestFirst(system), systemEventCap, now)
	return r.String()
}

// renderSummarized keeps the title and open threads but replaces the
// event sections with the model narrative.
func (b *Builder) renderSummarized(narrative string, now time.Time, budget int) string {
	r := newRenderer(budget)
	r.force(title(now))
	r.renderThreads(b.openThreadTitles())
	r.force("### Recent Activity\n\n")
	r.force(narrative + "\n")
	return r.String()
}

func (b *Builder) openThreadTitles() []string {
	var titles []string
	for _, rec := range threads.Open(threads.LoadRecords(b.store.Root())) {
		titles = append(titles, rec.Title)
	}
	return titles
}

func title(now time.Time) string {
	return "# Hot Context Digest\n\n_Generated " + stream.FormatTimestamp(now) + "_\n\n"
}
