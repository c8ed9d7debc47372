// Package audit measures stream coverage over a window: event volume per
// surface, how much of that activity the hot digest carried, and which
// expected surfaces have gone quiet. The report is what a morning ritual
// reads to decide whether the mind's senses are actually flowing.
package audit

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/clock"
	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/stream"
)

// EnvNow overrides the audit's reference time, for tests and replays.
const EnvNow = "STREAM_AUDIT_NOW"

// DefaultWindowHours is the audit window when none is given.
const DefaultWindowHours = 24

// handoffLookbackHours bounds the search for the last handoff once the
// window itself has none.
const handoffLookbackHours = 168

// defaultSurfaces are always expected to produce events, manifest or not.
// Satellite-backed surfaces join the expected set only when the manifest
// declares them.
var defaultSurfaces = []string{
	stream.SurfaceCLI,
	stream.SurfaceWake,
	stream.SurfaceDream,
	stream.SurfaceSense,
	stream.SurfaceSystem,
}

// Params configures one audit run.
type Params struct {
	// Hours is the window length; <= 0 means DefaultWindowHours.
	Hours float64

	// Now anchors the window. Zero resolves via the clock, honoring
	// STREAM_AUDIT_NOW.
	Now time.Time
}

// Report is the audit outcome for one window.
type Report struct {
	GeneratedAt string    `json:"generated_at"`
	WindowHours float64   `json:"window_hours"`
	Counts      Counts    `json:"counts"`
	Digest      Inclusion `json:"digest_inclusion"`
	Gaps        Gaps      `json:"gaps"`
}

// Counts tallies the window's events.
type Counts struct {
	Total       int            `json:"total"`
	BySurface   map[string]int `json:"by_surface"`
	ByType      map[string]int `json:"by_type"`
	ByDirection map[string]int `json:"by_direction"`
	Undistilled int            `json:"undistilled"`
}

// Inclusion reports how much of the window's activity the hot digest
// text carried. An event counts as included when its summary appears in
// the digest, case-insensitively.
type Inclusion struct {
	Included   int                         `json:"included"`
	Missing    int                         `json:"missing"`
	Rate       float64                     `json:"rate"`
	PerSurface map[string]SurfaceInclusion `json:"per_surface"`
}

// SurfaceInclusion is one surface's slice of the inclusion tally.
type SurfaceInclusion struct {
	Included int     `json:"included"`
	Missing  int     `json:"missing"`
	Rate     float64 `json:"rate"`
}

// Gaps lists expected surfaces with no events in the window and flags a
// stale handoff chain.
type Gaps struct {
	MissingSurfaces []string `json:"missing_surfaces"`
	HandoffStale    bool     `json:"handoff_stale"`
	LastHandoff     string   `json:"last_handoff,omitempty"`
}

// Auditor builds coverage reports from a stream store.
type Auditor struct {
	root   mind.Root
	store  *stream.Store
	cfg    *config.Config
	logger *zap.Logger

	// Clock supplies the reference time when Params.Now is zero.
	Clock clock.Clock
}

// New returns an auditor. cfg may be nil for defaults; a nil logger
// disables logging.
func New(root mind.Root, cfg *config.Config, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		root:   root,
		store:  stream.New(root, logger),
		cfg:    cfg,
		logger: logger,
		Clock:  clock.FromEnv(EnvNow),
	}
}

// Run audits the window ending at now.
func (a *Auditor) Run(ctx context.Context, p Params) (*Report, error) {
	now := p.Now
	if now.IsZero() {
		now = a.Clock.Now()
	}
	hours := p.Hours
	if hours <= 0 {
		hours = DefaultWindowHours
	}

	events, err := a.store.Query(ctx, stream.QueryOptions{
		Hours:            hours,
		IncludeDistilled: true,
		Now:              now,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: stream.FormatTimestamp(now),
		WindowHours: hours,
		Counts:      countEvents(events),
		Digest:      a.inclusion(events),
	}
	gaps, err := a.gaps(ctx, events, report.Counts.BySurface, now)
	if err != nil {
		return nil, err
	}
	report.Gaps = gaps

	a.logger.Info("stream audit complete",
		zap.Float64("window_hours", hours),
		zap.Int("events", report.Counts.Total),
		zap.Float64("inclusion_rate", report.Digest.Rate),
		zap.Int("missing_surfaces", len(report.Gaps.MissingSurfaces)))
	return report, nil
}

func countEvents(events []stream.Event) Counts {
	c := Counts{
		BySurface:   make(map[string]int),
		ByType:      make(map[string]int),
		ByDirection: make(map[string]int),
	}
	for _, ev := range events {
		c.Total++
		c.BySurface[ev.Surface]++
		c.ByType[ev.Type]++
		c.ByDirection[ev.Direction]++
		if !ev.Distilled {
			c.Undistilled++
		}
	}
	return c
}

// inclusion checks each summarized event against the cached digest text.
// A missing digest file means nothing was carried.
func (a *Auditor) inclusion(events []stream.Event) Inclusion {
	var digest string
	if data, err := os.ReadFile(a.root.HotDigestFile()); err == nil {
		digest = strings.ToLower(string(data))
	}

	inc := Inclusion{PerSurface: make(map[string]SurfaceInclusion)}
	for _, ev := range events {
		if ev.Summary == "" {
			continue
		}
		per := inc.PerSurface[ev.Surface]
		if digest != "" && strings.Contains(digest, strings.ToLower(ev.Summary)) {
			inc.Included++
			per.Included++
		} else {
			inc.Missing++
			per.Missing++
		}
		per.Rate = rate(per.Included, per.Missing)
		inc.PerSurface[ev.Surface] = per
	}
	inc.Rate = rate(inc.Included, inc.Missing)
	return inc
}

// rate treats an empty tally as fully included so a quiet window doesn't
// read as a digest failure.
func rate(included, missing int) float64 {
	if included+missing == 0 {
		return 1
	}
	return float64(included) / float64(included+missing)
}

func (a *Auditor) gaps(ctx context.Context, events []stream.Event, bySurface map[string]int, now time.Time) (Gaps, error) {
	manifest, err := config.LoadManifest(a.root)
	if err != nil {
		a.logger.Warn("satellite manifest unreadable", zap.Error(err))
		manifest = nil
	}

	expected := make(map[string]bool)
	for _, s := range defaultSurfaces {
		expected[s] = true
	}
	for _, s := range manifest.Surfaces() {
		expected[s] = true
	}
	for _, s := range manifest.Disabled() {
		delete(expected, s)
	}
	for s := range expected {
		if !a.cfg.ServiceEnabled(s) {
			delete(expected, s)
		}
	}

	g := Gaps{MissingSurfaces: []string{}}
	for s := range expected {
		if bySurface[s] == 0 {
			g.MissingSurfaces = append(g.MissingSurfaces, s)
		}
	}
	sort.Strings(g.MissingSurfaces)

	last := lastHandoff(events)
	if last.IsZero() {
		g.HandoffStale = true
		older, err := a.store.Query(ctx, stream.QueryOptions{
			Hours:            handoffLookbackHours,
			Type:             stream.TypeHandoff,
			IncludeDistilled: true,
			Now:              now,
		})
		if err != nil {
			return g, err
		}
		last = lastHandoff(older)
	}
	if !last.IsZero() {
		g.LastHandoff = stream.FormatTimestamp(last)
	}
	return g, nil
}

func lastHandoff(events []stream.Event) time.Time {
	var last time.Time
	for _, ev := range events {
		if ev.Type != stream.TypeHandoff {
			continue
		}
		t, err := ev.Time()
		if err != nil {
			continue
		}
		if t.After(last) {
			last = t
		}
	}
	return last
}
