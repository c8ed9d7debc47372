package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/style"
)

var streamCmd = &cobra.Command{
	Use:     "stream",
	GroupID: GroupStream,
	Short:   "Read and write the append-only event stream",
	Long: `Work with the event stream under <mind-root>/stream/.

Every interaction, sense reading, and system event lands here as one
JSON line in a daily shard. Subcommands append, query, validate, and
maintain those shards.`,
	RunE: requireSubcommand,
}

var (
	streamWriteSurface   string
	streamWriteType      string
	streamWriteDirection string
	streamWriteSummary   string
	streamWriteContent   string
	streamWriteSession   string
	streamWriteMeta      []string
)

var streamWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Append one event to the stream",
	Long: `Append one event to today's daily shard.

Surface, type, and direction must be known enum values; unknown values
are rejected before anything touches disk.

Examples:
  samara stream write --surface cli --type interaction --direction inbound --summary "asked about visa timeline"
  samara stream write --surface sense --type sense --direction inbound --summary "battery at 12%" --meta level=12`,
	Args: cobra.NoArgs,
	RunE: runStreamWrite,
}

var (
	streamQueryHours     float64
	streamQuerySurface   string
	streamQueryType      string
	streamQuerySession   string
	streamQueryDistilled bool
	streamQueryFormat    string
)

var streamQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List events in a trailing window",
	Long: `List events from the last N hours, oldest first.

Events already distilled into long-term memory are excluded unless
--include-distilled is set.

Examples:
  samara stream query --hours 6
  samara stream query --surface imessage --format json
  samara stream query --session abc123 --include-distilled`,
	Args: cobra.NoArgs,
	RunE: runStreamQuery,
}

var streamMarkBeforeDate string

var streamMarkDistilledCmd = &cobra.Command{
	Use:   "mark-distilled [id...]",
	Short: "Mark events as folded into long-term memory",
	Long: `Record event IDs in the distilled index so queries skip them.

Pass explicit IDs, or --before-date to mark every event dated strictly
before a UTC date.

Examples:
  samara stream mark-distilled evt_1736950000_a1b2c3d4
  samara stream mark-distilled --before-date 2026-01-10`,
	Args: cobra.ArbitraryArgs,
	RunE: runStreamMarkDistilled,
}

var streamArchiveDaysOld int

var streamArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move old events out of the live stream",
	Long: `Move events older than --days-old into stream/archive/.

Whole daily shards are renamed when everything in them is old enough;
the legacy single file is split line by line.

Examples:
  samara stream archive
  samara stream archive --days-old 7`,
	Args: cobra.NoArgs,
	RunE: runStreamArchive,
}

var (
	streamStatsHours  float64
	streamStatsFormat string
)

var streamStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show activity counts and velocity",
	Long: `Summarize stream activity over a trailing window: totals by
surface, type, and direction, plus rates over the standard windows and
the acceleration velocity.

Examples:
  samara stream stats
  samara stream stats --hours 48 --format json`,
	Args: cobra.NoArgs,
	RunE: runStreamStats,
}

var streamValidateFormat string

var streamValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check stream files against the event schema",
	Long: `Validate every line of the given stream file, or of all live and
legacy stream files when no file is named.

Schema problems are reported per line; finding problems is not itself a
failure, so the exit code stays 0 unless a file cannot be read.

Examples:
  samara stream validate
  samara stream validate ~/.claude-mind/stream/daily/events-2026-01-15.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStreamValidate,
}

var streamRebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-distilled-index",
	Short: "Reconstruct the distilled index from the stream",
	Long: `Rebuild the distilled-index sidecar from inline distilled flags
and whatever sidecar entries are still readable. Recovery path for a
corrupted or lost index.`,
	Args: cobra.NoArgs,
	RunE: runStreamRebuildIndex,
}

var streamMigrateDeleteLegacy bool

var streamMigrateDailyCmd = &cobra.Command{
	Use:   "migrate-daily",
	Short: "Split legacy single-file streams into daily shards",
	Long: `Re-shard events from the legacy events.jsonl (and its older
alternate name) into daily files. The legacy file is renamed to a
.migrated backup unless --delete-legacy is set.

Examples:
  samara stream migrate-daily
  samara stream migrate-daily --delete-legacy`,
	Args: cobra.NoArgs,
	RunE: runStreamMigrateDaily,
}

var (
	streamUndistilledDate       string
	streamUndistilledBeforeDate string
	streamUndistilledFormat     string
)

var streamUndistilledCmd = &cobra.Command{
	Use:   "undistilled",
	Short: "List events not yet distilled",
	Long: `List events that have not been folded into long-term memory,
across the whole stream or restricted to one UTC date.

Examples:
  samara stream undistilled
  samara stream undistilled --date 2026-01-14
  samara stream undistilled --before-date 2026-01-10 --format json`,
	Args: cobra.NoArgs,
	RunE: runStreamUndistilled,
}

func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.AddCommand(streamWriteCmd)
	streamCmd.AddCommand(streamQueryCmd)
	streamCmd.AddCommand(streamMarkDistilledCmd)
	streamCmd.AddCommand(streamArchiveCmd)
	streamCmd.AddCommand(streamStatsCmd)
	streamCmd.AddCommand(streamValidateCmd)
	streamCmd.AddCommand(streamRebuildIndexCmd)
	streamCmd.AddCommand(streamMigrateDailyCmd)
	streamCmd.AddCommand(streamUndistilledCmd)

	streamWriteCmd.Flags().StringVar(&streamWriteSurface, "surface", "", "surface the event arrived on (required)")
	streamWriteCmd.Flags().StringVar(&streamWriteType, "type", "", "event type (required)")
	streamWriteCmd.Flags().StringVar(&streamWriteDirection, "direction", "", "event direction (required)")
	streamWriteCmd.Flags().StringVar(&streamWriteSummary, "summary", "", "one-line summary (required)")
	streamWriteCmd.Flags().StringVar(&streamWriteContent, "content", "", "full event content")
	streamWriteCmd.Flags().StringVar(&streamWriteSession, "session", "", "session ID")
	streamWriteCmd.Flags().StringArrayVar(&streamWriteMeta, "meta", nil, "metadata key=value (repeatable)")
	_ = streamWriteCmd.MarkFlagRequired("surface")
	_ = streamWriteCmd.MarkFlagRequired("type")
	_ = streamWriteCmd.MarkFlagRequired("direction")
	_ = streamWriteCmd.MarkFlagRequired("summary")

	streamQueryCmd.Flags().Float64Var(&streamQueryHours, "hours", 24, "trailing window in hours")
	streamQueryCmd.Flags().StringVar(&streamQuerySurface, "surface", "", "restrict to one surface")
	streamQueryCmd.Flags().StringVar(&streamQueryType, "type", "", "restrict to one event type")
	streamQueryCmd.Flags().StringVar(&streamQuerySession, "session", "", "restrict to one session ID")
	streamQueryCmd.Flags().BoolVar(&streamQueryDistilled, "include-distilled", false, "include events already distilled")
	streamQueryCmd.Flags().StringVar(&streamQueryFormat, "format", "", "output format: text or json")

	streamMarkDistilledCmd.Flags().StringVar(&streamMarkBeforeDate, "before-date", "", "mark all events before this UTC date (YYYY-MM-DD)")

	streamArchiveCmd.Flags().IntVar(&streamArchiveDaysOld, "days-old", 30, "archive events older than this many days")

	streamStatsCmd.Flags().Float64Var(&streamStatsHours, "hours", 24, "trailing window in hours")
	streamStatsCmd.Flags().StringVar(&streamStatsFormat, "format", "", "output format: text or json")

	streamValidateCmd.Flags().StringVar(&streamValidateFormat, "format", "", "output format: text or json")

	streamMigrateDailyCmd.Flags().BoolVar(&streamMigrateDeleteLegacy, "delete-legacy", false, "delete the legacy file instead of keeping a .migrated backup")

	streamUndistilledCmd.Flags().StringVar(&streamUndistilledDate, "date", "", "restrict to one UTC date (YYYY-MM-DD)")
	streamUndistilledCmd.Flags().StringVar(&streamUndistilledBeforeDate, "before-date", "", "restrict to dates before this UTC date (YYYY-MM-DD)")
	streamUndistilledCmd.Flags().StringVar(&streamUndistilledFormat, "format", "", "output format: text or json")
}

// openStore resolves the mind root and opens the stream store.
func openStore() (*stream.Store, error) {
	root, err := mindRoot()
	if err != nil {
		return nil, err
	}
	return stream.New(root, cmdLogger()), nil
}

// parseMetaPairs converts repeated key=value flags into event metadata.
func parseMetaPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --meta %q (expected key=value)", pair)
		}
		meta[k] = v
	}
	return meta, nil
}

func runStreamWrite(cmd *cobra.Command, args []string) error {
	if !stream.ValidSurface(streamWriteSurface) {
		return fmt.Errorf("unknown surface %q (valid: %s)", streamWriteSurface, strings.Join(stream.Surfaces, ", "))
	}
	if !stream.ValidType(streamWriteType) {
		return fmt.Errorf("unknown type %q (valid: %s)", streamWriteType, strings.Join(stream.Types, ", "))
	}
	if !stream.ValidDirection(streamWriteDirection) {
		return fmt.Errorf("unknown direction %q (valid: %s)", streamWriteDirection, strings.Join(stream.Directions, ", "))
	}
	if strings.TrimSpace(streamWriteSummary) == "" {
		return fmt.Errorf("summary must not be blank")
	}
	meta, err := parseMetaPairs(streamWriteMeta)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	ev := stream.NewEvent(time.Now(), streamWriteSurface, streamWriteType, streamWriteDirection, streamWriteSummary)
	ev.Content = streamWriteContent
	ev.SessionID = streamWriteSession
	ev.Metadata = meta

	if err := store.Append(cmd.Context(), ev); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	fmt.Printf("%s Appended %s\n", style.SuccessPrefix, ev.ID)
	return nil
}

func runStreamQuery(cmd *cobra.Command, args []string) error {
	if streamQuerySurface != "" && !stream.ValidSurface(streamQuerySurface) {
		return fmt.Errorf("unknown surface %q (valid: %s)", streamQuerySurface, strings.Join(stream.Surfaces, ", "))
	}
	if streamQueryType != "" && !stream.ValidType(streamQueryType) {
		return fmt.Errorf("unknown type %q (valid: %s)", streamQueryType, strings.Join(stream.Types, ", "))
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	events, err := store.Query(cmd.Context(), stream.QueryOptions{
		Hours:            streamQueryHours,
		Surface:          streamQuerySurface,
		Type:             streamQueryType,
		SessionID:        streamQuerySession,
		IncludeDistilled: streamQueryDistilled,
	})
	if err != nil {
		return fmt.Errorf("querying stream: %w", err)
	}
	stream.SortEvents(events)

	emptyMsg := fmt.Sprintf("No events in the last %gh.", streamQueryHours)
	return renderEvents(events, output.ResolveFormat(streamQueryFormat), emptyMsg)
}

func runStreamMarkDistilled(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && streamMarkBeforeDate == "" {
		return fmt.Errorf("requires event IDs or --before-date")
	}
	if len(args) > 0 && streamMarkBeforeDate != "" {
		return fmt.Errorf("event IDs and --before-date are mutually exclusive")
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	var marked int
	if streamMarkBeforeDate != "" {
		marked, err = store.MarkDistilledBefore(cmd.Context(), streamMarkBeforeDate)
	} else {
		marked, err = store.MarkDistilled(cmd.Context(), args)
	}
	if err != nil {
		return fmt.Errorf("marking distilled: %w", err)
	}
	fmt.Printf("%s Marked %d events distilled\n", style.SuccessPrefix, marked)
	return nil
}

func runStreamArchive(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	archived, err := store.Archive(cmd.Context(), streamArchiveDaysOld, time.Now())
	if err != nil {
		return fmt.Errorf("archiving stream: %w", err)
	}
	if archived == 0 {
		fmt.Printf("Nothing older than %d days to archive.\n", streamArchiveDaysOld)
		return nil
	}
	fmt.Printf("%s Archived %d events older than %d days\n", style.SuccessPrefix, archived, streamArchiveDaysOld)
	return nil
}

func runStreamStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	events, err := store.Query(cmd.Context(), stream.QueryOptions{
		Hours:            streamStatsHours,
		IncludeDistilled: true,
	})
	if err != nil {
		return fmt.Errorf("querying stream: %w", err)
	}

	bySurface := make(map[string]int)
	byType := make(map[string]int)
	byDirection := make(map[string]int)
	for _, ev := range events {
		bySurface[ev.Surface]++
		byType[ev.Type]++
		byDirection[ev.Direction]++
	}
	metrics := stream.ComputeEventMetrics(events, time.Now())

	if output.ResolveFormat(streamStatsFormat).IsJSON() {
		return output.PrintJSON(struct {
			WindowHours float64        `json:"window_hours"`
			Total       int            `json:"total"`
			BySurface   map[string]int `json:"by_surface"`
			ByType      map[string]int `json:"by_type"`
			ByDirection map[string]int `json:"by_direction"`
			Metrics     stream.Metrics `json:"metrics"`
		}{streamStatsHours, len(events), bySurface, byType, byDirection, metrics})
	}

	fmt.Println(style.Bold.Render(fmt.Sprintf("Stream activity (last %gh)", streamStatsHours)))
	fmt.Println()
	fmt.Printf("  Events:    %d\n", len(events))
	fmt.Printf("  Velocity:  %.2f\n", metrics.Velocity)
	fmt.Println()
	for _, w := range metrics.Windows {
		fmt.Printf("  %4.1fh window: %4d events  (%.1f/h)\n", w.WindowHours, w.Count, w.RatePerHour)
	}
	printCountSection("By surface", bySurface)
	printCountSection("By type", byType)
	printCountSection("By direction", byDirection)
	return nil
}

// printCountSection renders one heading plus sorted key counts.
func printCountSection(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println()
	fmt.Println(style.Bold.Render(title))
	for _, k := range keys {
		name := k
		if name == "" {
			name = "(none)"
		}
		fmt.Printf("  %-12s %d\n", name, counts[k])
	}
}

func runStreamValidate(cmd *cobra.Command, args []string) error {
	var files []string
	if len(args) == 1 {
		files = []string{args[0]}
	} else {
		store, err := openStore()
		if err != nil {
			return err
		}
		files = store.AllFiles()
	}
	if len(files) == 0 {
		fmt.Println("No stream files found.")
		return nil
	}

	type fileReport struct {
		File   string             `json:"file"`
		Lines  int                `json:"lines"`
		Issues []stream.LineIssue `json:"issues"`
	}
	var reports []fileReport
	totalIssues := 0
	for _, path := range files {
		issues, lines, err := stream.ValidateFile(path)
		if err != nil {
			return err
		}
		if issues == nil {
			issues = []stream.LineIssue{}
		}
		totalIssues += len(issues)
		reports = append(reports, fileReport{File: path, Lines: lines, Issues: issues})
	}

	if output.ResolveFormat(streamValidateFormat).IsJSON() {
		return output.PrintJSON(struct {
			Files       []fileReport `json:"files"`
			TotalIssues int          `json:"total_issues"`
		}{reports, totalIssues})
	}

	for _, r := range reports {
		fmt.Printf("%s: %d lines, %d issues\n", r.File, r.Lines, len(r.Issues))
		for _, issue := range r.Issues {
			loc := fmt.Sprintf("line %d", issue.Line)
			if issue.ID != "" {
				loc += fmt.Sprintf(" (%s)", issue.ID)
			}
			fmt.Printf("  %s %s: %s\n", style.WarningPrefix, loc, strings.Join(issue.Problems, "; "))
		}
	}
	fmt.Println()
	if totalIssues == 0 {
		fmt.Printf("%s All stream files valid\n", style.SuccessPrefix)
	} else {
		fmt.Printf("%s %d issues found\n", style.WarningPrefix, totalIssues)
	}
	return nil
}

func runStreamRebuildIndex(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	n, err := store.RebuildIndex(cmd.Context())
	if err != nil {
		return fmt.Errorf("rebuilding distilled index: %w", err)
	}
	fmt.Printf("%s Rebuilt distilled index with %d entries\n", style.SuccessPrefix, n)
	return nil
}

func runStreamMigrateDaily(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	n, err := store.MigrateLegacy(cmd.Context(), streamMigrateDeleteLegacy)
	if err != nil {
		return fmt.Errorf("migrating legacy stream: %w", err)
	}
	if n == 0 {
		fmt.Println("No legacy stream files found.")
		return nil
	}
	fmt.Printf("%s Migrated %d events into daily shards\n", style.SuccessPrefix, n)
	return nil
}

func runStreamUndistilled(cmd *cobra.Command, args []string) error {
	if streamUndistilledDate != "" && streamUndistilledBeforeDate != "" {
		return fmt.Errorf("--date and --before-date are mutually exclusive")
	}
	for _, d := range []string{streamUndistilledDate, streamUndistilledBeforeDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", d)
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	events, err := store.Undistilled(cmd.Context(), streamUndistilledDate, streamUndistilledBeforeDate)
	if err != nil {
		return fmt.Errorf("listing undistilled events: %w", err)
	}
	stream.SortEvents(events)

	return renderEvents(events, output.ResolveFormat(streamUndistilledFormat), "No undistilled events.")
}

// renderEvents prints an event list in the requested format. JSON always
// emits an array, even when empty, so consumers can parse unconditionally.
func renderEvents(events []stream.Event, format output.Format, emptyMsg string) error {
	if format.IsJSON() {
		if events == nil {
			events = []stream.Event{}
		}
		return output.PrintJSON(events)
	}

	if len(events) == 0 {
		fmt.Println(emptyMsg)
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "TIME", Width: 20},
		style.Column{Name: "SURFACE", Width: 8},
		style.Column{Name: "TYPE", Width: 11},
		style.Column{Name: "DIR", Width: 8},
		style.Column{Name: "SUMMARY", Width: 52},
	)
	for _, ev := range events {
		tbl.AddRow(ev.Timestamp, ev.Surface, ev.Type, ev.Direction, ev.Summary)
	}
	fmt.Print(tbl.Render())
	fmt.Printf("\n  %d events\n", len(events))
	return nil
}
