package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/audit"
	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/style"
)

var (
	auditHours  float64
	auditFormat string
)

var auditCmd = &cobra.Command{
	Use:     "audit",
	GroupID: GroupDiag,
	Short:   "Audit stream coverage and digest inclusion",
	Long: `Measure how well the stream is capturing life over a trailing
window: event counts by surface, how much of the window made it into
the hot digest, which expected surfaces went silent, and whether the
last session handoff is stale.

Examples:
  samara audit
  samara audit --hours 48 --format json`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().Float64Var(&auditHours, "hours", audit.DefaultWindowHours, "trailing window in hours")
	auditCmd.Flags().StringVar(&auditFormat, "format", "", "output format: text or json")
}

func runAudit(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	report, err := audit.New(root, cfg, cmdLogger()).Run(cmd.Context(), audit.Params{Hours: auditHours})
	if err != nil {
		return fmt.Errorf("running audit: %w", err)
	}

	if output.ResolveFormat(auditFormat).IsJSON() {
		return output.PrintJSON(report)
	}

	fmt.Println(style.Bold.Render(fmt.Sprintf("Stream audit (last %gh)", report.WindowHours)))
	fmt.Println()
	fmt.Printf("  Events:       %d (%d undistilled)\n", report.Counts.Total, report.Counts.Undistilled)
	fmt.Printf("  Inclusion:    %.0f%% (%d carried, %d missing)\n",
		report.Digest.Rate*100, report.Digest.Included, report.Digest.Missing)

	printCountSection("By surface", report.Counts.BySurface)
	printCountSection("By type", report.Counts.ByType)
	printCountSection("By direction", report.Counts.ByDirection)

	if len(report.Digest.PerSurface) > 0 {
		fmt.Println()
		fmt.Println(style.Bold.Render("Digest inclusion"))
		surfaces := make([]string, 0, len(report.Digest.PerSurface))
		for s := range report.Digest.PerSurface {
			surfaces = append(surfaces, s)
		}
		sort.Strings(surfaces)
		for _, s := range surfaces {
			inc := report.Digest.PerSurface[s]
			fmt.Printf("  %-12s %.0f%% (%d of %d)\n", s, inc.Rate*100, inc.Included, inc.Included+inc.Missing)
		}
	}

	fmt.Println()
	fmt.Println(style.Bold.Render("Gaps"))
	clean := true
	if len(report.Gaps.MissingSurfaces) > 0 {
		clean = false
		fmt.Printf("  %s No events from: %s\n", style.WarningPrefix, strings.Join(report.Gaps.MissingSurfaces, ", "))
	}
	if report.Gaps.HandoffStale {
		clean = false
		last := report.Gaps.LastHandoff
		if last == "" {
			last = "never"
		}
		fmt.Printf("  %s Handoff stale (last: %s)\n", style.WarningPrefix, last)
	}
	if clean {
		fmt.Printf("  %s No gaps detected\n", style.SuccessPrefix)
	}
	return nil
}
