package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/style"
	"github.com/steveyegge/samara/internal/trigger"
)

var triggersCmd = &cobra.Command{
	Use:     "triggers",
	GroupID: GroupAwareness,
	Short:   "Evaluate proactive-engagement triggers",
	Long: `Gather triggers from patterns, calendar, pending satellite drops,
weather, and anomalies, fuse them into one decision, and apply the
safeguards (quiet hours, cooldown, recent interaction, meetings).

Every evaluation is appended to state/trigger-evaluations.jsonl.`,
	RunE: requireSubcommand,
}

var triggersEvaluateFormat string

var triggersEvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation pass",
	Long: `Collect and fuse the current triggers, then print the decision.

Examples:
  samara triggers evaluate
  samara triggers evaluate --format json`,
	Args: cobra.NoArgs,
	RunE: runTriggersEvaluate,
}

var triggersRecordEngagementCmd = &cobra.Command{
	Use:   "record-engagement",
	Short: "Record that an engagement was sent",
	Long: `Stamp state/last-trigger-engagement so the engagement cooldown
starts now.`,
	Args: cobra.NoArgs,
	RunE: runTriggersRecordEngagement,
}

func init() {
	rootCmd.AddCommand(triggersCmd)
	triggersCmd.AddCommand(triggersEvaluateCmd)
	triggersCmd.AddCommand(triggersRecordEngagementCmd)

	triggersEvaluateCmd.Flags().StringVar(&triggersEvaluateFormat, "format", "", "output format: text or json")
}

func runTriggersEvaluate(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	decision, err := trigger.New(root, cmdLogger()).Evaluate(cmd.Context())
	if err != nil {
		return fmt.Errorf("evaluating triggers: %w", err)
	}

	if output.ResolveFormat(triggersEvaluateFormat).IsJSON() {
		return output.PrintJSON(decision)
	}

	if decision.ShouldEngage {
		fmt.Printf("%s Engage (%s)\n", style.SuccessPrefix, decision.Reason)
	} else {
		fmt.Printf("%s %s: %s\n", style.Dim.Render("·"), decision.Escalation, decision.Reason)
	}
	if decision.LowBattery {
		fmt.Printf("  %s Low battery: outbound messages suppressed\n", style.WarningPrefix)
	}
	if len(decision.Triggers) > 0 {
		fmt.Println()
		for _, t := range decision.Triggers {
			fmt.Printf("  %s %-14s %.2f  %s\n", style.ArrowPrefix, t.Type, t.Confidence, t.Reason)
		}
	}
	return nil
}

func runTriggersRecordEngagement(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}
	if err := trigger.New(root, cmdLogger()).RecordEngagement(); err != nil {
		return fmt.Errorf("recording engagement: %w", err)
	}
	fmt.Printf("%s Engagement recorded\n", style.SuccessPrefix)
	return nil
}
