package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/scheduler"
	"github.com/steveyegge/samara/internal/style"
)

var wakeCmd = &cobra.Command{
	Use:     "wake",
	GroupID: GroupAwareness,
	Short:   "Decide and record autonomous wakes",
	Long: `The wake scheduler decides when the mind should run a wake cycle:
at base hours on a fixed schedule, or between them when ambient signals
build enough confidence. State lives in state/scheduler-state.json.`,
	RunE: requireSubcommand,
}

var wakeCheckFormat string

var wakeCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask whether a wake should happen now",
	Long: `Run the wake decision ladder: cooldown first, then the base
schedule, then signal confidence. Prints the decision without recording
anything.

Examples:
  samara wake check
  samara wake check --format json`,
	Args: cobra.NoArgs,
	RunE: runWakeCheck,
}

var wakeRecordCmd = &cobra.Command{
	Use:   "record <full|light>",
	Short: "Record that a wake happened",
	Long: `Persist a wake to scheduler state, starting the cooldown and
bumping the daily count.

Examples:
  samara wake record full
  samara wake record light`,
	Args: cobra.ExactArgs(1),
	RunE: runWakeRecord,
}

var wakeStatusFormat string

var wakeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduler state",
	Args:  cobra.NoArgs,
	RunE:  runWakeStatus,
}

func init() {
	rootCmd.AddCommand(wakeCmd)
	wakeCmd.AddCommand(wakeCheckCmd)
	wakeCmd.AddCommand(wakeRecordCmd)
	wakeCmd.AddCommand(wakeStatusCmd)

	wakeCheckCmd.Flags().StringVar(&wakeCheckFormat, "format", "", "output format: text or json")
	wakeStatusCmd.Flags().StringVar(&wakeStatusFormat, "format", "", "output format: text or json")
}

func runWakeCheck(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	decision := scheduler.New(root, cmdLogger()).ShouldWakeNow()

	if output.ResolveFormat(wakeCheckFormat).IsJSON() {
		return output.PrintJSON(decision)
	}

	if decision.Wake {
		fmt.Printf("%s Wake %s (%s)\n", style.SuccessPrefix, decision.WakeType, decision.Reason)
	} else {
		fmt.Printf("%s No wake: %s\n", style.Dim.Render("·"), decision.Reason)
	}
	fmt.Printf("  Confidence: %.2f\n", decision.Confidence)
	return nil
}

func runWakeRecord(cmd *cobra.Command, args []string) error {
	wakeType := args[0]
	if wakeType != scheduler.WakeFull && wakeType != scheduler.WakeLight {
		return fmt.Errorf("unknown wake type %q (valid: %s, %s)", wakeType, scheduler.WakeFull, scheduler.WakeLight)
	}

	root, err := mindRoot()
	if err != nil {
		return err
	}
	if err := scheduler.New(root, cmdLogger()).RecordWake(wakeType); err != nil {
		return fmt.Errorf("recording wake: %w", err)
	}
	fmt.Printf("%s Recorded %s wake\n", style.SuccessPrefix, wakeType)
	return nil
}

func runWakeStatus(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	state := scheduler.New(root, cmdLogger()).LoadState()

	if output.ResolveFormat(wakeStatusFormat).IsJSON() {
		return output.PrintJSON(state)
	}

	fmt.Println(style.Bold.Render("Wake scheduler"))
	fmt.Println()
	last := state.LastWake
	if last == "" {
		last = "never"
	}
	fmt.Printf("  Last wake:   %s", last)
	if state.LastWakeType != "" {
		fmt.Printf(" (%s)", state.LastWakeType)
	}
	fmt.Println()
	fmt.Printf("  Wakes today: %d", state.WakeCountToday)
	if state.Date != "" {
		fmt.Printf(" (%s)", state.Date)
	}
	fmt.Println()
	return nil
}
