package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/sense"
	"github.com/steveyegge/samara/internal/style"
)

var sensesCmd = &cobra.Command{
	Use:     "senses",
	GroupID: GroupSenses,
	Short:   "Ingest satellite sense deposits into the stream",
	Long: `Satellites drop *.event.json files into <mind-root>/senses/.
Ingestion validates each deposit, converts it to a stream event, and
removes the file; bad deposits move to senses/rejected/ with a note.`,
	RunE: requireSubcommand,
}

var sensesIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Sweep the senses directory once",
	Long: `Ingest every deposit currently waiting in the senses directory.

Examples:
  samara senses ingest`,
	Args: cobra.NoArgs,
	RunE: runSensesIngest,
}

var sensesWatchInterval time.Duration

var sensesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the senses directory continuously",
	Long: `Sweep once at startup, then keep ingesting as deposits arrive.
Filesystem notifications drive the fast path; a periodic sweep catches
anything missed. Runs until interrupted.

Examples:
  samara senses watch
  samara senses watch --interval 1m`,
	Args: cobra.NoArgs,
	RunE: runSensesWatch,
}

func init() {
	rootCmd.AddCommand(sensesCmd)
	sensesCmd.AddCommand(sensesIngestCmd)
	sensesCmd.AddCommand(sensesWatchCmd)

	sensesWatchCmd.Flags().DurationVar(&sensesWatchInterval, "interval", sense.DefaultSweepInterval, "fallback sweep interval")
}

func runSensesIngest(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	res, err := sense.NewIngestor(root, cmdLogger()).Ingest(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingesting senses: %w", err)
	}

	if res.Ingested == 0 && res.Rejected == 0 {
		fmt.Println("No deposits waiting.")
		return nil
	}
	fmt.Printf("%s Ingested %d deposits", style.SuccessPrefix, res.Ingested)
	if res.Rejected > 0 {
		fmt.Printf(", rejected %d", res.Rejected)
	}
	fmt.Println()
	return nil
}

func runSensesWatch(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Printf("Watching %s (sweep every %s). Ctrl-C to stop.\n", root.SensesDir(), sensesWatchInterval)
	if err := sense.NewIngestor(root, cmdLogger()).Watch(ctx, sensesWatchInterval); err != nil {
		return fmt.Errorf("watching senses: %w", err)
	}
	return nil
}
