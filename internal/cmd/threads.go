package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/style"
	"github.com/steveyegge/samara/internal/threads"
)

var threadsCmd = &cobra.Command{
	Use:     "threads",
	GroupID: GroupAwareness,
	Short:   "Track open topical threads across sessions",
	Long: `Maintain state/threads.json, the durable index of open threads.

Session handoffs list threads under an "## Open Threads" heading; the
indexer folds those into the index so follow-ups survive the session
that raised them.`,
	RunE: requireSubcommand,
}

var threadsIndexSession string

var threadsIndexCmd = &cobra.Command{
	Use:   "index <handoff.md>",
	Short: "Fold a handoff's open threads into the index",
	Long: `Parse the "## Open Threads" section of a handoff file and update
the thread index: known titles are reopened in place, new titles are
appended, and threads the handoff does not mention are left alone.

Examples:
  samara threads index ~/.claude-mind/handoffs/2026-01-15.md
  samara threads index handoff.md --session abc123`,
	Args: cobra.ExactArgs(1),
	RunE: runThreadsIndex,
}

var (
	threadsListAll    bool
	threadsListFormat string
)

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List threads in the index",
	Long: `List open threads, oldest first. Closed threads stay in the index
for history; --all shows them too.

Examples:
  samara threads list
  samara threads list --all --format json`,
	Args: cobra.NoArgs,
	RunE: runThreadsList,
}

func init() {
	rootCmd.AddCommand(threadsCmd)
	threadsCmd.AddCommand(threadsIndexCmd)
	threadsCmd.AddCommand(threadsListCmd)

	threadsIndexCmd.Flags().StringVar(&threadsIndexSession, "session", "", "session ID to record as the thread source")

	threadsListCmd.Flags().BoolVar(&threadsListAll, "all", false, "include closed threads")
	threadsListCmd.Flags().StringVar(&threadsListFormat, "format", "", "output format: text or json")
}

func runThreadsIndex(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	res, err := threads.NewIndexer(root, cmdLogger()).IndexHandoff(args[0], threadsIndexSession)
	if err != nil {
		return fmt.Errorf("indexing handoff: %w", err)
	}

	fmt.Printf("%s Indexed %d threads (%d new, %d reopened)\n",
		style.SuccessPrefix, res.Parsed, res.Added, res.Updated)
	for _, title := range res.Titles {
		fmt.Printf("  %s %s\n", style.ArrowPrefix, title)
	}
	return nil
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	records := threads.LoadRecords(root)
	if !threadsListAll {
		records = threads.Open(records)
	}

	if output.ResolveFormat(threadsListFormat).IsJSON() {
		if records == nil {
			records = []threads.Record{}
		}
		return output.PrintJSON(records)
	}

	if len(records) == 0 {
		fmt.Println("No threads.")
		return nil
	}

	tbl := style.NewTable(
		style.Column{Name: "ID", Width: 17},
		style.Column{Name: "STATUS", Width: 8},
		style.Column{Name: "LAST SEEN", Width: 20},
		style.Column{Name: "TITLE", Width: 50},
	)
	for _, r := range records {
		status := r.Status
		if status == "" {
			status = "open"
		}
		tbl.AddRow(r.ID, status, r.LastSeen, r.Title)
	}
	fmt.Print(tbl.Render())
	fmt.Printf("\n  %d threads\n", len(records))
	return nil
}
