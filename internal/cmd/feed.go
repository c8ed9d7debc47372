package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/tui/feed"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	GroupID: GroupDiag,
	Short:   "Live view of the event stream",
	Long: `Open a terminal UI tailing today's daily shard. New events appear
as they are appended; at UTC midnight the feed follows the writer to
the new shard.

Keys: f cycles the surface filter, a shows all surfaces, ? toggles
help, q quits.`,
	Args: cobra.NoArgs,
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}

	source, err := feed.NewStreamSource(root)
	if err != nil {
		return fmt.Errorf("opening stream: %w", err)
	}
	defer source.Close()

	m := feed.NewModel()
	m.SetEventChannel(source.Events())

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running feed: %w", err)
	}
	return nil
}
