package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: GroupDiag,
	Short:   "Show version information",
	Args:    cobra.NoArgs,
	RunE:    runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&versionFormat, "format", "", "output format: text or json")
}

func runVersion(cmd *cobra.Command, args []string) error {
	commit := version.ResolveCommit()

	if output.ResolveFormat(versionFormat).IsJSON() {
		return output.PrintJSON(struct {
			Version string `json:"version"`
			Commit  string `json:"commit,omitempty"`
			Go      string `json:"go"`
		}{version.Version, commit, runtime.Version()})
	}

	fmt.Printf("samara %s\n", version.String())
	fmt.Printf("  go: %s\n", runtime.Version())
	return nil
}
