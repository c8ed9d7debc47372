package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/digest"
	"github.com/steveyegge/samara/internal/output"
	"github.com/steveyegge/samara/internal/stream"
	"github.com/steveyegge/samara/internal/summarize"
	"github.com/steveyegge/samara/internal/ui"
)

var (
	digestHours     string
	digestBudget    int
	digestSummarize bool
	digestModel     string
	digestCacheTTL  time.Duration
	digestOut       string
	digestRender    bool
	digestFormat    string
)

var digestCmd = &cobra.Command{
	Use:     "digest",
	GroupID: GroupAwareness,
	Short:   "Build the hot digest of recent activity",
	Long: `Distill the recent stream window into a compact markdown digest.

The window adapts to activity: busy streams get a short window, quiet
streams a long one. Pass --hours to pin it instead. The digest is
written to state/hot-digest.md and printed.

Examples:
  samara digest
  samara digest --hours 6 --budget 1500
  samara digest --summarize --model claude-haiku
  samara digest --render`,
	Args: cobra.NoArgs,
	RunE: runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVar(&digestHours, "hours", "auto", "window in hours, or 'auto' for adaptive selection")
	digestCmd.Flags().IntVar(&digestBudget, "budget", digest.DefaultBudget, "token budget for the digest body")
	digestCmd.Flags().BoolVar(&digestSummarize, "summarize", false, "collapse the window into narrative via the summarizer chain")
	digestCmd.Flags().StringVar(&digestModel, "model", "", "summarizer model override")
	digestCmd.Flags().DurationVar(&digestCacheTTL, "cache-ttl", 0, "reuse a cached digest younger than this (0 always rebuilds)")
	digestCmd.Flags().StringVar(&digestOut, "out", "", "write the digest to this path instead of state/hot-digest.md")
	digestCmd.Flags().BoolVar(&digestRender, "render", false, "render markdown for the terminal")
	digestCmd.Flags().StringVar(&digestFormat, "format", "", "output format: text or json")
}

func runDigest(cmd *cobra.Command, args []string) error {
	root, err := mindRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	logger := cmdLogger()
	builder := digest.NewBuilder(stream.New(root, logger), cfg, logger)
	if digestSummarize {
		builder.Summarizer = summarize.FromEnv(logger)
	}

	text, meta, err := builder.BuildWithMeta(cmd.Context(), digest.Params{
		Hours:     digestHours,
		Budget:    digestBudget,
		Summarize: digestSummarize,
		Model:     digestModel,
		CacheTTL:  digestCacheTTL,
		OutPath:   digestOut,
	})
	if err != nil {
		return fmt.Errorf("building digest: %w", err)
	}

	if output.ResolveFormat(digestFormat).IsJSON() {
		return output.PrintJSON(struct {
			Digest string       `json:"digest"`
			Meta   *digest.Meta `json:"meta"`
		}{text, meta})
	}

	if digestRender && ui.IsTerminal() && !ui.InsideMindSession() {
		if rendered, ok := renderMarkdown(text); ok {
			fmt.Print(rendered)
			return nil
		}
	}
	fmt.Print(text)
	return nil
}

// renderMarkdown pretty-prints markdown via glamour. Returns ok=false on
// any renderer failure so callers fall back to the raw text.
func renderMarkdown(text string) (string, bool) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", false
	}
	out, err := r.Render(text)
	if err != nil {
		return "", false
	}
	return out, true
}
