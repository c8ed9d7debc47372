// Package cmd provides CLI commands for the samara tool.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/style"
	"github.com/steveyegge/samara/internal/ui"
	"github.com/steveyegge/samara/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "samara",
	Short:   "Samara - personal awareness substrate",
	Version: version.String(),
	Long: `Samara maintains a persistent awareness substrate under a mind root
(default ~/.claude-mind).

It records every interaction, sense reading, and system event in an
append-only stream, distills the recent window into a hot digest, and
decides when the mind should wake, engage, or stay quiet.`,
	PersistentPreRun: setupTerminal,
}

// Persistent flags shared by every command.
var (
	flagMindRoot string
	flagVerbose  bool
)

// setupTerminal drops ANSI styling when stdout is not a color-capable
// terminal, so piped output stays clean.
func setupTerminal(cmd *cobra.Command, args []string) {
	if !ui.ShouldUseColor() {
		style.DisableColor()
	}
}

// Execute runs the root command and returns an exit code.
// The caller (main) should call os.Exit with this code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		// Errors already printed by cobra
		return 1
	}
	return 0
}

// Command group IDs - used by subcommands to organize help output
const (
	GroupStream    = "stream"
	GroupAwareness = "awareness"
	GroupSenses    = "senses"
	GroupDiag      = "diag"
)

func init() {
	// Enable prefix matching for subcommands (e.g., "samara str q" -> "samara stream query")
	cobra.EnablePrefixMatching = true

	// Define command groups (order determines help output order)
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupStream, Title: "Stream:"},
		&cobra.Group{ID: GroupAwareness, Title: "Awareness:"},
		&cobra.Group{ID: GroupSenses, Title: "Senses:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)

	// Put help and completion in a sensible group
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)

	rootCmd.PersistentFlags().StringVar(&flagMindRoot, "mind-root", "", "mind root directory (default $SAMARA_MIND_ROOT or ~/.claude-mind)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log internal activity to stderr")
}

// mindRoot resolves the mind root from the --mind-root flag, falling
// back to the environment and the home-directory default.
func mindRoot() (mind.Root, error) {
	if flagMindRoot != "" {
		return mind.At(flagMindRoot), nil
	}
	return mind.Resolve()
}

// cmdLogger returns the logger commands hand to internal packages.
// Silent unless --verbose is set, so machine-readable output on stdout
// stays parseable.
func cmdLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// buildCommandPath walks the command hierarchy to build the full command path.
// For example: "samara stream write", "samara audit", etc.
func buildCommandPath(cmd *cobra.Command) string {
	var parts []string
	for c := cmd; c != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return strings.Join(parts, " ")
}

// requireSubcommand returns a RunE function for parent commands that require
// a subcommand. Without this, Cobra silently shows help and exits 0 for
// unknown subcommands like "samara stream foobar", masking errors.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\nRun '%s --help' for usage", buildCommandPath(cmd))
	}
	return fmt.Errorf("unknown command %q for %q\n\nRun '%s --help' for available commands",
		args[0], buildCommandPath(cmd), buildCommandPath(cmd))
}
