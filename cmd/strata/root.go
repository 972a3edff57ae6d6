package main

import (
	"github.com/spf13/cobra"

	"strata/internal/version"
)

var (
	verbosity int
	quiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata - component hierarchy migration",
	Long: `strata classifies the UI components of a flat component tree into
atoms, molecules, organisms, templates and pages, proposes a reviewable
refactoring plan, and moves every component into its tier directory while
keeping every import resolvable.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
}
