package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/engine"
)

var (
	planFormat      string
	planNonStandard bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Classify components and show the refactoring plan",
	Long: `Scan the components root, classify every component into a tier and
print the resulting plan. Nothing is written.

Examples:
  strata plan
  strata plan --format json
  strata plan --include-nonstandard`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFormat, "format", "human", "Output format (json, human)")
	planCmd.Flags().BoolVar(&planNonStandard, "include-nonstandard", false, "Classify units found in extra roots instead of skipping them")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	eng, done, err := loadEngine()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := newContext()
	defer cancel()

	p, err := eng.Plan(ctx, engine.Options{IncludeNonStandard: planNonStandard})
	if err != nil {
		return err
	}

	output, err := FormatResponse(p, OutputFormat(planFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
