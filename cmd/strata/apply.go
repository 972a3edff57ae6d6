package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"strata/internal/approval"
	"strata/internal/engine"
	"strata/internal/verify"
)

var (
	applyFormat      string
	applyYes         bool
	applyDryRun      bool
	applyNoDocs      bool
	applyNoVerify    bool
	applyNonStandard bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Review the plan and migrate components into tier directories",
	Long: `Build the plan, present it for approval, then move every approved
component into its tier directory, rewrite imports, update aggregation
modules and run the verification commands.

At the prompt:
  y                         approve and run
  set <Unit> <level> [why]  change one unit's level
  skip <Unit>...            leave units where they are
  only <Unit>...            migrate only these units
  n                         cancel without writing

Exit codes: 0 success, 1 error, 2 partial success, 3 verification blocked,
4 cancelled.

Examples:
  strata apply
  strata apply --dry-run
  strata apply --yes --no-docs`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyFormat, "format", "human", "Output format (json, human)")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Approve the plan without prompting")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Compute every change and print a diff without writing")
	applyCmd.Flags().BoolVar(&applyNoDocs, "no-docs", false, "Do not update documentation stub titles")
	applyCmd.Flags().BoolVar(&applyNoVerify, "no-verify", false, "Skip the verification commands")
	applyCmd.Flags().BoolVar(&applyNonStandard, "include-nonstandard", false, "Classify units found in extra roots instead of skipping them")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	eng, done, err := loadEngine()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := newContext()
	defer cancel()

	var ch approval.Channel = approval.Auto{}
	if !applyYes {
		ch = approval.NewTerminal(os.Stdin, cmd.ErrOrStderr(), renderPlan)
	}

	sum, err := eng.Run(ctx, engine.Options{
		IncludeNonStandard: applyNonStandard,
		DryRun:             applyDryRun,
		NoDocs:             applyNoDocs,
		SkipVerify:         applyNoVerify,
	}, ch)
	if err != nil {
		return err
	}

	output, err := FormatResponse(sum, OutputFormat(applyFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	code := verify.DetermineExitCode(sum.Succeeded(), sum.Verification)
	if code != verify.ExitSuccess {
		return &verify.ExitResult{Code: code}
	}
	return nil
}
