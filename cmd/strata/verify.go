package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strata/internal/verify"
)

var verifyFormat string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the type-check, lint and test commands",
	Long: `Run the configured verification commands against the current tree.
When the journal is enabled, failures are correlated with the moves of the
most recent run.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	eng, done, err := loadEngine()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := newContext()
	defer cancel()

	report := eng.Verify(ctx, eng.LastRunContext(ctx))

	output, err := FormatResponse(report, OutputFormat(verifyFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	if code := verify.DetermineExitCode(true, report); code != verify.ExitSuccess {
		return &verify.ExitResult{Code: code}
	}
	return nil
}
