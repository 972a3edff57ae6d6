package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"strata/internal/errors"
	"strata/internal/verify"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(exitCodeFor(err)))
	}
}

// exitCodeFor maps a command error onto the process exit code. An
// *verify.ExitResult carries its own code and has already been reported.
func exitCodeFor(err error) verify.ExitCode {
	var res *verify.ExitResult
	if stderrors.As(err, &res) {
		if res.Message != "" {
			fmt.Fprintln(os.Stderr, res.Message)
		}
		return res.Code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.HasCode(err, errors.PlanCancelled) {
		return verify.ExitCancelled
	}
	return verify.ExitError
}
