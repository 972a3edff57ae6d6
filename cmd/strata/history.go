package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyFormat  string
	historyLimit   int
	historyReverse string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled runs",
	Long: `List the migration runs recorded in the journal, newest first.

With --reverse, print the moves that undo a run, in the order they must be
applied. Use "latest" for the most recent run.

Examples:
  strata history
  strata history --reverse latest
  strata history --reverse 3f2a... --format json`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list (0 for all)")
	historyCmd.Flags().StringVar(&historyReverse, "reverse", "", "Print the inverse moves of a run")
	rootCmd.AddCommand(historyCmd)
}

// HistoryResponseCLI is the output of strata history.
type HistoryResponseCLI struct {
	Runs    []RunCLI    `json:"runs,omitempty"`
	Reverse *ReverseCLI `json:"reverse,omitempty"`
}

// RunCLI is one journaled run.
type RunCLI struct {
	ID          string    `json:"id"`
	PlanID      string    `json:"planId"`
	PlanVersion int       `json:"planVersion"`
	StartedAt   time.Time `json:"startedAt"`
	Outcome     string    `json:"outcome"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	Rewrites    int       `json:"rewrites"`
}

// ReverseCLI lists the moves undoing one run.
type ReverseCLI struct {
	RunID string    `json:"runId"`
	Moves []MoveCLI `json:"moves"`
}

// MoveCLI is one relocation.
type MoveCLI struct {
	Unit string `json:"unit"`
	From string `json:"from"`
	To   string `json:"to"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	eng, done, err := loadEngine()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := newContext()
	defer cancel()

	j, closeFn, err := eng.OpenJournal()
	if err != nil {
		return err
	}
	defer closeFn()

	resp := &HistoryResponseCLI{}
	if historyReverse != "" {
		id := historyReverse
		if id == "latest" {
			id = ""
		}
		run, err := j.Run(ctx, id)
		if err != nil {
			return err
		}
		moves, err := j.ReverseMoves(ctx, run.ID)
		if err != nil {
			return err
		}
		resp.Reverse = &ReverseCLI{RunID: run.ID, Moves: []MoveCLI{}}
		for _, m := range moves {
			resp.Reverse.Moves = append(resp.Reverse.Moves, MoveCLI{Unit: m.Unit, From: m.From, To: m.To})
		}
	} else {
		runs, err := j.Runs(ctx, historyLimit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			resp.Runs = append(resp.Runs, RunCLI{
				ID:          r.ID,
				PlanID:      r.PlanID,
				PlanVersion: r.PlanVersion,
				StartedAt:   r.StartedAt,
				Outcome:     r.Outcome,
				Completed:   r.Completed,
				Failed:      r.Failed,
				Rewrites:    r.Rewrites,
			})
		}
	}

	output, err := FormatResponse(resp, OutputFormat(historyFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}
