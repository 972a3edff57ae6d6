package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"strata/internal/execute"
	"strata/internal/plan"
	"strata/internal/tier"
	"strata/internal/units"
	"strata/internal/verify"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp interface{}) (string, error) {
	var b strings.Builder
	switch v := resp.(type) {
	case *plan.Plan:
		renderPlan(&b, v)
	case *execute.Summary:
		renderSummary(&b, v)
	case *verify.Report:
		renderReport(&b, v)
	case *HistoryResponseCLI:
		renderHistory(&b, v)
	default:
		return formatJSON(resp)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderPlan draws the plan table. It doubles as the approval prompt renderer.
func renderPlan(w io.Writer, p *plan.Plan) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Refactoring plan %s v%d (%s)", shortID(p.ID), p.Version, p.Status)))
	fmt.Fprintf(w, "Root: %s\n\n", p.Root)

	if p.IsEmpty() {
		fmt.Fprintln(w, successStyle.Render(p.Summary()))
		return
	}

	nameW, levelW := len("UNIT"), len("LEVEL")
	for _, u := range p.Units {
		nameW = max(nameW, len(u.Name))
		levelW = max(levelW, len(u.Level))
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-*s  %-*s  %-10s  %s", levelW, "LEVEL", nameW, "UNIT", "CONFIDENCE", "DESTINATION")))
	for _, u := range p.Units {
		level := levelStyle(string(u.Level)).Render(fmt.Sprintf("%-*s", levelW, u.Level))
		conf := fmt.Sprintf("%-10s", u.Confidence)
		if u.Confidence.NeedsReview() {
			conf = warningStyle.Render(conf)
		}
		dest := u.Destination
		if dest == "" {
			dest = mutedStyle.Render("(stays)")
		}
		fmt.Fprintf(w, "%s  %-*s  %s  %s\n", level, nameW, u.Name, conf, dest)
		if len(u.Rationale) > 0 {
			fmt.Fprintf(w, "%s  %s\n", strings.Repeat(" ", levelW), mutedStyle.Render(u.Rationale[0]))
		}
	}

	var counts []string
	for _, l := range append(tier.All(), tier.Skip) {
		if n := p.Counts[l]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s %d", l, n))
		}
	}
	fmt.Fprintf(w, "\n%s\n", p.Summary())
	if len(counts) > 0 {
		fmt.Fprintf(w, "Counts: %s\n", strings.Join(counts, ", "))
	}
	fmt.Fprintf(w, "Affected files: %d\n", p.AffectedFileCount)

	if review := p.NeedsReview(); len(review) > 0 {
		names := make([]string, len(review))
		for i, u := range review {
			names[i] = u.Name
		}
		fmt.Fprintln(w, warningStyle.Render("Needs review: "+strings.Join(names, ", ")))
	}
	renderWarnings(w, p.Warnings)
	for _, c := range p.Changes {
		fmt.Fprintln(w, mutedStyle.Render(c))
	}
}

func renderWarnings(w io.Writer, ws []units.Warning) {
	if len(ws) == 0 {
		return
	}
	fmt.Fprintf(w, "\nWarnings (%d):\n", len(ws))
	for _, x := range ws {
		fmt.Fprintf(w, "  %s [%s] %s\n", warningStyle.Render("!"), x.Kind, x.Message)
		if x.Suggestion != "" {
			fmt.Fprintf(w, "    %s\n", mutedStyle.Render("-> "+x.Suggestion))
		}
	}
}

func renderSummary(w io.Writer, s *execute.Summary) {
	title := fmt.Sprintf("Run %s (plan %s v%d)", shortID(s.RunID), shortID(s.PlanID), s.PlanVersion)
	if s.DryRun {
		title += " [dry run]"
	}
	fmt.Fprintln(w, titleStyle.Render(title))

	if len(s.Completed) > 0 {
		fmt.Fprintln(w, successStyle.Render("Completed: "+strings.Join(s.Completed, ", ")))
	} else {
		fmt.Fprintln(w, "Nothing migrated")
	}
	for _, f := range s.Failed {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("Failed: %s [%s] %s", f.Unit, f.Code, f.Reason)))
	}
	if len(s.NotCompleted) > 0 {
		fmt.Fprintln(w, warningStyle.Render("Not completed: "+strings.Join(s.NotCompleted, ", ")))
	}
	if len(s.Skipped) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("Skipped: "+strings.Join(s.Skipped, ", ")))
	}

	if len(s.Moves) > 0 {
		fmt.Fprintln(w, "\nMoves:")
		for _, m := range s.Moves {
			fmt.Fprintf(w, "  %-9s %s  %s -> %s\n", m.Level, m.Unit, m.From, m.To)
		}
	}
	fmt.Fprintf(w, "\nImport rewrites: %d  Files written: %d\n", s.Rewrites, len(s.FilesWritten))
	if len(s.Aggregations) > 0 {
		fmt.Fprintf(w, "Aggregation modules: %s\n", strings.Join(s.Aggregations, ", "))
	}

	if len(s.FollowUps) > 0 {
		fmt.Fprintln(w, warningStyle.Render("\nManual follow-ups:"))
		for _, f := range s.FollowUps {
			fmt.Fprintf(w, "  %s:%d [%s] %s (%s)\n", f.File, f.Line, f.Code, f.Expr, strings.Join(f.Units, ", "))
		}
	}

	if s.Verification != nil {
		fmt.Fprintln(w)
		renderReport(w, s.Verification)
	}
	if s.Preview != "" {
		added, removed := 0, 0
		for _, st := range s.PreviewStats {
			added += st.Added
			removed += st.Removed
		}
		fmt.Fprintf(w, "\n%d files changed, +%d -%d\n%s\n", len(s.PreviewStats), added, removed, s.Preview)
	}
}

func renderReport(w io.Writer, r *verify.Report) {
	style := successStyle
	switch r.Outcome {
	case verify.PartialSuccess:
		style = warningStyle
	case verify.Blocked:
		style = errorStyle
	}
	fmt.Fprintln(w, style.Render("Verification: "+string(r.Outcome)))
	for _, res := range r.Results {
		line := fmt.Sprintf("  %-11s %-12s %s", res.Check, res.Status, res.Command)
		if res.ErrorCount > 0 {
			line += fmt.Sprintf(" (%d errors)", res.ErrorCount)
		}
		fmt.Fprintln(w, line)
	}
	for _, h := range r.Hints {
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("hint:"), h)
	}
}

func renderHistory(w io.Writer, h *HistoryResponseCLI) {
	if h.Reverse != nil {
		fmt.Fprintln(w, titleStyle.Render("Moves that undo run "+h.Reverse.RunID))
		for _, m := range h.Reverse.Moves {
			fmt.Fprintf(w, "  %s  %s -> %s\n", m.Unit, m.From, m.To)
		}
		return
	}
	if len(h.Runs) == 0 {
		fmt.Fprintln(w, "No runs journaled")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-20s  %-15s  %s", "RUN", "STARTED", "OUTCOME", "UNITS")))
	for _, r := range h.Runs {
		fmt.Fprintf(w, "%-36s  %-20s  %-15s  %d moved, %d failed\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Outcome, r.Completed, r.Failed)
	}
}
