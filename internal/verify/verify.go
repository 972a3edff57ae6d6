// Package verify runs the project's own type checker, linter and test
// runner after a migration and turns their output into an outcome plus
// hints that point at likely causes.
package verify

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"strata/internal/config"
	"strata/internal/paths"
)

// Check names one verification step.
type Check string

const (
	TypeCheck Check = "type-check"
	Lint      Check = "lint"
	Test      Check = "test"
)

// Status is the result of one check.
type Status string

const (
	StatusPass        Status = "pass"
	StatusFail        Status = "fail"
	StatusError       Status = "error"
	StatusUnavailable Status = "unavailable"
)

// Outcome summarizes every check.
type Outcome string

const (
	FullSuccess    Outcome = "full-success"
	PartialSuccess Outcome = "partial-success"
	Blocked        Outcome = "blocked"
)

// Result is one check's result.
type Result struct {
	Check      Check         `json:"check"`
	Command    string        `json:"command"`
	Status     Status        `json:"status"`
	ErrorCount int           `json:"errorCount"`
	Output     string        `json:"output,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Report is the verification outcome of one run.
type Report struct {
	Outcome Outcome  `json:"outcome"`
	Results []Result `json:"results"`
	Hints   []string `json:"hints,omitempty"`
}

// Move is a relocation the hints can correlate errors with.
type Move struct {
	Unit string
	From string
	To   string
}

// Context is what the run changed, used to explain failures.
type Context struct {
	Moves         []Move
	FollowUpFiles []string
}

type checkSpec struct {
	check Check
	cmd   config.CommandConfig
}

// Verifier runs the configured checks.
type Verifier struct {
	tools  Toolchain
	checks []checkSpec
	logger *slog.Logger
}

// New creates a verifier for the enabled checks.
func New(cfg config.VerifyConfig, tools Toolchain, logger *slog.Logger) *Verifier {
	v := &Verifier{tools: tools, logger: logger}
	for _, c := range []checkSpec{{TypeCheck, cfg.TypeCheck}, {Lint, cfg.Lint}, {Test, cfg.Test}} {
		if c.cmd.Enabled && c.cmd.Command != "" {
			v.checks = append(v.checks, c)
		}
	}
	return v
}

// maxOutput bounds the output kept per check.
const maxOutput = 4000

// Verify runs every check in order and derives the outcome.
func (v *Verifier) Verify(ctx context.Context, vc Context) *Report {
	r := &Report{Outcome: FullSuccess}
	var outputs []string

	for _, c := range v.checks {
		res := Result{Check: c.check, Command: strings.TrimSpace(c.cmd.Command + " " + strings.Join(c.cmd.Args, " "))}

		if _, err := v.tools.Locate(c.cmd.Command); err != nil {
			res.Status = StatusUnavailable
			res.Output = err.Error()
			v.logger.Warn("Verification tool unavailable", "check", string(c.check), "command", c.cmd.Command)
			r.Results = append(r.Results, res)
			continue
		}

		start := time.Now()
		inv, err := v.tools.Invoke(ctx, c.cmd.Command, c.cmd.Args...)
		res.Duration = time.Since(start)
		outputs = append(outputs, inv.Output)

		switch {
		case stderrors.Is(err, ErrToolMissing):
			res.Status = StatusUnavailable
		case err != nil:
			res.Status = StatusError
			inv.Output = strings.TrimSpace(inv.Output + "\n" + err.Error())
		case inv.ExitCode == 0:
			res.Status = StatusPass
		default:
			res.Status = StatusFail
			res.ErrorCount = countErrors(c.check, inv.Output)
		}
		if res.Status != StatusPass {
			res.Output = tail(inv.Output, maxOutput)
		}
		v.logger.Info("Verification check finished",
			"check", string(c.check),
			"status", string(res.Status),
			"errors", res.ErrorCount,
			"duration", res.Duration.String(),
		)
		r.Results = append(r.Results, res)
	}

	r.Outcome = outcome(r.Results)
	r.Hints = Hints(strings.Join(outputs, "\n"), vc)
	return r
}

func outcome(results []Result) Outcome {
	out := FullSuccess
	for _, r := range results {
		switch r.Status {
		case StatusUnavailable:
			return Blocked
		case StatusFail, StatusError:
			out = PartialSuccess
		}
	}
	return out
}

var (
	tscErrorRe   = regexp.MustCompile(`(?m)\berror TS\d+:`)
	eslintSumRe  = regexp.MustCompile(`\d+ problems? \((\d+) errors?`)
	jestFailedRe = regexp.MustCompile(`Tests:\s+(\d+) failed`)
	errorLineRe  = regexp.MustCompile(`(?mi)^.*\berror\b.*$`)
)

// countErrors parses the error count from a tool's output. Unknown formats
// count lines mentioning an error, and a failure always counts at least one.
func countErrors(check Check, output string) int {
	n := 0
	switch check {
	case TypeCheck:
		n = len(tscErrorRe.FindAllString(output, -1))
	case Lint:
		if m := eslintSumRe.FindStringSubmatch(output); m != nil {
			n, _ = strconv.Atoi(m[1])
		}
	case Test:
		if m := jestFailedRe.FindStringSubmatch(output); m != nil {
			n, _ = strconv.Atoi(m[1])
		}
	}
	if n == 0 {
		n = len(errorLineRe.FindAllString(output, -1))
	}
	if n == 0 {
		n = 1
	}
	return n
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

var unresolvedRe = regexp.MustCompile(`(?:Cannot find module|Can't resolve|Unable to resolve path to module|Failed to resolve import)\s+['"]([^'"]+)['"]`)

// Hints correlates unresolved-module errors with moved units and flags
// follow-up files that appear in the output.
func Hints(output string, vc Context) []string {
	var hints []string
	seen := make(map[string]bool)
	add := func(h string) {
		if !seen[h] {
			seen[h] = true
			hints = append(hints, h)
		}
	}

	for _, m := range unresolvedRe.FindAllStringSubmatch(output, -1) {
		spec := m[1]
		name := path.Base(spec)
		matched := false
		for _, mv := range vc.Moves {
			if path.Base(paths.StripExt(mv.From)) == name || mv.Unit == name {
				add(fmt.Sprintf("%q cannot be resolved; %s moved from %s to %s", spec, mv.Unit, mv.From, mv.To))
				matched = true
			}
		}
		if !matched {
			add(fmt.Sprintf("%q cannot be resolved and matches no moved unit", spec))
		}
	}
	for _, f := range vc.FollowUpFiles {
		if strings.Contains(output, f) {
			add(fmt.Sprintf("%s has a dynamic import that was not rewritten; update it by hand", f))
		}
	}
	return hints
}
