package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"strata/internal/plan"
	"strata/internal/tier"
)

// Renderer draws a plan for a human.
type Renderer func(w io.Writer, p *plan.Plan)

// Terminal prompts on a line-oriented terminal.
//
//	y | yes | approve          approve the plan as shown
//	n | no | cancel | q        cancel
//	set <Unit> <level> [why]   override one unit
//	skip <Unit>...             exclude units
//	only <Unit>...             keep only these units
type Terminal struct {
	in     *bufio.Scanner
	out    io.Writer
	render Renderer
}

// NewTerminal creates a terminal channel.
func NewTerminal(in io.Reader, out io.Writer, render Renderer) *Terminal {
	return &Terminal{in: bufio.NewScanner(in), out: out, render: render}
}

// Decide implements Channel.
func (t *Terminal) Decide(ctx context.Context, p *plan.Plan) (Decision, error) {
	if t.render != nil {
		t.render(t.out, p)
	}
	for {
		fmt.Fprint(t.out, "\nApprove? [y]es / [n]o / set <Unit> <level> / skip <Unit>... / only <Unit>...: ")
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}
		if !t.in.Scan() {
			if err := t.in.Err(); err != nil {
				return Decision{}, err
			}
			// EOF on stdin is a cancel.
			return Decision{Kind: Cancel}, nil
		}
		d, err := ParseDecision(t.in.Text())
		if err != nil {
			fmt.Fprintf(t.out, "  %v\n", err)
			continue
		}
		return d, nil
	}
}

// Rejected implements Rejecter.
func (t *Terminal) Rejected(d Decision, err error) {
	fmt.Fprintf(t.out, "  cannot apply %s: %v\n", d.Kind, err)
}

// ParseDecision parses one line of terminal input.
func ParseDecision(line string) (Decision, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Decision{}, fmt.Errorf("empty answer")
	}
	switch strings.ToLower(fields[0]) {
	case "y", "yes", "approve":
		return Decision{Kind: Approve}, nil
	case "n", "no", "cancel", "q", "quit":
		return Decision{Kind: Cancel}, nil
	case "set", "override":
		if len(fields) < 3 {
			return Decision{}, fmt.Errorf("usage: set <Unit> <level> [reason]")
		}
		level, err := tier.Parse(fields[2])
		if err != nil {
			return Decision{}, err
		}
		return Decision{Kind: Modify, Unit: fields[1], Level: level, Reason: strings.Join(fields[3:], " ")}, nil
	case "skip", "exclude":
		if len(fields) < 2 {
			return Decision{}, fmt.Errorf("usage: skip <Unit>...")
		}
		return Decision{Kind: Exclude, Units: fields[1:]}, nil
	case "only", "select":
		if len(fields) < 2 {
			return Decision{}, fmt.Errorf("usage: only <Unit>...")
		}
		return Decision{Kind: Select, Units: fields[1:]}, nil
	default:
		return Decision{}, fmt.Errorf("unrecognized answer %q", fields[0])
	}
}
