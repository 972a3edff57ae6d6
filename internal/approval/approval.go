// Package approval is the blocking request/response channel between plan
// construction and execution. A plan is presented, a decision comes back,
// and modifications loop until the plan is approved or cancelled.
package approval

import (
	"context"
	"fmt"
	"log/slog"

	"strata/internal/errors"
	"strata/internal/plan"
	"strata/internal/tier"
)

// Kind is a decision variant.
type Kind string

const (
	Approve Kind = "approve"
	Modify  Kind = "modify"
	Select  Kind = "select"
	Exclude Kind = "exclude"
	Cancel  Kind = "cancel"
)

// Decision is the answer to one presented plan version.
type Decision struct {
	Kind Kind

	// Unit and Level are set for Modify.
	Unit   string
	Level  tier.Level
	Reason string

	// Units is set for Select and Exclude.
	Units []string
}

// Channel presents a plan and blocks until a decision is made.
type Channel interface {
	Decide(ctx context.Context, p *plan.Plan) (Decision, error)
}

// maxRounds bounds the modify loop so a misbehaving channel cannot spin forever.
const maxRounds = 100

// Resolve drives the loop: every Modify, Select or Exclude produces a new
// plan version which is presented again. It returns the approved plan, or a
// PLAN_CANCELLED error together with the cancelled plan.
func Resolve(ctx context.Context, ch Channel, p *plan.Plan, logger *slog.Logger) (*plan.Plan, error) {
	for round := 0; round < maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return p, errors.New(errors.PlanCancelled, "approval interrupted", err)
		}

		d, err := ch.Decide(ctx, p)
		if err != nil {
			return p, err
		}
		logger.Debug("Approval decision", "plan", p.ID, "version", p.Version, "decision", string(d.Kind))

		var next *plan.Plan
		switch d.Kind {
		case Approve:
			return p.Accept()
		case Cancel:
			cancelled, cerr := p.Cancel()
			if cerr != nil {
				return p, cerr
			}
			return cancelled, errors.Newf(errors.PlanCancelled, "plan %s cancelled at version %d", p.ID, p.Version)
		case Modify:
			next, err = p.Override(d.Unit, d.Level, d.Reason)
		case Select:
			next, err = p.Select(d.Units...)
		case Exclude:
			next, err = p.Exclude(d.Units...)
		default:
			err = fmt.Errorf("unknown decision %q", d.Kind)
		}
		if err != nil {
			// Invalid modifications are reported and the same version is
			// presented again.
			logger.Warn("Decision rejected", "decision", string(d.Kind), "error", err.Error())
			if r, ok := ch.(Rejecter); ok {
				r.Rejected(d, err)
			}
			continue
		}
		logger.Info("Plan revised", "plan", next.ID, "version", next.Version)
		p = next
	}
	return p, errors.Newf(errors.InternalError, "no decision after %d rounds", maxRounds)
}

// Rejecter is implemented by channels that want to hear about decisions
// that could not be applied.
type Rejecter interface {
	Rejected(d Decision, err error)
}

// Auto approves every plan as presented.
type Auto struct{}

// Decide implements Channel.
func (Auto) Decide(ctx context.Context, p *plan.Plan) (Decision, error) {
	return Decision{Kind: Approve}, nil
}

// Scripted replays a fixed list of decisions. Once exhausted it cancels.
type Scripted struct {
	Decisions []Decision

	// Seen records every plan version presented.
	Seen     []*plan.Plan
	Failures []error
}

// Decide implements Channel.
func (s *Scripted) Decide(ctx context.Context, p *plan.Plan) (Decision, error) {
	s.Seen = append(s.Seen, p)
	if len(s.Decisions) == 0 {
		return Decision{Kind: Cancel}, nil
	}
	d := s.Decisions[0]
	s.Decisions = s.Decisions[1:]
	return d, nil
}

// Rejected implements Rejecter.
func (s *Scripted) Rejected(d Decision, err error) {
	s.Failures = append(s.Failures, err)
}
