package plan

import (
	"fmt"
	"sort"
	"strings"

	"strata/internal/errors"
	"strata/internal/tier"
	"strata/internal/units"
)

// clone copies the plan so a mutation never touches a published version.
func (p *Plan) clone() *Plan {
	c := *p
	c.Units = make([]*units.Unit, len(p.Units))
	for i, u := range p.Units {
		c.Units[i] = u.Clone()
	}
	c.Changes = append([]string(nil), p.Changes...)
	return &c
}

func (p *Plan) checkMutable() error {
	switch p.Status {
	case StatusApproved:
		return errors.Newf(errors.PlanImmutable, "plan %s v%d is approved and can no longer change", p.ID, p.Version)
	case StatusCancelled:
		return errors.Newf(errors.PlanImmutable, "plan %s v%d was cancelled", p.ID, p.Version)
	}
	return nil
}

func (p *Plan) next(change string) *Plan {
	c := p.clone()
	c.Version++
	c.Changes = append(c.Changes, fmt.Sprintf("v%d: %s", c.Version, change))
	return c
}

// Accept marks the plan approved. The version does not change.
func (p *Plan) Accept() (*Plan, error) {
	if err := p.checkMutable(); err != nil {
		return nil, err
	}
	c := p.clone()
	c.Status = StatusApproved
	return c, nil
}

// Cancel marks the plan cancelled.
func (p *Plan) Cancel() (*Plan, error) {
	if err := p.checkMutable(); err != nil {
		return nil, err
	}
	c := p.clone()
	c.Status = StatusCancelled
	return c, nil
}

// Override changes one unit's level. The destination and affected files are
// recomputed and the previous rationale is kept, annotated as superseded.
func (p *Plan) Override(name string, level tier.Level, reason string) (*Plan, error) {
	if err := p.checkMutable(); err != nil {
		return nil, err
	}
	if !level.IsTier() && level != tier.Skip {
		return nil, errors.Newf(errors.InvalidLevel, "invalid level %q", level)
	}
	if p.Unit(name) == nil {
		return nil, errors.Newf(errors.UnknownUnit, "plan has no unit named %q", name)
	}

	c := p.next(fmt.Sprintf("%s -> %s", name, level))
	applyOverride(c.Unit(name), level, reason)
	c.refresh()
	return c, nil
}

// Exclude marks units as skipped; their files and every import referencing
// them are left untouched.
func (p *Plan) Exclude(names ...string) (*Plan, error) {
	if err := p.checkMutable(); err != nil {
		return nil, err
	}
	for _, n := range names {
		if p.Unit(n) == nil {
			return nil, errors.Newf(errors.UnknownUnit, "plan has no unit named %q", n)
		}
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	c := p.next("excluded " + strings.Join(sorted, ", "))
	for _, n := range names {
		u := c.Unit(n)
		if u.Level != tier.Skip {
			applyOverride(u, tier.Skip, "excluded from this run")
		}
	}
	c.refresh()
	return c, nil
}

// Select keeps only the named units and excludes the rest.
func (p *Plan) Select(names ...string) (*Plan, error) {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		if p.Unit(n) == nil {
			return nil, errors.Newf(errors.UnknownUnit, "plan has no unit named %q", n)
		}
		keep[n] = true
	}
	var drop []string
	for _, u := range p.Active() {
		if !keep[u.Name] {
			drop = append(drop, u.Name)
		}
	}
	return p.Exclude(drop...)
}

func applyOverride(u *units.Unit, level tier.Level, reason string) {
	from := u.Level
	if u.Override != nil {
		from = u.Override.From
	}
	for i, r := range u.Rationale {
		if !strings.HasPrefix(r, "superseded by override: ") && !strings.HasPrefix(r, "override: ") {
			u.Rationale[i] = "superseded by override: " + r
		}
	}
	u.Override = &units.Override{From: from, To: level, Reason: reason}
	note := fmt.Sprintf("override: %s -> %s", from, level)
	if reason != "" {
		note += " (" + reason + ")"
	}
	u.Rationale = append(u.Rationale, note)
	u.Level = level
	if level.IsTier() {
		u.Confidence = units.High
	}
}
