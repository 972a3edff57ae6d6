package classify

import (
	"fmt"
	"path"
	"strings"

	"strata/internal/signals"
	"strata/internal/tier"
	"strata/internal/units"
)

// Input is everything the classifier looks at for one unit.
type Input struct {
	Unit  *units.Unit
	Facts *signals.Facts
	// Deps are the units this unit imports, candidates and already-placed units alike.
	Deps []string
}

// Criterion is one binary check of a tier matcher.
type Criterion struct {
	Name string `json:"name"`
	Met  bool   `json:"met"`
}

// Match is a tier matcher's verdict for one unit.
type Match struct {
	Level      tier.Level
	Criteria   []Criterion
	Qualified  bool
	Confidence units.Confidence
	Note       string
}

// Satisfied counts the met criteria.
func (m Match) Satisfied() int {
	n := 0
	for _, c := range m.Criteria {
		if c.Met {
			n++
		}
	}
	return n
}

// Rationale renders the match as one human-readable line.
func (m Match) Rationale() string {
	var met, unmet []string
	for _, c := range m.Criteria {
		if c.Met {
			met = append(met, c.Name)
		} else {
			unmet = append(unmet, c.Name)
		}
	}
	s := fmt.Sprintf("%s: %d/%d criteria met", m.Level, m.Satisfied(), len(m.Criteria))
	if len(met) > 0 {
		s += " (" + strings.Join(met, ", ") + ")"
	}
	if len(unmet) > 0 {
		s += "; unmet: " + strings.Join(unmet, ", ")
	}
	if m.Note != "" {
		s += "; " + m.Note
	}
	return s
}

// Band maps a criteria ratio onto a confidence: all met is high, 75-99% medium,
// 50-74% low. Below 50% nothing qualifies.
func Band(satisfied, total int) (units.Confidence, bool) {
	if total == 0 {
		return "", false
	}
	r := float64(satisfied) / float64(total)
	switch {
	case r >= 1:
		return units.High, true
	case r >= 0.75:
		return units.Medium, true
	case r >= 0.5:
		return units.Low, true
	default:
		return "", false
	}
}

// Env is the read-only context shared by all matchers in one round.
type Env struct {
	// Levels holds the current level of every known unit, placed units included.
	Levels map[string]tier.Level
}

func (e *Env) countDeps(in *Input, level tier.Level) int {
	n := 0
	for _, d := range in.Deps {
		if e.Levels[d] == level {
			n++
		}
	}
	return n
}

// Matcher scores one unit against one tier.
type Matcher interface {
	Level() tier.Level
	Match(in *Input, env *Env) Match
}

// TemplateMatcher recognizes layout shells: a layout-style name plus a content slot.
type TemplateMatcher struct {
	LayoutSuffixes []string
}

func (TemplateMatcher) Level() tier.Level { return tier.Template }

func (m TemplateMatcher) Match(in *Input, _ *Env) Match {
	f := in.Facts
	suffix := hasSuffix(in.Unit.Name, m.LayoutSuffixes)
	noData := !f.HasBusinessLogic() && len(f.SharedState) == 0
	res := Match{
		Level: tier.Template,
		Criteria: []Criterion{
			{"layout-style name", suffix},
			{"content slot", f.ContentSlot},
			{"no data plumbed through", noData},
		},
	}
	if !suffix || !f.ContentSlot || f.HasBusinessLogic() {
		return res
	}
	res.Qualified = true
	if noData {
		res.Confidence = units.High
	} else {
		res.Confidence = units.Medium
		res.Note = "possibly composite: reads shared state without business logic"
	}
	return res
}

// PageMatcher recognizes routed screens by name, location or route-parameter reads.
type PageMatcher struct {
	PageSuffixes []string
	RoutingDirs  []string
}

func (PageMatcher) Level() tier.Level { return tier.Page }

func (m PageMatcher) Match(in *Input, _ *Env) Match {
	res := Match{
		Level: tier.Page,
		Criteria: []Criterion{
			{"page-style name", hasSuffix(in.Unit.Name, m.PageSuffixes)},
			{"under a routing directory", m.underRouting(in.Unit)},
			{"reads route parameters", len(in.Facts.RouteReads) > 0},
		},
	}
	switch res.Satisfied() {
	case 0:
	case 1:
		res.Qualified, res.Confidence = true, units.Medium
	default:
		res.Qualified, res.Confidence = true, units.High
	}
	return res
}

func (m PageMatcher) underRouting(u *units.Unit) bool {
	for _, seg := range strings.Split(path.Dir(u.MoveRoot()), "/") {
		for _, d := range m.RoutingDirs {
			if seg == d {
				return true
			}
		}
	}
	return false
}

// AtomMatcher scores the elementary tier on four binary criteria.
// Three or more qualify.
type AtomMatcher struct{}

func (AtomMatcher) Level() tier.Level { return tier.Atom }

func (AtomMatcher) Match(in *Input, _ *Env) Match {
	f := in.Facts
	res := Match{
		Level: tier.Atom,
		Criteria: []Criterion{
			{"no in-tree imports", len(in.Deps) == 0},
			{"only transient UI state", len(f.BusinessState()) == 0 && len(f.SharedState) == 0},
			{"no data fetching", len(f.Fetches) == 0},
			{"no external effects", len(f.Effects) == 0 && len(f.Navigation) == 0 && len(f.SharedState) == 0},
		},
	}
	if c, ok := Band(res.Satisfied(), len(res.Criteria)); ok && c != units.Low {
		res.Qualified, res.Confidence = true, c
	}
	return res
}

// MoleculeMatcher scores the composite-widget tier on five criteria.
// Four or more qualify; three qualify at low confidence when the unit is
// actually composed of elementary units.
type MoleculeMatcher struct {
	MinAtoms    int
	MaxHandlers int
	MaxState    int
}

func (MoleculeMatcher) Level() tier.Level { return tier.Molecule }

func (m MoleculeMatcher) Match(in *Input, env *Env) Match {
	f := in.Facts
	composed := env.countDeps(in, tier.Atom) >= m.MinAtoms
	res := Match{
		Level: tier.Molecule,
		Criteria: []Criterion{
			{fmt.Sprintf("composes %d+ atoms", m.MinAtoms), composed},
			{"single purpose", exportedComponents(f) <= 1 && f.Handlers <= m.MaxHandlers},
			{"minimal internal state", len(f.BusinessState()) == 0 && len(f.State) <= m.MaxState},
			{"no data fetching", len(f.Fetches) == 0},
			{"no shared state", len(f.SharedState) == 0},
		},
	}
	c, ok := Band(res.Satisfied(), len(res.Criteria))
	if !ok || (c == units.Low && !composed) {
		return res
	}
	res.Qualified, res.Confidence = true, c
	return res
}

// OrganismMatcher is the default section tier.
type OrganismMatcher struct{}

func (OrganismMatcher) Level() tier.Level { return tier.Organism }

func (OrganismMatcher) Match(in *Input, _ *Env) Match {
	f := in.Facts
	res := Match{
		Level:     tier.Organism,
		Qualified: true,
		Criteria: []Criterion{
			{"business logic", f.HasBusinessLogic()},
			{"shared state", len(f.SharedState) > 0},
		},
	}
	switch {
	case f.HasBusinessLogic() || len(f.SharedState) > 0:
		res.Confidence = units.High
	case !f.HasJSX && !in.Unit.HasPrimaryExport:
		res.Confidence = units.Low
		res.Note = "fallback: too few structural signals to place the unit"
	default:
		res.Confidence = units.Medium
		res.Note = "unclear boundary"
	}
	return res
}

func exportedComponents(f *signals.Facts) int {
	n := len(f.ValueExports)
	if f.DefaultExport {
		n++
		for _, v := range f.ValueExports {
			if v == f.DefaultExportName {
				n--
				break
			}
		}
	}
	return n
}

func hasSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
