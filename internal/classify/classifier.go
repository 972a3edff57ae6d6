// Package classify assigns each unit a tier with a calibrated confidence.
// Tiers are tried as an ordered chain of matchers, each scoring the unit
// against its own criteria.
package classify

import (
	"fmt"
	"log/slog"
	"sort"

	"strata/internal/config"
	"strata/internal/tier"
	"strata/internal/units"
)

// maxRounds bounds the fixed-point iteration. Only the molecule matcher reads
// dependency levels, so levels settle within the depth of the import chain.
const maxRounds = 8

// Result is one unit's classification.
type Result struct {
	Level      tier.Level       `json:"level"`
	Confidence units.Confidence `json:"confidence"`
	Rationale  []string         `json:"rationale"`
	Tie        bool             `json:"tie,omitempty"`
}

// Classifier runs the matcher chain.
type Classifier struct {
	chain    []Matcher
	fallback Matcher
	logger   *slog.Logger
}

// New builds the standard chain: template, page, atom, molecule, with
// organism as the default.
func New(cfg config.ClassifyConfig, routingDirs []string, logger *slog.Logger) *Classifier {
	return &Classifier{
		chain: []Matcher{
			TemplateMatcher{LayoutSuffixes: cfg.LayoutSuffixes},
			PageMatcher{PageSuffixes: cfg.PageSuffixes, RoutingDirs: routingDirs},
			AtomMatcher{},
			MoleculeMatcher{MinAtoms: 2, MaxHandlers: 3, MaxState: 2},
		},
		fallback: OrganismMatcher{},
		logger:   logger,
	}
}

// Classify scores one unit. Matchers run most-specific first and the first
// qualifying one wins. Later matchers are still scored for the rationale; one
// that scores exactly the same criteria count as the winner is a tie, broken
// toward the structurally lower tier and logged.
func (c *Classifier) Classify(in *Input, env *Env) Result {
	var best *Match
	var rationale []string
	tie := false

	for _, m := range c.chain {
		match := m.Match(in, env)
		if !match.Qualified {
			continue
		}
		rationale = append(rationale, match.Rationale())
		switch {
		case best == nil:
			best = &match
		case sameScore(match, *best):
			tie = true
			chosen, over := best.Level, match.Level
			if match.Level.Below(best.Level) {
				chosen, over = match.Level, best.Level
				best = &match
			}
			c.logger.Warn("Classification tie broken toward lower tier",
				"unit", in.Unit.Name,
				"chosen", chosen,
				"over", over,
				"score", fmt.Sprintf("%d/%d", match.Satisfied(), len(match.Criteria)),
			)
		}
	}

	if best == nil {
		match := c.fallback.Match(in, env)
		return Result{Level: match.Level, Confidence: match.Confidence, Rationale: []string{match.Rationale()}}
	}

	res := Result{Level: best.Level, Confidence: best.Confidence, Tie: tie}
	res.Rationale = append(res.Rationale, best.Rationale())
	for _, r := range rationale {
		if r != best.Rationale() {
			res.Rationale = append(res.Rationale, "also considered "+r)
		}
	}
	if tie {
		res.Rationale = append(res.Rationale, "tie broken toward the lower tier")
	}
	return res
}

func sameScore(a, b Match) bool {
	return a.Satisfied() == b.Satisfied() && len(a.Criteria) == len(b.Criteria)
}

// ClassifyAll classifies every input, iterating until no level changes so
// that criteria reading dependency levels see settled values. placed holds
// the fixed levels of units already inside tier directories.
func (c *Classifier) ClassifyAll(inputs []*Input, placed map[string]tier.Level) map[string]Result {
	sorted := append([]*Input(nil), inputs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Unit.Name < sorted[j].Unit.Name })

	levels := make(map[string]tier.Level, len(placed)+len(inputs))
	for name, l := range placed {
		levels[name] = l
	}

	results := make(map[string]Result, len(inputs))
	for round := 1; round <= maxRounds; round++ {
		env := &Env{Levels: levels}
		next := make(map[string]tier.Level, len(levels))
		for name, l := range placed {
			next[name] = l
		}
		changed := false
		for _, in := range sorted {
			r := c.Classify(in, env)
			results[in.Unit.Name] = r
			next[in.Unit.Name] = r.Level
			if levels[in.Unit.Name] != r.Level {
				changed = true
			}
		}
		levels = next
		if !changed {
			c.logger.Debug("Classification settled", "rounds", round)
			break
		}
	}
	return results
}

// Warnings reports low-confidence units and hierarchy violations: a unit
// importing a unit of a higher tier than its own.
func Warnings(list []*units.Unit, outgoing map[string][]string, placed map[string]tier.Level) []units.Warning {
	levels := make(map[string]tier.Level, len(list)+len(placed))
	for name, l := range placed {
		levels[name] = l
	}
	for _, u := range list {
		levels[u.Name] = u.Level
	}

	var out []units.Warning
	for _, u := range list {
		if !u.Level.IsTier() {
			continue
		}
		if u.Confidence == units.Low {
			out = append(out, units.Warning{
				Kind:       units.LowConfidence,
				Units:      []string{u.Name},
				Message:    fmt.Sprintf("%s classified as %s with low confidence", u.Name, u.Level),
				Suggestion: "Review the classification and override the level if needed",
			})
		}
		for _, dep := range outgoing[u.Name] {
			dl := levels[dep]
			if dl.IsTier() && u.Level.Below(dl) {
				out = append(out, units.Warning{
					Kind:       units.AmbiguousClassification,
					Units:      []string{u.Name, dep},
					Message:    fmt.Sprintf("%s (%s) imports %s (%s), a higher tier", u.Name, u.Level, dep, dl),
					Suggestion: fmt.Sprintf("Raise %s to at least %s or lower %s", u.Name, dl, dep),
				})
			}
		}
	}
	units.SortWarnings(out)
	return out
}
