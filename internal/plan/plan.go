// Package plan merges scan, classification and cycle analysis into one
// reviewable RefactoringPlan and implements its versioned mutations.
package plan

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"strata/internal/classify"
	"strata/internal/graph"
	"strata/internal/imports"
	"strata/internal/paths"
	"strata/internal/tier"
	"strata/internal/units"
)

// Status is the plan lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusApproved  Status = "approved"
	StatusCancelled Status = "cancelled"
)

// Inputs are the read-only analysis results a plan is built from. Every
// version of a plan shares the same Inputs.
type Inputs struct {
	// Root is the conventional components root.
	Root            string
	TierDirs        tier.Dirs
	AggregationFile string

	Units        []*units.Unit
	ScanWarnings []units.Warning
	Index        *imports.Index
	Results      map[string]classify.Result
	Cycles       []graph.Cycle

	// Placed holds the levels of units already inside tier directories.
	Placed map[string]tier.Level

	// Pins fix levels for named units (strata.toml).
	Pins map[string]tier.Level
}

// Plan is the root aggregate reviewed before any write happens.
type Plan struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Root      string    `json:"root"`

	// Units are ordered lowest tier first, then by name; skipped units last.
	Units []*units.Unit `json:"units"`

	Counts   map[tier.Level]int `json:"counts"`
	Warnings []units.Warning    `json:"warnings"`

	// AffectedFiles lists, per unit, every file its migration touches.
	AffectedFiles     map[string][]string `json:"affectedFiles"`
	AffectedFileCount int                 `json:"affectedFileCount"`

	// Changes records what each version changed, oldest first.
	Changes []string `json:"changes,omitempty"`

	in *Inputs
}

// Build creates version 1 of a plan.
func Build(in *Inputs) *Plan {
	p := &Plan{
		ID:        uuid.New().String(),
		Version:   1,
		Status:    StatusDraft,
		CreatedAt: time.Now().UTC(),
		Root:      in.Root,
		in:        in,
	}

	for _, src := range in.Units {
		u := src.Clone()
		if u.Level != tier.Skip {
			if r, ok := in.Results[u.Name]; ok {
				u.Level, u.Confidence = r.Level, r.Confidence
				u.Rationale = append(u.Rationale, r.Rationale...)
			}
		}
		if pin, ok := in.Pins[u.Name]; ok && pin != u.Level {
			applyOverride(u, pin, "pinned in "+pinsSource)
		}
		p.Units = append(p.Units, u)
	}

	p.refresh()
	return p
}

const pinsSource = "strata.toml"

// refresh recomputes everything derived from unit levels.
func (p *Plan) refresh() {
	for _, u := range p.Units {
		if u.Level.IsTier() {
			u.Destination = DestinationPath(u, p.in.Root, p.in.TierDirs, u.Level)
		} else {
			u.Destination = ""
		}
	}
	sortUnits(p.Units)

	p.Counts = make(map[tier.Level]int)
	for _, u := range p.Units {
		p.Counts[u.Level]++
	}

	p.AffectedFiles = make(map[string][]string)
	all := make(map[string]bool)
	for _, u := range p.Units {
		if !u.Level.IsTier() {
			continue
		}
		files := p.affectedFiles(u)
		p.AffectedFiles[u.Name] = files
		for _, f := range files {
			all[f] = true
		}
	}
	p.AffectedFileCount = len(all)

	p.Warnings = p.warnings()
}

// affectedFiles is the referencing files plus the destination tier and root
// aggregation modules plus the unit's own files.
func (p *Plan) affectedFiles(u *units.Unit) []string {
	set := make(map[string]bool)
	if p.in.Index != nil {
		for _, f := range p.in.Index.ReferencingFiles(u) {
			set[f] = true
		}
	}
	set[TierAggregationPath(p.in.Root, p.in.TierDirs, u.Level, p.in.AggregationFile)] = true
	set[path.Join(p.in.Root, p.in.AggregationFile)] = true
	for _, f := range u.Files {
		set[f] = true
	}
	set[u.Path] = true

	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (p *Plan) warnings() []units.Warning {
	ws := append([]units.Warning(nil), p.in.ScanWarnings...)

	var outgoing map[string][]string
	if p.in.Index != nil {
		outgoing = p.in.Index.Outgoing
	}
	ws = append(ws, classify.Warnings(p.Units, outgoing, p.in.Placed)...)

	for _, c := range p.in.Cycles {
		ws = append(ws, units.Warning{
			Kind:       units.CircularDependency,
			Units:      append([]string(nil), c.Units...),
			Message:    "Circular dependency: " + c.String(),
			Suggestion: c.Suggestion(),
		})
	}
	units.SortWarnings(ws)
	return ws
}

// DestinationPath computes where a unit's primary file lands for a level:
// <root>/<tier dir>/<path relative to the unit's scan root>.
func DestinationPath(u *units.Unit, root string, dirs tier.Dirs, level tier.Level) string {
	scanRoot := u.Root
	if scanRoot == "" {
		scanRoot = path.Dir(u.MoveRoot())
	}
	rel := strings.TrimPrefix(u.MoveRoot(), scanRoot+"/")
	destRoot := path.Join(root, dirs.Dir(level), rel)
	return paths.Rebase(u.Path, u.MoveRoot(), destRoot)
}

// DestinationRoot is the destination of the unit's move root.
func DestinationRoot(u *units.Unit, root string, dirs tier.Dirs) string {
	scanRoot := u.Root
	if scanRoot == "" {
		scanRoot = path.Dir(u.MoveRoot())
	}
	return path.Join(root, dirs.Dir(u.Level), strings.TrimPrefix(u.MoveRoot(), scanRoot+"/"))
}

// TierAggregationPath is the aggregation module of a tier directory.
func TierAggregationPath(root string, dirs tier.Dirs, level tier.Level, fileName string) string {
	return path.Join(root, dirs.Dir(level), fileName)
}

func sortUnits(list []*units.Unit) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := list[i].Level.Rank(), list[j].Level.Rank()
		if ri == 0 {
			ri = 99
		}
		if rj == 0 {
			rj = 99
		}
		if ri != rj {
			return ri < rj
		}
		return list[i].Name < list[j].Name
	})
}

// Inputs returns the analysis results the plan was built from.
func (p *Plan) Inputs() *Inputs {
	return p.in
}

// Unit returns the named unit or nil.
func (p *Plan) Unit(name string) *units.Unit {
	for _, u := range p.Units {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// Active returns the units to migrate, in execution order.
func (p *Plan) Active() []*units.Unit {
	var out []*units.Unit
	for _, u := range p.Units {
		if u.Level.IsTier() {
			out = append(out, u)
		}
	}
	return out
}

// IsEmpty reports whether nothing would be migrated.
func (p *Plan) IsEmpty() bool {
	return len(p.Active()) == 0
}

// EdgesFor returns the import occurrences referencing a unit.
func (p *Plan) EdgesFor(name string) []*imports.Edge {
	if p.in.Index == nil {
		return nil
	}
	return p.in.Index.ByUnit[name]
}

// NeedsReview lists units whose classification must be confirmed by a human.
func (p *Plan) NeedsReview() []*units.Unit {
	var out []*units.Unit
	for _, u := range p.Active() {
		if u.Confidence.NeedsReview() {
			out = append(out, u)
		}
	}
	return out
}

// Summary is a one-line description of the plan.
func (p *Plan) Summary() string {
	var parts []string
	for _, l := range append(tier.All(), tier.Skip) {
		if n := p.Counts[l]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, l))
		}
	}
	if len(parts) == 0 {
		return "nothing to migrate"
	}
	return fmt.Sprintf("%s; %d files affected; %d warnings", strings.Join(parts, ", "), p.AffectedFileCount, len(p.Warnings))
}
