package execute

import (
	"context"
	"path"
	"sort"
	"strings"

	"strata/internal/barrel"
	"strata/internal/paths"
	"strata/internal/plan"
	"strata/internal/signals"
	"strata/internal/tier"
)

// state is the tree as it looks once a given set of units has moved. It is
// always derived from the original snapshot, never from a previous state.
type state struct {
	// moved maps original file paths to their new location.
	moved map[string]string
	dirs  []*move

	// files holds new content keyed by original path; created files are
	// keyed by their own path.
	files map[string][]byte

	created map[string]bool

	// units are the moved units by name.
	units map[string]*move

	// barrels are the aggregation modules as rendered for this state.
	barrels map[string]*barrel.Module

	// entrySpecs is each moved unit's specifier inside its tier module.
	entrySpecs map[string]string

	rewrites int
}

func (st *state) final(p string) string {
	if to, ok := st.moved[p]; ok {
		return to
	}
	for _, m := range st.dirs {
		if paths.IsUnder(p, m.from) {
			return paths.Rebase(p, m.from, m.to)
		}
	}
	return p
}

func (st *state) has(key string) bool {
	_, ok := st.files[key]
	return ok
}

// layout computes the state in which exactly the units in set have moved.
func (x *Executor) layout(ctx context.Context, p *plan.Plan, moves []*move, set map[string]bool) *state {
	in := p.Inputs()
	st := &state{
		moved:      make(map[string]string),
		files:      make(map[string][]byte),
		created:    make(map[string]bool),
		units:      make(map[string]*move),
		barrels:    make(map[string]*barrel.Module),
		entrySpecs: make(map[string]string),
	}

	for _, m := range moves {
		if !set[m.unit.Name] {
			continue
		}
		st.units[m.unit.Name] = m
		if m.unit.IsDir() {
			st.dirs = append(st.dirs, m)
			for _, f := range x.src.Under(m.from) {
				st.moved[f] = paths.Rebase(f, m.from, m.to)
			}
			continue
		}
		destDir := path.Dir(m.to)
		for _, f := range ownFiles(m.unit) {
			st.moved[f] = path.Join(destDir, path.Base(f))
		}
	}

	x.buildBarrels(ctx, in, moves, st)

	regenerated := make(map[string]bool)
	for key := range st.barrels {
		regenerated[key] = true
	}

	var files []string
	if in.Index != nil {
		for f := range in.Index.ByFile {
			files = append(files, f)
		}
	}
	for _, m := range st.units {
		if m.unit.DocsFile != "" {
			files = append(files, m.unit.DocsFile)
		}
	}
	sort.Strings(files)

	for i, f := range files {
		if i > 0 && files[i-1] == f || regenerated[f] {
			continue
		}
		var edits []edit
		if in.Index != nil {
			for _, e := range in.Index.ByFile[f] {
				if ed, ok := x.rewrite(in, e, f, st); ok {
					edits = append(edits, ed)
				}
			}
		}
		st.rewrites += len(edits)
		if x.opts.UpdateDocs {
			if m := docsOwner(st, f); m != nil {
				content, _ := x.src.Content(f)
				if ed, ok := titleEdit(content, in.TierDirs.Dir(m.unit.Level)); ok {
					edits = append(edits, ed)
				}
			}
		}
		if len(edits) == 0 {
			continue
		}
		content, _ := x.src.Content(f)
		st.files[f] = applyEdits(content, edits)
	}
	return st
}

func docsOwner(st *state, f string) *move {
	for _, m := range st.units {
		if m.unit.DocsFile == f {
			return m
		}
	}
	return nil
}

// buildBarrels renders every aggregation module the moved units touch: the
// tier modules receiving units, existing tier modules and the root module.
func (x *Executor) buildBarrels(ctx context.Context, in *plan.Inputs, moves []*move, st *state) {
	load := func(p string) *barrel.Module {
		if m, ok := st.barrels[p]; ok {
			return m
		}
		content, ok := x.src.Content(p)
		if !ok {
			return nil
		}
		return barrel.Parse(p, content)
	}

	touched := make(map[string]*barrel.Module)

	// existing modules with entries pointing at moved units
	candidates := []string{path.Join(in.Root, in.AggregationFile)}
	for _, l := range tier.All() {
		candidates = append(candidates, path.Join(tierDirPath(in, l), in.AggregationFile))
	}
	for _, p := range candidates {
		m := load(p)
		if m == nil {
			continue
		}
		if x.retargetEntries(in, m, st) {
			touched[p] = m
		}
		st.barrels[p] = m
	}

	// tier modules receive one entry per moved unit
	for _, mv := range moves {
		if st.units[mv.unit.Name] == nil {
			continue
		}
		u := mv.unit
		p := path.Join(tierDirPath(in, u.Level), in.AggregationFile)
		m := st.barrels[p]
		if m == nil {
			m = barrel.New(p)
			st.barrels[p] = m
			st.created[p] = true
		}
		x.addEntry(ctx, m, mv)
		st.entrySpecs[u.Name] = entrySpec(p, mv)
		touched[p] = m
	}

	for p := range st.barrels {
		if m, ok := touched[p]; ok {
			st.files[p] = m.Render()
		} else {
			delete(st.barrels, p)
		}
	}
}

// retargetEntries repoints entries that reach a moved unit. Entries in the
// unit's own tier module are dropped; a fresh entry replaces them.
func (x *Executor) retargetEntries(in *plan.Inputs, m *barrel.Module, st *state) bool {
	changed := false
	var specs []string
	for _, list := range [][]*barrel.Entry{m.Values, m.Types} {
		for _, e := range list {
			specs = append(specs, e.Specifier)
		}
	}
	for _, spec := range specs {
		target, _, ok := x.resolver.Resolve(x.src, m.Path, spec)
		if !ok {
			continue
		}
		for _, mv := range st.units {
			if !mv.unit.Owns(target) {
				continue
			}
			own := path.Join(tierDirPath(in, mv.unit.Level), in.AggregationFile)
			if m.Path == own {
				m.Remove(func(s string) bool { return s == spec })
			} else {
				m.Retarget(spec, paths.RelativeSpecifier(m.Path, tierDirPath(in, mv.unit.Level)), mv.unit.Name)
			}
			changed = true
		}
	}
	return changed
}

// entrySpec is the specifier a tier module uses for a moved unit.
func entrySpec(barrelPath string, mv *move) string {
	target := mv.to
	if !mv.unit.IsDir() {
		target = paths.StripExt(mv.to)
	}
	return paths.RelativeSpecifier(barrelPath, target)
}

// addEntry re-exports a unit's public names from its tier module. A unit
// whose exports cannot be read is re-exported wholesale.
func (x *Executor) addEntry(ctx context.Context, m *barrel.Module, mv *move) {
	u := mv.unit
	entryFile := u.Path
	if u.IsDir() && u.AggregationFile != "" {
		entryFile = u.AggregationFile
	}
	content, _ := x.src.Content(entryFile)
	masked := signals.MaskComments(ctx, entryFile, content)
	_, hasDefault, values, types := signals.ParseExports(string(masked))

	spec := entrySpec(m.Path, mv)
	var names []barrel.Name
	for _, v := range values {
		names = append(names, barrel.Name{Name: v})
	}
	if hasDefault && !contains(values, u.Name) {
		names = append(names, barrel.Name{Name: "default", Alias: u.Name})
	}
	if len(names) == 0 && len(types) == 0 {
		m.Add(barrel.Entry{Specifier: spec, Star: true})
		return
	}

	var conflicts []string
	if len(names) > 0 {
		conflicts = append(conflicts, m.Add(barrel.Entry{Specifier: spec, Names: names})...)
	}
	if len(types) > 0 {
		var tn []barrel.Name
		for _, t := range types {
			tn = append(tn, barrel.Name{Name: t})
		}
		conflicts = append(conflicts, m.Add(barrel.Entry{Specifier: spec, Names: tn, Type: true})...)
	}
	if len(conflicts) > 0 {
		x.logger.Warn("Aggregation name conflict", "module", m.Path, "unit", u.Name, "names", strings.Join(conflicts, ","))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// unitMove returns the move of a unit when it is part of the state.
func (st *state) unitMove(name string) *move {
	return st.units[name]
}

// reachable reports whether name is re-exported by module m under spec.
func reachable(m *barrel.Module, spec, name string) bool {
	if m == nil {
		return false
	}
	owner := m.Owner(name, false)
	if owner == "" {
		owner = m.Owner(name, true)
	}
	return owner == spec
}
