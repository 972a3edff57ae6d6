package execute

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"strata/internal/imports"
	"strata/internal/paths"
	"strata/internal/plan"
)

// edit replaces original[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// applyEdits applies non-overlapping edits; an edit overlapping an earlier
// one is dropped.
func applyEdits(content []byte, edits []edit) []byte {
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start < edits[j].start })
	var b strings.Builder
	pos := 0
	for _, e := range edits {
		if e.start < pos || e.end > len(content) {
			continue
		}
		b.Write(content[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.Write(content[pos:])
	return []byte(b.String())
}

// rewrite computes the new text of one import occurrence in file for the
// given state. The importer's final location is used, so moved files get
// their relative imports repaired and imports within a moved directory stay
// untouched.
func (x *Executor) rewrite(in *plan.Inputs, e *imports.Edge, file string, st *state) (edit, bool) {
	from := st.final(file)
	newTarget := ""
	if e.Target != "" {
		newTarget = st.final(e.Target)
	}
	targetMoved := newTarget != e.Target
	if !targetMoved && from == file {
		return edit{}, false
	}
	relative := imports.IsRelative(e.Specifier)
	if !targetMoved && !relative {
		return edit{}, false
	}

	if targetMoved && e.Unit != "" && !e.ViaAggregate {
		if ed, ok := x.viaAggregate(in, e, file, from, st); ok {
			return ed, true
		}
	}

	var newBase string
	if e.Target != "" {
		newBase = specBase(e.Specifier, newTarget)
	} else {
		newBase = st.final(path.Clean(path.Join(path.Dir(file), e.Specifier)))
	}

	var spec string
	if relative {
		spec = paths.RelativeSpecifier(from, newBase)
	} else {
		spec = x.resolver.Specifier(from, newBase, e.Style)
	}
	if spec == e.Specifier {
		return edit{}, false
	}
	return edit{start: e.SpecStart, end: e.SpecEnd, text: spec}, true
}

// specBase is the path a specifier designates for a resolved target: the
// file itself when the specifier spelled the extension, the directory when
// it reached an index file, the extension-less file otherwise.
func specBase(spec, target string) string {
	stem := paths.StripExt(target)
	switch {
	case path.Ext(spec) != "" && path.Ext(spec) == path.Ext(target):
		return target
	case path.Base(stem) == "index" && path.Base(spec) != "index":
		return path.Dir(target)
	default:
		return stem
	}
}

// viaAggregate rewrites an occurrence to import from the destination tier's
// aggregation module. It applies only when every imported binding is
// re-exported there, the occurrence reaches the unit's entry file, and the
// importer does not live in that tier directory itself.
func (x *Executor) viaAggregate(in *plan.Inputs, e *imports.Edge, file, from string, st *state) (edit, bool) {
	if !x.opts.PreferAggregate {
		return edit{}, false
	}
	mv := st.unitMove(e.Unit)
	if mv == nil {
		return edit{}, false
	}
	u := mv.unit
	if e.Target != u.Path && (u.AggregationFile == "" || e.Target != u.AggregationFile) {
		return edit{}, false
	}
	if e.Form != imports.FormImport && e.Form != imports.FormReExport {
		return edit{}, false
	}
	if e.Namespace != "" || e.ExportAll || (e.Default == "" && len(e.Named) == 0) {
		return edit{}, false
	}
	dir := tierDirPath(in, u.Level)
	if paths.IsUnder(from, dir) || u.Owns(file) {
		return edit{}, false
	}

	m := st.barrels[path.Join(dir, in.AggregationFile)]
	spec := st.entrySpecs[u.Name]
	if e.Default != "" && !reachable(m, spec, u.Name) {
		return edit{}, false
	}
	convert := e.Default != ""
	for _, b := range e.Named {
		name := b.Name
		if name == "default" {
			name = u.Name
			convert = true
		}
		if !reachable(m, spec, name) {
			return edit{}, false
		}
	}

	newSpec := x.resolver.Specifier(from, dir, e.Style)
	if !convert {
		if newSpec == e.Specifier {
			return edit{}, false
		}
		return edit{start: e.SpecStart, end: e.SpecEnd, text: newSpec}, true
	}

	content, _ := x.src.Content(file)
	return edit{start: e.Start, end: e.End, text: namedStatement(e, u.Name, newSpec, content)}, true
}

// namedStatement renders an import or re-export with default bindings turned
// into named bindings of the unit's name.
func namedStatement(e *imports.Edge, unitName, spec string, content []byte) string {
	var names []string
	if e.Default != "" {
		if e.Default == unitName {
			names = append(names, unitName)
		} else {
			names = append(names, unitName+" as "+e.Default)
		}
	}
	for _, b := range e.Named {
		n := b.Name
		alias := b.Alias
		if n == "default" {
			n = unitName
			if alias == "" && e.Form == imports.FormReExport {
				alias = "default"
			}
		}
		s := n
		if alias != "" && alias != n {
			s += " as " + alias
		}
		if b.Type {
			s = "type " + s
		}
		names = append(names, s)
	}

	var b strings.Builder
	if e.Form == imports.FormReExport {
		b.WriteString("export ")
	} else {
		b.WriteString("import ")
	}
	if e.TypeOnly {
		b.WriteString("type ")
	}
	b.WriteString("{ " + strings.Join(names, ", ") + " } from ")
	q := string(e.Quote)
	if q == "" || q == "\x00" {
		q = "'"
	}
	b.WriteString(q + spec + q)
	if e.End > 0 && e.End <= len(content) && content[e.End-1] == ';' {
		b.WriteByte(';')
	}
	return b.String()
}

var titleRe = regexp.MustCompile("(\\btitle\\s*:\\s*)(['\"`])([^'\"`\\n]*)(['\"`])")

// titleEdit points a documentation stub's title at the tier: the segment
// before the unit name is replaced, or the tier is prepended.
func titleEdit(content []byte, tierDir string) (edit, bool) {
	m := titleRe.FindSubmatchIndex(content)
	if m == nil {
		return edit{}, false
	}
	value := string(content[m[6]:m[7]])
	group := strings.ToUpper(tierDir[:1]) + tierDir[1:]
	segs := strings.Split(value, "/")
	if len(segs) >= 2 {
		segs[len(segs)-2] = group
	} else {
		segs = append([]string{group}, segs...)
	}
	title := strings.Join(segs, "/")
	if title == value {
		return edit{}, false
	}
	return edit{start: m[6], end: m[7], text: title}, true
}
