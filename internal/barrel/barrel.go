// Package barrel reads, merges and renders aggregation modules: index files
// made only of re-export statements.
package barrel

import (
	"regexp"
	"sort"
	"strings"
)

// Name is one re-exported binding: `Name` or `Name as Alias`.
type Name struct {
	Name  string
	Alias string
}

// Exported is the name visible to importers of the aggregation module.
func (n Name) Exported() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

func (n Name) String() string {
	if n.Alias != "" && n.Alias != n.Name {
		return n.Name + " as " + n.Alias
	}
	return n.Name
}

// Entry is one `export … from '<Specifier>'` statement.
type Entry struct {
	Specifier string
	Names     []Name

	// Star is `export * from`; Namespace is `export * as ns from`.
	Star      bool
	Namespace string

	Type bool
}

// Module is a parsed aggregation module.
type Module struct {
	Path string

	// Header holds every line that is not a re-export, in original order.
	Header []string

	Values []*Entry
	Types  []*Entry

	Quote     byte
	Semicolon bool
}

var reExportRe = regexp.MustCompile(`(?s)^\s*export\s+(type\s+)?(\*(?:\s+as\s+([A-Za-z_$][\w$]*))?|\{([^}]*)\})\s*from\s*(['"])([^'"]+)['"]\s*(;?)`)

// New creates an empty module.
func New(p string) *Module {
	return &Module{Path: p, Quote: '\'', Semicolon: true}
}

// Parse reads an aggregation module. Re-export statements become entries;
// everything else is kept verbatim in Header.
func Parse(p string, src []byte) *Module {
	m := New(p)
	text := string(src)
	sawStyle := false

	for len(text) > 0 {
		if loc := reExportRe.FindStringSubmatchIndex(text); loc != nil && loc[0] == 0 {
			sub := func(i int) string {
				if loc[2*i] < 0 {
					return ""
				}
				return text[loc[2*i]:loc[2*i+1]]
			}
			e := &Entry{Specifier: sub(6), Type: sub(1) != ""}
			if strings.HasPrefix(sub(2), "*") {
				e.Star = true
				e.Namespace = sub(3)
			} else {
				e.Names, e.Type = parseNames(sub(4), e.Type)
			}
			if !sawStyle {
				m.Quote = sub(5)[0]
				m.Semicolon = sub(7) == ";"
				sawStyle = true
			}
			m.add(e)
			text = text[loc[1]:]
			text = strings.TrimLeft(text, " \t")
			text = strings.TrimPrefix(text, "\n")
			continue
		}

		line := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			text = ""
		}
		if strings.TrimSpace(line) != "" {
			m.Header = append(m.Header, line)
		}
	}
	return m
}

// parseNames parses `A, B as C, type D`. A clause whose names are all
// type-qualified is treated as a type entry.
func parseNames(clause string, typeOnly bool) ([]Name, bool) {
	var out []Name
	allTypes := true
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "type ") {
			part = strings.TrimSpace(strings.TrimPrefix(part, "type "))
		} else {
			allTypes = false
		}
		n := Name{Name: part}
		if i := strings.Index(part, " as "); i >= 0 {
			n.Name = strings.TrimSpace(part[:i])
			n.Alias = strings.TrimSpace(part[i+4:])
		}
		out = append(out, n)
	}
	return out, typeOnly || (allTypes && len(out) > 0)
}

func (m *Module) list(typeOnly bool) *[]*Entry {
	if typeOnly {
		return &m.Types
	}
	return &m.Values
}

// add merges e into the module. Names a plain `export *` from the same
// specifier already re-exports are dropped from explicit entries.
func (m *Module) add(e *Entry) {
	if !e.Star && m.starFrom(e.Specifier, e.Type) {
		if e.Names = uncovered(e.Names); len(e.Names) == 0 {
			return
		}
	}
	l := m.list(e.Type)
	for _, cur := range *l {
		if cur.Specifier == e.Specifier && cur.Star == e.Star && cur.Namespace == e.Namespace {
			if !e.Star {
				cur.Names = mergeNames(cur.Names, e.Names)
			}
			return
		}
	}
	*l = append(*l, e)
	if e.Star && e.Namespace == "" {
		m.dropCovered(e.Specifier, e.Type)
	}
}

// starFrom reports whether a plain `export *` from spec exists. A value star
// re-exports types too; a type star covers types only.
func (m *Module) starFrom(spec string, typeOnly bool) bool {
	lists := [][]*Entry{m.Values}
	if typeOnly {
		lists = append(lists, m.Types)
	}
	for _, l := range lists {
		for _, e := range l {
			if e.Star && e.Namespace == "" && e.Specifier == spec {
				return true
			}
		}
	}
	return false
}

func (m *Module) dropCovered(spec string, typeOnly bool) {
	prune := func(l []*Entry) []*Entry {
		out := l[:0]
		for _, e := range l {
			if !e.Star && e.Specifier == spec {
				e.Names = uncovered(e.Names)
				if len(e.Names) == 0 {
					continue
				}
			}
			out = append(out, e)
		}
		return out
	}
	m.Types = prune(m.Types)
	if !typeOnly {
		m.Values = prune(m.Values)
	}
}

// uncovered keeps the names `export *` cannot provide: the default binding
// and renamed bindings.
func uncovered(names []Name) []Name {
	var out []Name
	for _, n := range names {
		if n.Name == "default" || n.Exported() != n.Name {
			out = append(out, n)
		}
	}
	return out
}

func mergeNames(a, b []Name) []Name {
	seen := make(map[string]bool, len(a))
	for _, n := range a {
		seen[n.Exported()] = true
	}
	for _, n := range b {
		if !seen[n.Exported()] {
			seen[n.Exported()] = true
			a = append(a, n)
		}
	}
	return a
}

// Add merges an entry. Names already exported under another specifier are
// not added again; they are returned so the caller can report them.
func (m *Module) Add(e Entry) (conflicts []string) {
	var keep []Name
	for _, n := range e.Names {
		if owner := m.Owner(n.Exported(), e.Type); owner != "" && owner != e.Specifier {
			conflicts = append(conflicts, n.Exported())
			continue
		}
		keep = append(keep, n)
	}
	if !e.Star && len(keep) == 0 {
		return conflicts
	}
	e.Names = keep
	m.add(&e)
	return conflicts
}

// Owner returns the specifier that exports name, or "".
func (m *Module) Owner(name string, typeOnly bool) string {
	for _, e := range *m.list(typeOnly) {
		for _, n := range e.Names {
			if n.Exported() == name {
				return e.Specifier
			}
		}
		if e.Namespace == name {
			return e.Specifier
		}
	}
	return ""
}

// Exports reports whether name is re-exported explicitly as a value or a type.
func (m *Module) Exports(name string) bool {
	return m.Owner(name, false) != "" || m.Owner(name, true) != ""
}

// Remove drops every entry whose specifier satisfies match and returns them.
func (m *Module) Remove(match func(spec string) bool) []*Entry {
	var removed []*Entry
	filter := func(l []*Entry) []*Entry {
		out := l[:0]
		for _, e := range l {
			if match(e.Specifier) {
				removed = append(removed, e)
				continue
			}
			out = append(out, e)
		}
		return out
	}
	m.Values = filter(m.Values)
	m.Types = filter(m.Types)
	return removed
}

// Retarget repoints entries from one specifier to another. Default
// bindings become the named binding given by defaultName, since the new
// target re-exports the unit under its name.
func (m *Module) Retarget(from, to, defaultName string) bool {
	removed := m.Remove(func(spec string) bool { return spec == from })
	for _, e := range removed {
		ne := Entry{Specifier: to, Star: e.Star, Namespace: e.Namespace, Type: e.Type}
		for _, n := range e.Names {
			if n.Name == "default" {
				n = Name{Name: defaultName, Alias: n.Alias}
				if n.Alias == defaultName {
					n.Alias = ""
				}
			}
			ne.Names = append(ne.Names, n)
		}
		m.Add(ne)
	}
	return len(removed) > 0
}

// Empty reports whether the module has no content at all.
func (m *Module) Empty() bool {
	return len(m.Header) == 0 && len(m.Values) == 0 && len(m.Types) == 0
}

// Render writes the module: header, then value re-exports, then type
// re-exports, each block sorted by specifier with names sorted.
func (m *Module) Render() []byte {
	var sections []string
	if len(m.Header) > 0 {
		sections = append(sections, strings.Join(m.Header, "\n"))
	}
	for _, block := range [][]*Entry{m.Values, m.Types} {
		if len(block) == 0 {
			continue
		}
		sorted := append([]*Entry(nil), block...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Specifier != sorted[j].Specifier {
				return sorted[i].Specifier < sorted[j].Specifier
			}
			return sorted[i].Star && !sorted[j].Star
		})
		lines := make([]string, len(sorted))
		for i, e := range sorted {
			lines[i] = m.render(e)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return nil
	}
	return []byte(strings.Join(sections, "\n\n") + "\n")
}

func (m *Module) render(e *Entry) string {
	var b strings.Builder
	b.WriteString("export ")
	if e.Type {
		b.WriteString("type ")
	}
	switch {
	case e.Star && e.Namespace != "":
		b.WriteString("* as " + e.Namespace)
	case e.Star:
		b.WriteString("*")
	default:
		names := append([]Name(nil), e.Names...)
		sort.Slice(names, func(i, j int) bool { return names[i].Exported() < names[j].Exported() })
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n.String()
		}
		b.WriteString("{ " + strings.Join(parts, ", ") + " }")
	}
	b.WriteString(" from ")
	b.WriteByte(m.Quote)
	b.WriteString(e.Specifier)
	b.WriteByte(m.Quote)
	if m.Semicolon {
		b.WriteByte(';')
	}
	return b.String()
}
