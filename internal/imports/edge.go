// Package imports finds every import occurrence in the source snapshot,
// resolves it to the unit it references and builds the unit dependency graph.
package imports

import "strings"

// Style is how a specifier reaches its target.
type Style string

const (
	StyleAlias    Style = "alias"
	StyleRelative Style = "relative"
	StyleBare     Style = "bare"
)

// Kind is what an import brings into scope.
type Kind string

const (
	KindValue     Kind = "value"
	KindType      Kind = "type"
	KindNamespace Kind = "namespace"
)

// Form is the statement shape an occurrence was found in.
type Form string

const (
	FormImport     Form = "import"      // import X, { a } from '...'
	FormSideEffect Form = "side-effect" // import '...'
	FormReExport   Form = "re-export"   // export { a } from '...'
	FormRequire    Form = "require"     // require('...')
	FormDynamic    Form = "dynamic"     // import('...')
	FormMock       Form = "mock"        // jest.mock('...'), vi.mock('...')
)

// Binding is one named import or re-export: `Name as Alias`.
type Binding struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
	Type  bool   `json:"type,omitempty"`
}

// Local is the identifier the binding introduces.
func (b Binding) Local() string {
	if b.Alias != "" {
		return b.Alias
	}
	return b.Name
}

// Edge is one textual import occurrence.
type Edge struct {
	File      string `json:"file"`
	Specifier string `json:"specifier"`
	Style     Style  `json:"style"`
	Kind      Kind   `json:"kind"`
	Form      Form   `json:"form"`
	Line      int    `json:"line"`

	// Target is the canonical file the specifier resolves to; empty for packages.
	Target string `json:"target,omitempty"`

	// Unit is the referenced unit's name; empty when Target belongs to no unit.
	Unit string `json:"unit,omitempty"`

	// ViaAggregate is set when the unit is reached through an aggregation module.
	ViaAggregate bool `json:"viaAggregate,omitempty"`

	// Statement offsets cover the whole statement including a trailing semicolon.
	Start int `json:"start"`
	End   int `json:"end"`

	// SpecStart and SpecEnd cover the specifier text inside its quotes.
	SpecStart int  `json:"specStart"`
	SpecEnd   int  `json:"specEnd"`
	Quote     byte `json:"-"`

	Default   string    `json:"default,omitempty"`
	Namespace string    `json:"namespace,omitempty"`
	Named     []Binding `json:"named,omitempty"`
	TypeOnly  bool      `json:"typeOnly,omitempty"`
	ExportAll bool      `json:"exportAll,omitempty"`
}

// BindingNames returns the names imported from the module, "default" included.
func (e *Edge) BindingNames() []string {
	var out []string
	if e.Default != "" {
		out = append(out, "default")
	}
	for _, b := range e.Named {
		out = append(out, b.Name)
	}
	return out
}

// Dynamic is an import whose argument is not a string literal and so cannot
// be rewritten mechanically.
type Dynamic struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Expr string `json:"expr"`

	// Candidates are the units the expression might load.
	Candidates []string `json:"candidates,omitempty"`
}

// parseClause reads an import clause: `Default, * as ns` or `Default, { a, b as c, type T }`.
func parseClause(clause string, e *Edge) {
	clause = strings.TrimSpace(clause)
	if open := strings.IndexByte(clause, '{'); open >= 0 {
		end := strings.LastIndexByte(clause, '}')
		if end > open {
			e.Named = parseNamed(clause[open+1 : end])
			clause = clause[:open] + clause[end+1:]
		} else {
			clause = clause[:open]
		}
	}
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "*"):
			fields := strings.Fields(part)
			e.Namespace = fields[len(fields)-1]
		default:
			e.Default = part
		}
	}
}

func parseNamed(list string) []Binding {
	var out []Binding
	for _, spec := range strings.Split(list, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		b := Binding{}
		if strings.HasPrefix(spec, "type ") {
			b.Type = true
			spec = strings.TrimSpace(strings.TrimPrefix(spec, "type "))
		}
		if parts := strings.Fields(spec); len(parts) == 3 && parts[1] == "as" {
			b.Name, b.Alias = parts[0], parts[2]
		} else {
			b.Name = spec
		}
		out = append(out, b)
	}
	return out
}

func kindOf(e *Edge) Kind {
	if e.Namespace != "" {
		return KindNamespace
	}
	if e.TypeOnly {
		return KindType
	}
	if e.Default == "" && len(e.Named) > 0 {
		for _, b := range e.Named {
			if !b.Type {
				return KindValue
			}
		}
		return KindType
	}
	return KindValue
}
