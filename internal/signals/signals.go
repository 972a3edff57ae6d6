// Package signals extracts structural facts from a unit's source text:
// state hooks, data access, side effects, navigation, content slots and exports.
// It works on comment-masked text and never attempts a semantic parse.
package signals

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Patterns lists the call names and identifiers each fact keys on.
type Patterns struct {
	TransientStateNames []string
	FetchCalls          []string
	SharedStateCalls    []string
	NavigationCalls     []string
	RouteReadCalls      []string
	EffectCalls         []string
}

// StateVar is one useState binding.
type StateVar struct {
	Name      string `json:"name"`
	Transient bool   `json:"transient"`
}

// Facts are the structural signals found in one file.
type Facts struct {
	HasJSX bool `json:"hasJsx"`

	DefaultExport     bool     `json:"defaultExport"`
	DefaultExportName string   `json:"defaultExportName,omitempty"`
	ValueExports      []string `json:"valueExports,omitempty"`
	TypeExports       []string `json:"typeExports,omitempty"`

	State       []StateVar `json:"state,omitempty"`
	Reducers    int        `json:"reducers,omitempty"`
	Fetches     []string   `json:"fetches,omitempty"`
	Effects     []string   `json:"effects,omitempty"`
	SharedState []string   `json:"sharedState,omitempty"`
	Navigation  []string   `json:"navigation,omitempty"`
	RouteReads  []string   `json:"routeReads,omitempty"`

	ContentSlot bool `json:"contentSlot"`
	Handlers    int  `json:"handlers"`
}

// BusinessState returns the state variables that are not transient UI state.
// Reducers always count as business state.
func (f *Facts) BusinessState() []string {
	var out []string
	for _, s := range f.State {
		if !s.Transient {
			out = append(out, s.Name)
		}
	}
	for i := 0; i < f.Reducers; i++ {
		out = append(out, "reducer")
	}
	return out
}

// HasBusinessLogic reports business state or data fetching.
func (f *Facts) HasBusinessLogic() bool {
	return len(f.BusinessState()) > 0 || len(f.Fetches) > 0
}

// HasPrimaryExport reports whether the file exports something importable as
// the unit: a default export or a named value export called name.
func (f *Facts) HasPrimaryExport(name string) bool {
	if f.DefaultExport {
		return true
	}
	for _, e := range f.ValueExports {
		if e == name {
			return true
		}
	}
	return false
}

// Extractor compiles Patterns once and extracts Facts from source text.
type Extractor struct {
	transient  []string
	fetch      []*regexp.Regexp
	effects    []*regexp.Regexp
	shared     []*regexp.Regexp
	navigation []*regexp.Regexp
	routes     []*regexp.Regexp
	names      map[*regexp.Regexp]string
}

var (
	stateRe      = regexp.MustCompile(`\[\s*(\w+)\s*,\s*\w+\s*\]\s*=\s*(?:React\.)?useState\b`)
	reducerRe    = regexp.MustCompile(`\b(?:React\.)?useReducer\s*[<(]`)
	storeHookRe  = regexp.MustCompile(`\buse[A-Z]\w*Store\s*\(`)
	routerPushRe = regexp.MustCompile(`\b(?:router|history)\.(?:push|replace)\s*\(`)
	slotRe       = regexp.MustCompile(`\bchildren\b|:\s*(?:React\.)?ReactNode\b|\bslot\s*[:=]`)
	handlerRe    = regexp.MustCompile(`\b(?:const|function)\s+(handle[A-Z]\w*|on[A-Z]\w*)\b`)
	jsxRe        = regexp.MustCompile(`</[A-Za-z][\w.]*\s*>|/>|<>`)

	defaultExportRe = regexp.MustCompile(`\bexport\s+default\s+(?:async\s+)?(?:(?:function\*?|class)\s+(\w+)|(\w+)\s*;?\s*$)?`)
	valueExportRe   = regexp.MustCompile(`\bexport\s+(?:declare\s+)?(?:async\s+)?(?:const|let|var|function\*?|class|enum|abstract\s+class)\s+(\w+)`)
	typeExportRe    = regexp.MustCompile(`\bexport\s+(?:declare\s+)?(?:type|interface)\s+(\w+)`)
	listExportRe    = regexp.MustCompile(`\bexport\s+(type\s+)?\{([^}]*)\}\s*(from\b)?`)
)

// NewExtractor creates an extractor for the given patterns.
func NewExtractor(p Patterns) *Extractor {
	e := &Extractor{names: make(map[*regexp.Regexp]string)}
	for _, t := range p.TransientStateNames {
		e.transient = append(e.transient, strings.ToLower(t))
	}
	e.fetch = e.compile(p.FetchCalls)
	e.effects = e.compile(p.EffectCalls)
	e.shared = e.compile(p.SharedStateCalls)
	e.navigation = e.compile(p.NavigationCalls)
	e.routes = e.compile(p.RouteReadCalls)
	return e
}

// compile turns call names into word-bounded patterns. Dotted names
// (localStorage, document.cookie) match as identifiers; others must be called
// or member-accessed (fetch(, axios.get, useQuery<T>().
func (e *Extractor) compile(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		var re *regexp.Regexp
		if strings.Contains(n, ".") || strings.HasSuffix(n, "Storage") {
			re = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\b`)
		} else {
			re = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `\s*(?:\(|<|\.\w)`)
		}
		e.names[re] = n
		out = append(out, re)
	}
	return out
}

// Extract computes Facts for one file.
func (e *Extractor) Extract(ctx context.Context, fileName string, src []byte) *Facts {
	syn := analyze(ctx, fileName, src)
	text := string(syn.masked)
	f := &Facts{}

	if syn.parsed {
		f.HasJSX = syn.jsx
	} else {
		f.HasJSX = jsxRe.MatchString(text)
	}
	f.ContentSlot = slotRe.MatchString(text)

	for _, m := range stateRe.FindAllStringSubmatch(text, -1) {
		f.State = append(f.State, StateVar{Name: m[1], Transient: e.isTransient(m[1])})
	}
	f.Reducers = len(reducerRe.FindAllStringIndex(text, -1))

	f.Fetches = e.matchAll(e.fetch, text)
	f.Effects = e.matchAll(e.effects, text)
	f.SharedState = e.matchAll(e.shared, text)
	if storeHookRe.MatchString(text) {
		f.SharedState = appendUnique(f.SharedState, "use*Store")
	}
	f.Navigation = e.matchAll(e.navigation, text)
	if routerPushRe.MatchString(text) {
		f.Navigation = appendUnique(f.Navigation, "router.push")
	}
	sort.Strings(f.SharedState)
	sort.Strings(f.Navigation)
	f.RouteReads = e.matchAll(e.routes, text)

	handlers := make(map[string]bool)
	for _, m := range handlerRe.FindAllStringSubmatch(text, -1) {
		handlers[m[1]] = true
	}
	f.Handlers = len(handlers)

	parseExports(text, f)
	return f
}

func (e *Extractor) isTransient(name string) bool {
	lower := strings.ToLower(name)
	for _, t := range e.transient {
		if lower == t || strings.HasPrefix(lower, "is"+t) || strings.HasPrefix(lower, t) || strings.HasSuffix(lower, t) {
			return true
		}
	}
	return false
}

func (e *Extractor) matchAll(list []*regexp.Regexp, text string) []string {
	var out []string
	for _, re := range list {
		if re.MatchString(text) {
			out = appendUnique(out, e.names[re])
		}
	}
	sort.Strings(out)
	return out
}

// ParseExports returns the exports declared in text (comments already masked
// or absent). Re-exports from other modules are reported too.
func ParseExports(text string) (defaultName string, hasDefault bool, values, types []string) {
	f := &Facts{}
	parseExports(text, f)
	return f.DefaultExportName, f.DefaultExport, f.ValueExports, f.TypeExports
}

func parseExports(text string, f *Facts) {
	for _, line := range strings.Split(text, "\n") {
		if m := defaultExportRe.FindStringSubmatch(line); m != nil {
			f.DefaultExport = true
			switch {
			case m[1] != "":
				f.DefaultExportName = m[1]
			case m[2] != "" && m[2] != "function" && m[2] != "class":
				f.DefaultExportName = m[2]
			}
		}
	}
	for _, m := range valueExportRe.FindAllStringSubmatch(text, -1) {
		f.ValueExports = appendUnique(f.ValueExports, m[1])
	}
	for _, m := range typeExportRe.FindAllStringSubmatch(text, -1) {
		f.TypeExports = appendUnique(f.TypeExports, m[1])
	}
	for _, m := range listExportRe.FindAllStringSubmatch(text, -1) {
		allTypes := m[1] != ""
		for _, spec := range strings.Split(m[2], ",") {
			spec = strings.TrimSpace(spec)
			if spec == "" {
				continue
			}
			isType := allTypes
			if strings.HasPrefix(spec, "type ") {
				isType = true
				spec = strings.TrimSpace(strings.TrimPrefix(spec, "type "))
			}
			local, exported := spec, spec
			if parts := strings.Split(spec, " as "); len(parts) == 2 {
				local, exported = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			}
			switch {
			case exported == "default":
				f.DefaultExport = true
				if m[3] == "" {
					f.DefaultExportName = local
				}
			case isType:
				f.TypeExports = appendUnique(f.TypeExports, exported)
			default:
				f.ValueExports = appendUnique(f.ValueExports, exported)
			}
		}
	}
	sort.Strings(f.ValueExports)
	sort.Strings(f.TypeExports)
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
