package imports

import (
	"regexp"
	"sort"
	"strings"
)

const bt = "`"

var (
	importFromRe = regexp.MustCompile(`\bimport\s+(type\s+)?([\w$*{}\s,]+?)\s*from\s*(['"])([^'"\n]+)['"]`)
	sideEffectRe = regexp.MustCompile(`\bimport\s*(['"])([^'"\n]+)['"]`)
	reExportRe   = regexp.MustCompile(`\bexport\s+(type\s+)?(\*(?:\s+as\s+[\w$]+)?|\{[^}]*\})\s*from\s*(['"])([^'"\n]+)['"]`)
	requireRe    = regexp.MustCompile(`\brequire\s*\(\s*(['"])([^'"\n]+)['"]\s*\)`)
	dynamicRe    = regexp.MustCompile(`\bimport\s*\(\s*(['"` + bt + `])([^'"` + bt + `$\n]+)['"` + bt + `]\s*\)`)
	mockRe       = regexp.MustCompile(`\b(?:jest|vi)\.(?:mock|doMock|unmock|requireActual|importActual)\s*\(\s*(['"])([^'"\n]+)['"]`)
	dynamicExpr  = regexp.MustCompile(`\b(?:import|require)\s*\(\s*([^)'"\s` + bt + `][^)]*|` + bt + `[^` + bt + `]*\$\{[^` + bt + `]*` + bt + `)\s*\)`)
)

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) line(offset int) int {
	return sort.SearchInts(l, offset+1)
}

// scanFile finds every import occurrence in one file. masked is the file text
// with comments blanked; original supplies statement text. Both have equal length.
func scanFile(file, original, masked string) ([]*Edge, []*Dynamic) {
	lines := newLineIndex(masked)
	var edges []*Edge

	add := func(m []int, form Form, quoteGroup, specGroup int) *Edge {
		end := statementEnd(masked, m[1])
		e := &Edge{
			File:      file,
			Form:      form,
			Specifier: masked[m[2*specGroup]:m[2*specGroup+1]],
			SpecStart: m[2*specGroup],
			SpecEnd:   m[2*specGroup+1],
			Quote:     masked[m[2*quoteGroup]],
			Start:     m[0],
			End:       end,
			Line:      lines.line(m[0]),
		}
		edges = append(edges, e)
		return e
	}

	for _, m := range importFromRe.FindAllStringSubmatchIndex(masked, -1) {
		e := add(m, FormImport, 3, 4)
		e.TypeOnly = m[2] >= 0
		parseClause(masked[m[4]:m[5]], e)
		e.Kind = kindOf(e)
	}
	for _, m := range sideEffectRe.FindAllStringSubmatchIndex(masked, -1) {
		add(m, FormSideEffect, 1, 2).Kind = KindValue
	}
	for _, m := range reExportRe.FindAllStringSubmatchIndex(masked, -1) {
		e := add(m, FormReExport, 3, 4)
		e.TypeOnly = m[2] >= 0
		clause := strings.TrimSpace(masked[m[4]:m[5]])
		if strings.HasPrefix(clause, "*") {
			if fields := strings.Fields(clause); len(fields) == 3 {
				e.Namespace = fields[2]
			} else {
				e.ExportAll = true
			}
		} else {
			e.Named = parseNamed(strings.Trim(clause, "{}"))
		}
		e.Kind = kindOf(e)
	}
	for _, m := range requireRe.FindAllStringSubmatchIndex(masked, -1) {
		add(m, FormRequire, 1, 2).Kind = KindValue
	}
	for _, m := range dynamicRe.FindAllStringSubmatchIndex(masked, -1) {
		add(m, FormDynamic, 1, 2).Kind = KindValue
	}
	for _, m := range mockRe.FindAllStringSubmatchIndex(masked, -1) {
		e := add(m, FormMock, 1, 2)
		e.Kind = KindValue
		e.End = m[2*2+1] + 1 // only the specifier is ever touched
	}

	var dynamics []*Dynamic
	for _, m := range dynamicExpr.FindAllStringSubmatchIndex(masked, -1) {
		dynamics = append(dynamics, &Dynamic{
			File: file,
			Line: lines.line(m[0]),
			Expr: strings.TrimSpace(original[m[2]:m[3]]),
		})
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].Start < edges[j].Start })
	for _, e := range edges {
		e.Specifier = original[e.SpecStart:e.SpecEnd]
	}
	return edges, dynamics
}

// statementEnd extends end over trailing blanks and one semicolon on the same line.
func statementEnd(text string, end int) int {
	i := end
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i < len(text) && text[i] == ';' {
		return i + 1
	}
	return end
}
