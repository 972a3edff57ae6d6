package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"strata/internal/config"
	"strata/internal/paths"
	"strata/internal/signals"
)

// FileSet answers whether a canonical path exists. *scanner.Snapshot implements it.
type FileSet interface {
	Has(p string) bool
}

// Alias is one tsconfig-style path mapping, e.g. "@/*" -> ["src/*"].
type Alias struct {
	Pattern string   `json:"pattern"`
	Targets []string `json:"targets"` // canonical, may contain one "*"
}

func (a Alias) prefix() string {
	return strings.SplitN(a.Pattern, "*", 2)[0]
}

func (a Alias) wildcard() bool {
	return strings.Contains(a.Pattern, "*")
}

// match returns the text captured by "*" when spec matches the pattern.
func (a Alias) match(spec string) (string, bool) {
	if !a.wildcard() {
		return "", spec == a.Pattern
	}
	parts := strings.SplitN(a.Pattern, "*", 2)
	if !strings.HasPrefix(spec, parts[0]) || !strings.HasSuffix(spec, parts[1]) || len(spec) < len(parts[0])+len(parts[1]) {
		return "", false
	}
	return spec[len(parts[0]) : len(spec)-len(parts[1])], true
}

// Resolver is the read-only alias table. It is built once per run and passed
// into every resolution call.
type Resolver struct {
	// BaseURL is the canonical directory bare specifiers resolve against; empty when undeclared.
	BaseURL    string
	Aliases    []Alias
	Extensions []string
}

// NewResolver builds a resolver. Aliases are tried most specific first.
func NewResolver(baseURL string, aliasPaths map[string][]string, extensions []string) *Resolver {
	r := &Resolver{BaseURL: paths.NormalizePath(baseURL), Extensions: extensions}
	for pattern, targets := range aliasPaths {
		a := Alias{Pattern: pattern}
		for _, t := range targets {
			a.Targets = append(a.Targets, path.Clean(path.Join(baseOrDot(r.BaseURL), t)))
		}
		r.Aliases = append(r.Aliases, a)
	}
	sort.Slice(r.Aliases, func(i, j int) bool {
		pi, pj := r.Aliases[i].prefix(), r.Aliases[j].prefix()
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return r.Aliases[i].Pattern < r.Aliases[j].Pattern
	})
	return r
}

func baseOrDot(base string) string {
	if base == "" {
		return "."
	}
	return base
}

type tsconfigFile struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// LoadResolver reads the first tsconfig/jsconfig found and layers the
// configured aliases on top.
func LoadResolver(ctx context.Context, projectRoot string, cfg config.AliasConfig, extensions []string) (*Resolver, error) {
	baseURL := ""
	aliasPaths := make(map[string][]string)

	for _, name := range cfg.TsConfigFiles {
		data, err := os.ReadFile(filepath.Join(projectRoot, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		ts, err := parseTsconfig(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		baseURL = ts.CompilerOptions.BaseURL
		for k, v := range ts.CompilerOptions.Paths {
			aliasPaths[k] = v
		}
		break
	}

	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	for k, v := range cfg.Paths {
		aliasPaths[k] = v
	}
	return NewResolver(baseURL, aliasPaths, extensions), nil
}

// parseTsconfig accepts the JSON-with-comments dialect tsconfig files use.
func parseTsconfig(ctx context.Context, data []byte) (*tsconfigFile, error) {
	cleaned := signals.MaskComments(ctx, "tsconfig.json", data)
	cleaned = trailingComma.ReplaceAll(cleaned, []byte("$1"))
	var ts tsconfigFile
	if err := json.Unmarshal(cleaned, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// IsRelative reports whether spec is a relative module specifier.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// Resolve maps a specifier written in fromFile to the canonical file it loads.
func (r *Resolver) Resolve(files FileSet, fromFile, spec string) (string, Style, bool) {
	if IsRelative(spec) {
		base := path.Join(path.Dir(fromFile), spec)
		t, ok := r.probe(files, base)
		return t, StyleRelative, ok
	}
	for _, a := range r.Aliases {
		capture, ok := a.match(spec)
		if !ok {
			continue
		}
		for _, target := range a.Targets {
			base := strings.Replace(target, "*", capture, 1)
			if t, ok := r.probe(files, base); ok {
				return t, StyleAlias, true
			}
		}
	}
	if r.BaseURL != "" {
		if t, ok := r.probe(files, path.Join(r.BaseURL, spec)); ok {
			return t, StyleBare, true
		}
	}
	return "", StyleBare, false
}

// probe tries base as a file, with each extension, then as a directory index.
func (r *Resolver) probe(files FileSet, base string) (string, bool) {
	base = path.Clean(base)
	if strings.HasPrefix(base, "../") || base == ".." {
		return "", false
	}
	if path.Ext(base) != "" && files.Has(base) {
		return base, true
	}
	for _, ext := range r.Extensions {
		if files.Has(base + ext) {
			return base + ext, true
		}
	}
	for _, ext := range r.Extensions {
		if p := path.Join(base, "index"+ext); files.Has(p) {
			return p, true
		}
	}
	return "", false
}

// Specifier renders a specifier that reaches target (a canonical,
// extension-less file or directory path) from fromFile in the given style.
// Alias and bare styles fall back to a relative specifier when no alias covers target.
func (r *Resolver) Specifier(fromFile, target string, style Style) string {
	switch style {
	case StyleAlias:
		if s, ok := r.aliasFor(target); ok {
			return s
		}
	case StyleBare:
		if r.BaseURL == "." {
			return target
		}
		if r.BaseURL != "" && paths.IsUnder(target, r.BaseURL) {
			return strings.TrimPrefix(target, r.BaseURL+"/")
		}
		if s, ok := r.aliasFor(target); ok {
			return s
		}
	}
	return paths.RelativeSpecifier(fromFile, target)
}

// aliasFor finds the most specific alias whose target covers path.
func (r *Resolver) aliasFor(target string) (string, bool) {
	for _, a := range r.Aliases {
		for _, t := range a.Targets {
			if !strings.Contains(t, "*") {
				if t == target || paths.StripExt(t) == target {
					return a.Pattern, true
				}
				continue
			}
			parts := strings.SplitN(t, "*", 2)
			if strings.HasPrefix(target, parts[0]) && strings.HasSuffix(target, parts[1]) && len(target) >= len(parts[0])+len(parts[1]) {
				capture := target[len(parts[0]) : len(target)-len(parts[1])]
				if capture == "" {
					continue
				}
				return strings.Replace(a.Pattern, "*", capture, 1), true
			}
		}
	}
	return "", false
}
