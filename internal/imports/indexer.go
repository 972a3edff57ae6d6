package imports

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"strata/internal/graph"
	"strata/internal/signals"
	"strata/internal/units"
)

// Source is the read-only tree the indexer works from. *scanner.Snapshot implements it.
type Source interface {
	FileSet
	SourcePaths() []string
	Content(p string) ([]byte, bool)
}

// Index is the factual reference structure of one run.
type Index struct {
	// Edges holds every unit-referencing occurrence, sorted by file then offset.
	Edges []*Edge

	// ByUnit lists the occurrences referencing each unit.
	ByUnit map[string][]*Edge

	// ByFile lists every occurrence per file, including non-unit imports.
	ByFile map[string][]*Edge

	// Outgoing lists, per candidate unit, the units (candidates and residents) it imports.
	Outgoing map[string][]string

	// ImportCounts is the number of import occurrences per file.
	ImportCounts map[string]int

	// Dynamic lists non-literal imports that may load a unit.
	Dynamic []*Dynamic

	Graph *graph.Graph
}

// ReferencingFiles returns the files outside the unit that reference it, sorted.
func (ix *Index) ReferencingFiles(u *units.Unit) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range ix.ByUnit[u.Name] {
		if u.Owns(e.File) || seen[e.File] {
			continue
		}
		seen[e.File] = true
		out = append(out, e.File)
	}
	sort.Strings(out)
	return out
}

// Indexer resolves import occurrences against the known units.
type Indexer struct {
	resolver        *Resolver
	aggregationBase string
	workers         int
	logger          *slog.Logger
}

// NewIndexer creates an indexer. aggregationFile is the aggregation module
// name (index.ts); any extension of its base name counts.
func NewIndexer(resolver *Resolver, aggregationFile string, workers int, logger *slog.Logger) *Indexer {
	if workers <= 0 {
		workers = 8
	}
	return &Indexer{
		resolver:        resolver,
		aggregationBase: strings.TrimSuffix(aggregationFile, path.Ext(aggregationFile)),
		workers:         workers,
		logger:          logger,
	}
}

type fileScan struct {
	edges    []*Edge
	dynamics []*Dynamic
}

// Build scans every source file. candidates become graph nodes; residents
// (units already placed in a tier) are resolvable but never moved.
func (ix *Indexer) Build(ctx context.Context, src Source, candidates, residents []*units.Unit) (*Index, error) {
	files := src.SourcePaths()
	scans := make([]fileScan, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, _ := src.Content(file)
			original := string(content)
			masked := string(signals.MaskComments(gctx, file, content))
			edges, dynamics := scanFile(file, original, masked)
			for _, e := range edges {
				e.Target, e.Style, _ = ix.resolver.Resolve(src, file, e.Specifier)
			}
			scans[i] = fileScan{edges: edges, dynamics: dynamics}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to index imports: %w", err)
	}

	owners := newOwnerTable(candidates, residents)
	candidateNames := make(map[string]bool, len(candidates))
	idx := &Index{
		ByUnit:       make(map[string][]*Edge),
		ByFile:       make(map[string][]*Edge),
		Outgoing:     make(map[string][]string),
		ImportCounts: make(map[string]int),
		Graph:        graph.NewGraph(),
	}
	for _, u := range candidates {
		candidateNames[u.Name] = true
		idx.Graph.AddNode(u.Name)
	}

	outgoing := make(map[string]map[string]bool)
	for i, file := range files {
		sc := scans[i]
		if len(sc.edges) > 0 {
			idx.ByFile[file] = sc.edges
			idx.ImportCounts[file] = len(sc.edges)
		}
		importer := owners.owner(file)

		for _, e := range sc.edges {
			if e.Target == "" {
				continue
			}
			for _, target := range ix.targetUnits(e, owners) {
				if importer != nil && importer.Name == target.Name {
					continue
				}
				ref := e
				if e.Unit != "" {
					// one statement reaching several units through an aggregation module
					dup := *e
					ref = &dup
				}
				ref.Unit = target.Name
				ref.ViaAggregate = !target.Owns(e.Target)

				idx.Edges = append(idx.Edges, ref)
				idx.ByUnit[target.Name] = append(idx.ByUnit[target.Name], ref)

				if importer != nil && candidateNames[importer.Name] {
					if outgoing[importer.Name] == nil {
						outgoing[importer.Name] = make(map[string]bool)
					}
					outgoing[importer.Name][target.Name] = true
					if candidateNames[target.Name] {
						idx.Graph.AddEdge(importer.Name, target.Name)
					}
				}
			}
		}

		for _, d := range sc.dynamics {
			d.Candidates = dynamicCandidates(d, candidates)
			if len(d.Candidates) > 0 {
				idx.Dynamic = append(idx.Dynamic, d)
			}
		}
	}

	for name, set := range outgoing {
		deps := make([]string, 0, len(set))
		for dep := range set {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		idx.Outgoing[name] = deps
	}

	ix.logger.Info("Import index built",
		"files", len(files),
		"edges", len(idx.Edges),
		"graphEdges", idx.Graph.NumEdges(),
		"dynamic", len(idx.Dynamic),
	)
	return idx, nil
}

// targetUnits maps a resolved occurrence to the units it references. A file
// owned by a unit maps to that unit; an aggregation module maps each imported
// binding to the unit of the same name placed below the module's directory.
func (ix *Indexer) targetUnits(e *Edge, owners *ownerTable) []*units.Unit {
	if u := owners.owner(e.Target); u != nil {
		return []*units.Unit{u}
	}
	if strings.TrimSuffix(path.Base(e.Target), path.Ext(e.Target)) != ix.aggregationBase {
		return nil
	}
	dir := path.Dir(e.Target)
	var out []*units.Unit
	for _, name := range e.localNames() {
		if u := owners.byName(name); u != nil && strings.HasPrefix(u.MoveRoot(), dir+"/") {
			out = append(out, u)
		}
	}
	return out
}

// localNames are the exported names an occurrence asks for from an aggregation module.
func (e *Edge) localNames() []string {
	var out []string
	for _, b := range e.Named {
		out = append(out, b.Name)
	}
	return out
}

// dynamicCandidates lists units a non-literal import might load: units named
// in the expression, or units below the directory its static prefix reaches.
func dynamicCandidates(d *Dynamic, candidates []*units.Unit) []string {
	var out []string
	prefixDir := ""
	expr := strings.Trim(d.Expr, bt)
	if i := strings.Index(expr, "${"); i > 0 && IsRelative(expr[:i]) {
		prefixDir = path.Clean(path.Join(path.Dir(d.File), expr[:i]))
	}
	for _, u := range candidates {
		if strings.Contains(d.Expr, u.Name) || (prefixDir != "" && path.Dir(u.MoveRoot()) == prefixDir) {
			out = append(out, u.Name)
		}
	}
	return out
}

// ownerTable answers which unit owns a canonical path.
type ownerTable struct {
	files map[string]*units.Unit
	dirs  []*units.Unit
	names map[string]*units.Unit
}

func newOwnerTable(lists ...[]*units.Unit) *ownerTable {
	t := &ownerTable{files: make(map[string]*units.Unit), names: make(map[string]*units.Unit)}
	for _, list := range lists {
		for _, u := range list {
			if _, dup := t.names[u.Name]; !dup {
				t.names[u.Name] = u
			}
			if u.Dir != "" {
				t.dirs = append(t.dirs, u)
				continue
			}
			t.files[u.Path] = u
			for _, f := range u.Files {
				t.files[f] = u
			}
		}
	}
	return t
}

func (t *ownerTable) owner(p string) *units.Unit {
	if u, ok := t.files[p]; ok {
		return u
	}
	for _, u := range t.dirs {
		if strings.HasPrefix(p, u.Dir+"/") {
			return u
		}
	}
	return nil
}

func (t *ownerTable) byName(name string) *units.Unit {
	return t.names[name]
}
