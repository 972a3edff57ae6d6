// Package scanner discovers candidate units under the components root and
// takes the read-only source snapshot every later stage works from.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"strata/internal/config"
	"strata/internal/errors"
	"strata/internal/paths"
	"strata/internal/signals"
	"strata/internal/tier"
	"strata/internal/units"
)

// Options controls discovery.
type Options struct {
	// ProjectRoot is the absolute project directory.
	ProjectRoot string

	// Root is the conventional components root, canonical.
	Root string

	// ExtraRoots are scanned too; their units need confirmation.
	ExtraRoots []string

	// IncludeNonStandard confirms units found under ExtraRoots.
	IncludeNonStandard bool

	Extensions       []string
	Exclude          []string
	TestSuffixes     []string
	DocsSuffixes     []string
	IgnoreDirs       []string
	AggregationFile  string
	TierDirs         tier.Dirs
	MaxFileSizeBytes int64
	Workers          int
}

// OptionsFromConfig derives scan options from the project configuration.
func OptionsFromConfig(projectRoot string, cfg *config.Config) Options {
	return Options{
		ProjectRoot:      projectRoot,
		Root:             paths.NormalizePath(cfg.Root),
		ExtraRoots:       cfg.ExtraRoots,
		Extensions:       cfg.Scan.Extensions,
		Exclude:          cfg.Scan.Exclude,
		TestSuffixes:     cfg.Scan.TestSuffixes,
		DocsSuffixes:     cfg.Scan.DocsSuffixes,
		IgnoreDirs:       cfg.Scan.IgnoreDirs,
		AggregationFile:  cfg.Aggregation.FileName,
		TierDirs:         cfg.TierDirs(),
		MaxFileSizeBytes: int64(cfg.Scan.MaxFileSizeBytes),
		Workers:          cfg.Scan.Workers,
	}
}

// Result is the output of one scan.
type Result struct {
	// Units are the candidates, sorted by name.
	Units []*units.Unit

	// Residents are units already inside a tier directory, with their level set.
	Residents []*units.Unit

	Warnings []units.Warning

	// Skipped lists directories passed over with an informational note.
	Skipped []string

	Snapshot *Snapshot
}

// Scanner discovers units.
type Scanner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a scanner.
func New(opts Options, logger *slog.Logger) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.AggregationFile == "" {
		opts.AggregationFile = "index.ts"
	}
	if opts.TierDirs == nil {
		opts.TierDirs = tier.DefaultDirs()
	}
	return &Scanner{opts: opts, logger: logger}
}

// Scan walks the project, loads the snapshot and discovers units.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	rootAbs := paths.JoinRepoPath(s.opts.ProjectRoot, s.opts.Root)
	if info, err := os.Stat(rootAbs); err != nil || !info.IsDir() {
		return nil, errors.Newf(errors.PreconditionFailed, "components root %s does not exist", s.opts.Root)
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Snapshot: snap}

	found := s.discover(ctx, s.opts.Root, false, res)
	for _, extra := range s.opts.ExtraRoots {
		extra = paths.NormalizePath(extra)
		if extra == s.opts.Root || !snap.HasDir(extra) {
			s.logger.Debug("Skipping extra root", "root", extra)
			continue
		}
		found = append(found, s.discover(ctx, extra, true, res)...)
	}
	res.Residents = s.residents(snap)

	res.Units = s.resolveConflicts(found, res)
	units.SortByName(res.Units)
	units.SortWarnings(res.Warnings)

	s.logger.Info("Scan completed",
		"units", len(res.Units),
		"residents", len(res.Residents),
		"files", len(snap.Paths()),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// loadSnapshot walks the project root and reads every source file in parallel.
func (s *Scanner) loadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := newSnapshot(s.opts.ProjectRoot)

	var sources []string
	err := filepath.WalkDir(s.opts.ProjectRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.opts.ProjectRoot && s.ignoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := paths.CanonicalizePath(p, s.opts.ProjectRoot)
		if err != nil {
			return err
		}
		snap.paths = append(snap.paths, rel)
		if s.isSource(rel) {
			sources = append(sources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.opts.ProjectRoot, err)
	}
	sort.Strings(snap.paths)
	sort.Strings(sources)

	contents := make([][]byte, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, rel := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			abs := paths.JoinRepoPath(s.opts.ProjectRoot, rel)
			info, err := os.Stat(abs)
			if err != nil {
				return err
			}
			if s.opts.MaxFileSizeBytes > 0 && info.Size() > s.opts.MaxFileSizeBytes {
				s.logger.Debug("Skipping file: too large", "file", rel, "size", info.Size())
				return nil
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return err
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}

	for i, rel := range sources {
		if contents[i] != nil {
			snap.contents[rel] = contents[i]
		}
	}
	return snap, nil
}

// discover lists the top-level entries of one root.
func (s *Scanner) discover(ctx context.Context, root string, nonStandard bool, res *Result) []*units.Unit {
	snap := res.Snapshot
	entries := make(map[string]bool) // name -> isDir
	for _, p := range snap.Under(root) {
		rest := strings.TrimPrefix(p, root+"/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			entries[rest[:i]] = true
		} else {
			entries[rest] = false
		}
	}
	// Directories with no files at all never show up in the snapshot.
	if dirents, err := os.ReadDir(paths.JoinRepoPath(s.opts.ProjectRoot, root)); err == nil {
		for _, d := range dirents {
			if _, seen := entries[d.Name()]; !seen && d.IsDir() && !s.ignoredDir(d.Name()) {
				if _, isTier := s.opts.TierDirs.LevelForDir(d.Name()); isTier {
					continue
				}
				s.logger.Info("Skipping empty directory", "dir", path.Join(root, d.Name()))
				res.Skipped = append(res.Skipped, path.Join(root, d.Name()))
			}
		}
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*units.Unit
	for _, name := range names {
		var u *units.Unit
		if entries[name] {
			if _, isTier := s.opts.TierDirs.LevelForDir(name); isTier || s.ignoredDir(name) {
				continue
			}
			u = s.dirUnit(root, name, res)
		} else {
			u = s.fileUnit(root, name, snap)
		}
		if u == nil {
			continue
		}
		u.Root = root
		s.checkExport(ctx, u, snap, res)
		if nonStandard {
			s.markNonStandard(u, res)
		}
		out = append(out, u)
	}
	return out
}

func (s *Scanner) fileUnit(root, fileName string, snap *Snapshot) *units.Unit {
	p := path.Join(root, fileName)
	if !s.isSource(p) || s.excluded(p) {
		return nil
	}
	base := baseName(fileName)
	if s.isAggregation(fileName) || s.companionKind(base) != "" {
		return nil
	}

	u := &units.Unit{Name: base, Path: p, Files: []string{p}}
	for _, sibling := range s.siblings(root, base, snap) {
		switch s.companionKind(baseName(path.Base(sibling))) {
		case "test":
			if u.TestFile == "" {
				u.TestFile = sibling
			}
			u.Files = append(u.Files, sibling)
		case "docs":
			if u.DocsFile == "" {
				u.DocsFile = sibling
			}
			u.Files = append(u.Files, sibling)
		}
	}
	sort.Strings(u.Files)
	return u
}

func (s *Scanner) dirUnit(root, name string, res *Result) *units.Unit {
	snap := res.Snapshot
	dir := path.Join(root, name)
	files := snap.Under(dir)
	if len(files) == 0 {
		res.Skipped = append(res.Skipped, dir)
		s.logger.Info("Skipping empty directory", "dir", dir)
		return nil
	}

	primary := ""
	for _, ext := range s.opts.Extensions {
		if candidate := path.Join(dir, name+ext); snap.Has(candidate) {
			primary = candidate
			break
		}
	}
	if primary == "" {
		for _, ext := range s.opts.Extensions {
			if candidate := path.Join(dir, "index"+ext); snap.Has(candidate) {
				primary = candidate
				break
			}
		}
	}
	if primary == "" {
		res.Skipped = append(res.Skipped, dir)
		s.logger.Info("Skipping directory without a primary file", "dir", dir)
		return nil
	}
	if s.excluded(primary) {
		return nil
	}

	u := &units.Unit{Name: name, Path: primary, Dir: dir, Files: append([]string(nil), files...)}
	for _, f := range files {
		if path.Dir(f) != dir {
			continue
		}
		file := path.Base(f)
		if f != primary && s.isAggregation(file) && u.AggregationFile == "" {
			u.AggregationFile = f
			continue
		}
		switch s.companionKind(baseName(file)) {
		case "test":
			if u.TestFile == "" {
				u.TestFile = f
			}
		case "docs":
			if u.DocsFile == "" {
				u.DocsFile = f
			}
		}
	}
	return u
}

// siblings returns files next to a file unit that share its base name
// (Button.test.tsx, Button.stories.tsx).
func (s *Scanner) siblings(root, base string, snap *Snapshot) []string {
	var out []string
	for _, p := range snap.Under(root) {
		if path.Dir(p) != root {
			continue
		}
		file := path.Base(p)
		if strings.HasPrefix(file, base+".") && baseName(file) != base {
			out = append(out, p)
		}
	}
	return out
}

func (s *Scanner) checkExport(ctx context.Context, u *units.Unit, snap *Snapshot, res *Result) {
	content, ok := snap.Content(u.Path)
	if ok {
		masked := string(signals.MaskComments(ctx, u.Path, content))
		_, hasDefault, values, _ := signals.ParseExports(masked)
		u.HasPrimaryExport = hasDefault
		for _, v := range values {
			if v == u.Name {
				u.HasPrimaryExport = true
			}
		}
	}
	if !u.HasPrimaryExport {
		res.Warnings = append(res.Warnings, units.Warning{
			Kind:       units.MissingPrimaryExport,
			Units:      []string{u.Name},
			Message:    fmt.Sprintf("%s has no default export or named export %q", u.Path, u.Name),
			Suggestion: "Add a default export or classify the unit manually; classification is best effort",
		})
	}
}

func (s *Scanner) markNonStandard(u *units.Unit, res *Result) {
	u.NonStandard = true
	res.Warnings = append(res.Warnings, units.Warning{
		Kind:       units.NonStandardLocation,
		Units:      []string{u.Name},
		Message:    fmt.Sprintf("%s was found outside %s", u.MoveRoot(), s.opts.Root),
		Suggestion: "Confirm the unit to include it in the migration",
	})
	if !s.opts.IncludeNonStandard {
		u.Level = tier.Skip
		u.Rationale = append(u.Rationale, "outside the components root; awaiting confirmation")
	}
}

// residents lists units already placed in a tier directory of the conventional root.
func (s *Scanner) residents(snap *Snapshot) []*units.Unit {
	var out []*units.Unit
	for _, level := range tier.All() {
		dir := path.Join(s.opts.Root, s.opts.TierDirs.Dir(level))
		seen := make(map[string]bool)
		for _, p := range snap.Under(dir) {
			rest := strings.TrimPrefix(p, dir+"/")
			name := rest
			isDir := false
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				name, isDir = rest[:i], true
			} else {
				if !s.isSource(p) || s.isAggregation(name) {
					continue
				}
				name = baseName(name)
				if s.companionKind(name) != "" {
					continue
				}
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			u := &units.Unit{Name: name, Path: p, Files: []string{p}, Level: level, Migrated: true, Root: s.opts.Root}
			if isDir {
				u.Dir = path.Join(dir, name)
				u.Path = s.residentPrimary(u.Dir, name, snap)
				u.Files = snap.Under(u.Dir)
			}
			out = append(out, u)
		}
	}
	units.SortByName(out)
	return out
}

func (s *Scanner) residentPrimary(dir, name string, snap *Snapshot) string {
	for _, stem := range []string{name, "index"} {
		for _, ext := range s.opts.Extensions {
			if p := path.Join(dir, stem+ext); snap.Has(p) {
				return p
			}
		}
	}
	return dir
}

// resolveConflicts keeps the first unit per name (conventional root first)
// and reports the rest, plus collisions with already-placed units.
func (s *Scanner) resolveConflicts(found []*units.Unit, res *Result) []*units.Unit {
	residentByName := make(map[string]*units.Unit)
	for _, r := range res.Residents {
		residentByName[r.Name] = r
	}

	byName := make(map[string]*units.Unit)
	var out []*units.Unit
	for _, u := range found {
		if prev, dup := byName[u.Name]; dup {
			res.Warnings = append(res.Warnings, units.Warning{
				Kind:       units.NamingConflict,
				Units:      []string{u.Name},
				Message:    fmt.Sprintf("%s and %s share the name %s; only the first is migrated", prev.MoveRoot(), u.MoveRoot(), u.Name),
				Suggestion: "Rename one of the units and re-run",
			})
			continue
		}
		byName[u.Name] = u
		if r, ok := residentByName[u.Name]; ok {
			res.Warnings = append(res.Warnings, units.Warning{
				Kind:       units.NamingConflict,
				Units:      []string{u.Name},
				Message:    fmt.Sprintf("%s has the same name as already placed %s", u.MoveRoot(), r.MoveRoot()),
				Suggestion: "Rename the unit or remove the stale copy before migrating",
			})
		}
		out = append(out, u)
	}
	return out
}

func (s *Scanner) ignoredDir(name string) bool {
	for _, d := range s.opts.IgnoreDirs {
		if d == name {
			return true
		}
	}
	return false
}

func (s *Scanner) isSource(p string) bool {
	ext := path.Ext(p)
	for _, e := range s.opts.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(p string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, err := doublestar.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

// isAggregation reports whether file is an aggregation module (index.ts, index.js, ...).
func (s *Scanner) isAggregation(file string) bool {
	return baseName(file) == baseName(s.opts.AggregationFile) && s.isSource(file)
}

// companionKind classifies a base name such as "Button.test" as test or docs.
func (s *Scanner) companionKind(base string) string {
	for _, suffix := range s.opts.TestSuffixes {
		if strings.HasSuffix(base, suffix) {
			return "test"
		}
	}
	for _, suffix := range s.opts.DocsSuffixes {
		if strings.HasSuffix(base, suffix) {
			return "docs"
		}
	}
	return ""
}

// baseName strips the final extension: "Button.test.tsx" -> "Button.test".
func baseName(file string) string {
	return strings.TrimSuffix(file, path.Ext(file))
}
