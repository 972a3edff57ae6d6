// Package execute applies an approved plan in two phases. Phase one computes
// every move, import rewrite and aggregation module in memory and validates
// them; phase two writes them unit by unit, lowest tier first, halting on the
// first failure.
package execute

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"strata/internal/errors"
	"strata/internal/imports"
	"strata/internal/paths"
	"strata/internal/plan"
	"strata/internal/tier"
	"strata/internal/units"
)

// Source is the snapshot phase one reads from. *scanner.Snapshot implements it.
type Source interface {
	imports.Source
	Under(dir string) []string
}

// Options control execution.
type Options struct {
	ProjectRoot string

	// PreferAggregate rewrites imports to the destination tier's aggregation
	// module whenever every imported binding is re-exported there.
	PreferAggregate bool

	// UpdateDocs rewrites documentation stub titles to the new tier.
	UpdateDocs bool
}

// Executor applies approved plans.
type Executor struct {
	opts     Options
	resolver *imports.Resolver
	src      Source
	logger   *slog.Logger
}

// New creates an executor over one snapshot.
func New(opts Options, resolver *imports.Resolver, src Source, logger *slog.Logger) *Executor {
	return &Executor{opts: opts, resolver: resolver, src: src, logger: logger}
}

// move is one unit relocation.
type move struct {
	unit *units.Unit
	from string // unit directory or primary file
	to   string
}

// Changeset is the validated result of phase one.
type Changeset struct {
	Plan *plan.Plan

	src   Source
	moves []*move

	// Failures are units excluded during validation.
	Failures []Failure

	// Skipped are units already at their destination or excluded by the plan.
	Skipped []string

	FollowUps []FollowUp

	full *state
}

// Units returns the names of the units that will move, in execution order.
func (cs *Changeset) Units() []string {
	out := make([]string, len(cs.moves))
	for i, m := range cs.moves {
		out[i] = m.unit.Name
	}
	return out
}

// Rewrites is the number of import occurrences that will change.
func (cs *Changeset) Rewrites() int {
	return cs.full.rewrites
}

// ChangedFiles lists the final paths of every file that is moved, edited or created.
func (cs *Changeset) ChangedFiles() []string {
	set := make(map[string]bool)
	for from, to := range cs.full.moved {
		set[from] = true
		set[to] = true
	}
	for key := range cs.full.files {
		set[key] = true
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Prepare runs phase one. A unit whose source vanished aborts the whole run
// with PRECONDITION_FAILED; an occupied destination excludes only that unit
// with MOVE_CONFLICT.
func (x *Executor) Prepare(ctx context.Context, p *plan.Plan) (*Changeset, error) {
	if p.Status != plan.StatusApproved {
		return nil, errors.Newf(errors.PreconditionFailed, "plan %s v%d is %s, not approved", p.ID, p.Version, p.Status)
	}
	in := p.Inputs()
	cs := &Changeset{Plan: p, src: x.src}

	for _, u := range p.Units {
		if !u.Level.IsTier() {
			cs.Skipped = append(cs.Skipped, u.Name)
		}
	}

	claimed := make(map[string]string)
	for _, u := range p.Active() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(x.abs(u.MoveRoot())); err != nil {
			return nil, errors.Newf(errors.PreconditionFailed, "source of %s no longer exists: %s", u.Name, u.MoveRoot()).
				WithDetails(map[string]string{"unit": u.Name, "path": u.MoveRoot()})
		}

		to := plan.DestinationRoot(u, in.Root, in.TierDirs)
		if to == u.MoveRoot() {
			cs.Skipped = append(cs.Skipped, u.Name)
			continue
		}
		if other, ok := claimed[to]; ok {
			cs.Failures = append(cs.Failures, Failure{Unit: u.Name, Code: errors.MoveConflict,
				Reason: fmt.Sprintf("destination %s is also claimed by %s", to, other)})
			continue
		}
		if _, err := os.Stat(x.abs(to)); err == nil {
			cs.Failures = append(cs.Failures, Failure{Unit: u.Name, Code: errors.MoveConflict,
				Reason: fmt.Sprintf("destination %s already exists", to)})
			x.logger.Warn("Move conflict", "unit", u.Name, "destination", to)
			continue
		}
		claimed[to] = u.Name
		cs.moves = append(cs.moves, &move{unit: u, from: u.MoveRoot(), to: to})
	}

	all := make(map[string]bool, len(cs.moves))
	for _, m := range cs.moves {
		all[m.unit.Name] = true
	}
	cs.full = x.layout(ctx, p, cs.moves, all)
	cs.FollowUps = followUps(in.Index, cs.full)

	x.logger.Info("Execution prepared",
		"units", len(cs.moves),
		"conflicts", len(cs.Failures),
		"rewrites", cs.full.rewrites,
		"followUps", len(cs.FollowUps),
	)
	return cs, nil
}

// followUps lists non-literal imports that may load a moving unit.
func followUps(idx *imports.Index, st *state) []FollowUp {
	if idx == nil {
		return nil
	}
	var out []FollowUp
	for _, d := range idx.Dynamic {
		var hit []string
		for _, name := range d.Candidates {
			if st.units[name] != nil {
				hit = append(hit, name)
			}
		}
		if len(hit) == 0 {
			continue
		}
		out = append(out, FollowUp{
			Code:  errors.ImportRewriteFailure,
			File:  st.final(d.File),
			Line:  d.Line,
			Expr:  d.Expr,
			Units: hit,
		})
	}
	return out
}

// Apply runs phase two. Units are written one at a time; on the first
// failure the run halts and already-completed units stay in place.
func (x *Executor) Apply(ctx context.Context, cs *Changeset) (*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.PlanCancelled, "execution cancelled before writing", err)
	}

	sum := newSummary(cs)
	done := make(map[string]bool)
	prev := x.layout(ctx, cs.Plan, cs.moves, done)

	for i, m := range cs.moves {
		if _, err := os.Stat(x.abs(m.from)); err != nil {
			sum.halt(cs.moves[i:], Failure{Unit: m.unit.Name, Code: errors.PreconditionFailed,
				Reason: fmt.Sprintf("source %s vanished during execution", m.from)})
			break
		}

		done[m.unit.Name] = true
		next := x.layout(ctx, cs.Plan, cs.moves, done)
		written, err := x.applyStep(prev, next, m)
		sum.FilesWritten = append(sum.FilesWritten, written...)
		if err != nil {
			x.logger.Error("Unit failed", "unit", m.unit.Name, "error", err.Error())
			sum.halt(cs.moves[i:], Failure{Unit: m.unit.Name, Code: errors.WriteFailed, Reason: err.Error()})
			break
		}

		x.logger.Info("Unit migrated", "unit", m.unit.Name, "level", string(m.unit.Level), "to", m.to)
		sum.Completed = append(sum.Completed, m.unit.Name)
		sum.Moves = append(sum.Moves, MoveRecord{Unit: m.unit.Name, Level: m.unit.Level, From: m.from, To: m.to})
		prev = next
	}

	sum.finish(prev)
	return sum, nil
}

// applyStep moves one unit's files and writes every file whose content
// differs between the two layouts.
func (x *Executor) applyStep(prev, next *state, m *move) ([]string, error) {
	var written []string

	if m.unit.IsDir() {
		if err := x.rename(m.from, m.to); err != nil {
			return written, err
		}
	} else {
		for _, f := range ownFiles(m.unit) {
			if err := x.rename(f, next.final(f)); err != nil {
				return written, err
			}
		}
	}

	keys := make(map[string]bool)
	for k := range prev.files {
		keys[k] = true
	}
	for k := range next.files {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		after, ok := next.files[key]
		if !ok {
			// reverted to the original content
			after, _ = x.src.Content(key)
		}
		if before, had := prev.files[key]; had && string(before) == string(after) {
			continue
		}
		if !ok && !prev.has(key) {
			continue
		}
		dest := next.final(key)
		if err := x.write(dest, after); err != nil {
			return written, err
		}
		written = append(written, dest)
	}
	return written, nil
}

func (x *Executor) abs(p string) string {
	return paths.JoinRepoPath(x.opts.ProjectRoot, p)
}

func (x *Executor) rename(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(x.abs(to)), 0o755); err != nil {
		return errors.New(errors.WriteFailed, "failed to create "+path.Dir(to), err)
	}
	if err := os.Rename(x.abs(from), x.abs(to)); err != nil {
		return errors.New(errors.WriteFailed, fmt.Sprintf("failed to move %s to %s", from, to), err)
	}
	return nil
}

func (x *Executor) write(p string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(x.abs(p)), 0o755); err != nil {
		return errors.New(errors.WriteFailed, "failed to create "+path.Dir(p), err)
	}
	if err := os.WriteFile(x.abs(p), content, 0o644); err != nil {
		return errors.New(errors.WriteFailed, "failed to write "+p, err)
	}
	return nil
}

// ownFiles lists every file a file unit owns.
func ownFiles(u *units.Unit) []string {
	set := map[string]bool{u.Path: true}
	for _, f := range u.Files {
		set[f] = true
	}
	for _, f := range []string{u.TestFile, u.DocsFile} {
		if f != "" {
			set[f] = true
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// tierDirPath is the canonical directory of a tier.
func tierDirPath(in *plan.Inputs, l tier.Level) string {
	return path.Join(in.Root, in.TierDirs.Dir(l))
}
