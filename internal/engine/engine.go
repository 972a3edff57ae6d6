// Package engine coordinates one strata run: scan, index, classify, detect
// cycles, build the plan, resolve approval, execute, verify and journal.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"strata/internal/approval"
	"strata/internal/classify"
	"strata/internal/config"
	"strata/internal/errors"
	"strata/internal/execute"
	"strata/internal/imports"
	"strata/internal/plan"
	"strata/internal/scanner"
	"strata/internal/signals"
	"strata/internal/storage"
	"strata/internal/tier"
	"strata/internal/verify"
)

// Options control one invocation.
type Options struct {
	// IncludeNonStandard classifies units outside the conventional root
	// instead of leaving them for confirmation.
	IncludeNonStandard bool

	DryRun     bool
	NoDocs     bool
	SkipVerify bool
}

// Engine is the central coordinator for one project.
type Engine struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	tools  verify.Toolchain
}

// New creates an engine for the project at root.
func New(root string, cfg *config.Config, logger *slog.Logger) *Engine {
	timeout := time.Duration(cfg.Verify.TimeoutSeconds) * time.Second
	return &Engine{
		root:   root,
		cfg:    cfg,
		logger: logger,
		tools:  verify.NewProjectToolchain(root, timeout),
	}
}

// SetToolchain replaces the toolchain used for verification.
func (e *Engine) SetToolchain(t verify.Toolchain) {
	e.tools = t
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// analysis is everything derived from one snapshot.
type analysis struct {
	scan     *scanner.Result
	resolver *imports.Resolver
	plan     *plan.Plan
}

// Plan analyzes the project and returns version 1 of the refactoring plan.
// Nothing is written.
func (e *Engine) Plan(ctx context.Context, opts Options) (*plan.Plan, error) {
	a, err := e.analyze(ctx, opts)
	if err != nil {
		return nil, err
	}
	return a.plan, nil
}

func (e *Engine) analyze(ctx context.Context, opts Options) (*analysis, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "invalid configuration", err)
	}

	sopts := scanner.OptionsFromConfig(e.root, e.cfg)
	sopts.IncludeNonStandard = opts.IncludeNonStandard
	res, err := scanner.New(sopts, e.logger).Scan(ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := imports.LoadResolver(ctx, e.root, e.cfg.Aliases, e.cfg.Scan.Extensions)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to load path aliases", err)
	}

	idx, err := imports.NewIndexer(resolver, e.cfg.Aggregation.FileName, e.cfg.Scan.Workers, e.logger).
		Build(ctx, res.Snapshot, res.Units, res.Residents)
	if err != nil {
		return nil, err
	}

	inputs, err := e.facts(ctx, res, idx)
	if err != nil {
		return nil, err
	}

	placed := make(map[string]tier.Level, len(res.Residents))
	for _, u := range res.Residents {
		placed[u.Name] = u.Level
	}

	results := classify.New(e.cfg.Classify, e.cfg.Tiers.RoutingDirs, e.logger).ClassifyAll(inputs, placed)
	cycles := idx.Graph.DetectCycles()
	if len(cycles) > 0 {
		e.logger.Warn("Circular dependencies found", "count", len(cycles))
	}

	pins, err := config.LoadPins(e.root)
	if err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to load level pins", err)
	}

	p := plan.Build(&plan.Inputs{
		Root:            sopts.Root,
		TierDirs:        sopts.TierDirs,
		AggregationFile: e.cfg.Aggregation.FileName,
		Units:           res.Units,
		ScanWarnings:    res.Warnings,
		Index:           idx,
		Results:         results,
		Cycles:          cycles,
		Placed:          placed,
		Pins:            pins,
	})

	e.logger.Info("Plan built",
		"plan", p.ID,
		"units", len(p.Units),
		"warnings", len(p.Warnings),
		"affectedFiles", p.AffectedFileCount,
	)
	return &analysis{scan: res, resolver: resolver, plan: p}, nil
}

// facts extracts the structural signals of every unit's primary file.
func (e *Engine) facts(ctx context.Context, res *scanner.Result, idx *imports.Index) ([]*classify.Input, error) {
	ext := signals.NewExtractor(signals.Patterns{
		TransientStateNames: e.cfg.Classify.TransientStateNames,
		FetchCalls:          e.cfg.Classify.FetchCalls,
		SharedStateCalls:    e.cfg.Classify.SharedStateCalls,
		NavigationCalls:     e.cfg.Classify.NavigationCalls,
		RouteReadCalls:      e.cfg.Classify.RouteReadCalls,
		EffectCalls:         e.cfg.Classify.EffectCalls,
	})

	inputs := make([]*classify.Input, len(res.Units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.cfg.Scan.Workers, 1))
	for i, u := range res.Units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, _ := res.Snapshot.Content(u.Path)
			inputs[i] = &classify.Input{
				Unit:  u,
				Facts: ext.Extract(gctx, u.Path, content),
				Deps:  idx.Outgoing[u.Name],
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to extract unit facts: %w", err)
	}
	return inputs, nil
}

// Run analyzes the project, presents the plan on ch until it is approved or
// cancelled, then executes it. Cancellation returns the PLAN_CANCELLED error
// and leaves the tree untouched.
func (e *Engine) Run(ctx context.Context, opts Options, ch approval.Channel) (*execute.Summary, error) {
	a, err := e.analyze(ctx, opts)
	if err != nil {
		return nil, err
	}

	approved := a.plan
	if a.plan.IsEmpty() {
		e.logger.Info("Nothing to migrate", "plan", a.plan.ID)
		if approved, err = a.plan.Accept(); err != nil {
			return nil, err
		}
	} else if approved, err = approval.Resolve(ctx, ch, a.plan, e.logger); err != nil {
		return nil, err
	}

	x := execute.New(execute.Options{
		ProjectRoot:     e.root,
		PreferAggregate: e.cfg.Aggregation.PreferAggregate,
		UpdateDocs:      e.cfg.Aggregation.GenerateDocs && !opts.NoDocs,
	}, a.resolver, a.scan.Snapshot, e.logger)

	cs, err := x.Prepare(ctx, approved)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return execute.DryRun(cs)
	}

	sum, err := x.Apply(ctx, cs)
	if err != nil {
		return nil, err
	}

	if !opts.SkipVerify && len(sum.Moves) > 0 {
		sum.Verification = e.Verify(ctx, VerifyContext(sum))
	}

	if e.cfg.Journal.Enabled && len(sum.Moves) > 0 {
		if err := e.record(ctx, sum); err != nil {
			e.logger.Error("Failed to journal run", "run", sum.RunID, "error", err.Error())
		}
	}
	return sum, nil
}

// Verify runs the configured verification commands against the current tree.
func (e *Engine) Verify(ctx context.Context, vc verify.Context) *verify.Report {
	return verify.New(e.cfg.Verify, e.tools, e.logger).Verify(ctx, vc)
}

// VerifyContext extracts what a run changed for verification hints.
func VerifyContext(sum *execute.Summary) verify.Context {
	var vc verify.Context
	for _, m := range sum.Moves {
		vc.Moves = append(vc.Moves, verify.Move{Unit: m.Unit, From: m.From, To: m.To})
	}
	for _, f := range sum.FollowUps {
		vc.FollowUpFiles = append(vc.FollowUpFiles, f.File)
	}
	return vc
}

// Outcome names a run's result for the journal.
func Outcome(sum *execute.Summary) string {
	if sum.Verification != nil {
		if sum.Verification.Outcome == verify.FullSuccess && !sum.Succeeded() {
			return string(verify.PartialSuccess)
		}
		return string(sum.Verification.Outcome)
	}
	if sum.Succeeded() {
		return string(verify.FullSuccess)
	}
	return string(verify.PartialSuccess)
}

// OpenJournal opens the configured journal database.
func (e *Engine) OpenJournal() (*storage.Journal, func() error, error) {
	p := e.cfg.Journal.Path
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.root, p)
	}
	db, err := storage.Open(p, e.logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewJournal(db), db.Close, nil
}

func (e *Engine) record(ctx context.Context, sum *execute.Summary) error {
	j, closeFn, err := e.OpenJournal()
	if err != nil {
		return err
	}
	defer closeFn()

	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	run := &storage.Run{
		ID:          sum.RunID,
		PlanID:      sum.PlanID,
		PlanVersion: sum.PlanVersion,
		StartedAt:   sum.StartedAt,
		FinishedAt:  sum.FinishedAt,
		Outcome:     Outcome(sum),
		Completed:   len(sum.Completed),
		Failed:      len(sum.Failed),
		Rewrites:    sum.Rewrites,
		SummaryJSON: string(data),
	}
	moves := make([]storage.Move, 0, len(sum.Moves))
	for _, m := range sum.Moves {
		moves = append(moves, storage.Move{Unit: m.Unit, Level: string(m.Level), From: m.From, To: m.To})
	}
	return j.Record(ctx, run, moves)
}

// LastRunContext rebuilds verification hints from the most recent journaled
// run. It returns an empty context when the journal is disabled or empty.
func (e *Engine) LastRunContext(ctx context.Context) verify.Context {
	if !e.cfg.Journal.Enabled {
		return verify.Context{}
	}
	j, closeFn, err := e.OpenJournal()
	if err != nil {
		e.logger.Debug("Journal unavailable", "error", err.Error())
		return verify.Context{}
	}
	defer closeFn()

	run, err := j.Run(ctx, "")
	if err != nil {
		return verify.Context{}
	}
	var sum execute.Summary
	if err := json.Unmarshal([]byte(run.SummaryJSON), &sum); err != nil {
		e.logger.Warn("Journaled summary unreadable", "run", run.ID, "error", err.Error())
		return verify.Context{}
	}
	return VerifyContext(&sum)
}
