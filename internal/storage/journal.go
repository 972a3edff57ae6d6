package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"strata/internal/errors"
)

// Run is one journaled migration run.
type Run struct {
	ID          string
	PlanID      string
	PlanVersion int
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcome     string
	Completed   int
	Failed      int
	Rewrites    int
	SummaryJSON string
}

// Move is one relocation applied by a run.
type Move struct {
	Unit  string
	Level string
	From  string
	To    string
}

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Journal records runs and their moves.
type Journal struct {
	db *DB
}

// NewJournal creates a journal on an open database.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

// Record stores a run and its moves in one transaction.
func (j *Journal) Record(ctx context.Context, run *Run, moves []Move) error {
	return j.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, plan_id, plan_version, started_at, finished_at, outcome, completed, failed, rewrites, summary_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.PlanID, run.PlanVersion,
			run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
			run.Outcome, run.Completed, run.Failed, run.Rewrites, run.SummaryJSON)
		if err != nil {
			return fmt.Errorf("failed to record run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO moves (run_id, seq, unit, level, from_path, to_path) VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, m := range moves {
			if _, err := stmt.ExecContext(ctx, run.ID, i, m.Unit, m.Level, m.From, m.To); err != nil {
				return fmt.Errorf("failed to record move %s: %w", m.Unit, err)
			}
		}
		j.db.logger.Debug("Run journaled", "run", run.ID, "moves", len(moves))
		return nil
	})
}

const runColumns = `id, plan_id, plan_version, started_at, finished_at, outcome, completed, failed, rewrites, summary_json`

// Runs lists the most recent runs first. limit <= 0 lists every run.
func (j *Journal) Runs(ctx context.Context, limit int) ([]*Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run fetches one run. An empty id fetches the most recent one.
func (j *Journal) Run(ctx context.Context, id string) (*Run, error) {
	var row *sql.Row
	if id == "" {
		row = j.db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT 1`)
	} else {
		row = j.db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	}
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		if id == "" {
			return nil, errors.New(errors.PreconditionFailed, "journal has no runs", nil)
		}
		return nil, errors.Newf(errors.PreconditionFailed, "run %s not found in journal", id)
	}
	return r, err
}

// Moves lists a run's moves in application order.
func (j *Journal) Moves(ctx context.Context, runID string) ([]Move, error) {
	rows, err := j.db.conn.QueryContext(ctx, `
		SELECT unit, level, from_path, to_path FROM moves WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Move
	for rows.Next() {
		var m Move
		if err := rows.Scan(&m.Unit, &m.Level, &m.From, &m.To); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReverseMoves returns the relocations that undo a run: its moves in reverse
// order with source and destination swapped.
func (j *Journal) ReverseMoves(ctx context.Context, runID string) ([]Move, error) {
	moves, err := j.Moves(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := make([]Move, 0, len(moves))
	for i := len(moves) - 1; i >= 0; i-- {
		m := moves[i]
		out = append(out, Move{Unit: m.Unit, Level: m.Level, From: m.To, To: m.From})
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var started, finished string
	if err := s.Scan(&r.ID, &r.PlanID, &r.PlanVersion, &started, &finished, &r.Outcome,
		&r.Completed, &r.Failed, &r.Rewrites, &r.SummaryJSON); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, started)
	r.FinishedAt, _ = time.Parse(timeLayout, finished)
	return &r, nil
}
