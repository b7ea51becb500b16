package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/freeeve/techsim/internal/model"
)

const runColumns = `id, name, creator_id, status, seed, shuffle, recolor, cast_format, events_format,
	cast_doc, events_doc, cycle, cycles_run, auto_interval, next_cycle_at, winner, fail_reason,
	created_at, readied_at, finished_at`

// RunRepo handles run database operations.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.Run, error) {
	var r model.Run
	err := s.Scan(&r.ID, &r.Name, &r.CreatorID, &r.Status, &r.Seed, &r.Shuffle, &r.Recolor,
		&r.CastFormat, &r.EventsFormat, &r.CastDoc, &r.EventsDoc, &r.Cycle, &r.CyclesRun,
		&r.AutoInterval, &r.NextCycleAt, &r.Winner, &r.FailReason,
		&r.CreatedAt, &r.ReadiedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new run. The caller assigns the ID.
func (r *RunRepo) Create(ctx context.Context, run *model.Run) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO runs (id, name, creator_id, status, cast_format, events_format, cast_doc, events_doc, cycle)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		run.ID, run.Name, run.CreatorID, run.Status, run.CastFormat, run.EventsFormat, run.CastDoc, run.EventsDoc, run.Cycle,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FindByID returns a run, or nil if it does not exist.
func (r *RunRepo) FindByID(ctx context.Context, id string) (*model.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs.
func (r *RunRepo) List(ctx context.Context) ([]model.Run, error) {
	return r.query(ctx, "list runs", `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT 50`)
}

// ListActive returns every run that is still computing rounds.
func (r *RunRepo) ListActive(ctx context.Context) ([]model.Run, error) {
	return r.query(ctx, "list active runs",
		`SELECT `+runColumns+` FROM runs WHERE status = 'active' ORDER BY created_at`)
}

// ListDue returns active runs whose next automatic round is due.
func (r *RunRepo) ListDue(ctx context.Context, now time.Time) ([]model.Run, error) {
	return r.query(ctx, "list due runs",
		`SELECT `+runColumns+` FROM runs
		 WHERE status = 'active' AND next_cycle_at IS NOT NULL AND next_cycle_at <= $1
		 ORDER BY next_cycle_at`, now)
}

func (r *RunRepo) query(ctx context.Context, op, q string, args ...any) ([]model.Run, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// MarkReady records the seed and options used to ready a run.
func (r *RunRepo) MarkReady(ctx context.Context, id, seed string, shuffle, recolor bool, autoInterval string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = 'active', seed = $2, shuffle = $3, recolor = $4, auto_interval = $5,
		        cycle = 0, readied_at = now()
		 WHERE id = $1`,
		id, seed, shuffle, recolor, autoInterval)
	if err != nil {
		return fmt.Errorf("mark run ready: %w", err)
	}
	return nil
}

// UpdateProgress stores the round counter after a computed round.
func (r *RunRepo) UpdateProgress(ctx context.Context, id string, cycle, cyclesRun int, nextCycleAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET cycle = $2, cycles_run = $3, next_cycle_at = $4 WHERE id = $1`,
		id, cycle, cyclesRun, nextCycleAt)
	if err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return nil
}

// SetFinished marks a run finished with its winning district, if any.
func (r *RunRepo) SetFinished(ctx context.Context, id, winner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = 'finished', winner = $2, cycle = -1, next_cycle_at = NULL, finished_at = now()
		 WHERE id = $1`,
		id, winner)
	if err != nil {
		return fmt.Errorf("set run finished: %w", err)
	}
	return nil
}

// SetFailed marks a run failed.
func (r *RunRepo) SetFailed(ctx context.Context, id, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = 'failed', fail_reason = $2, next_cycle_at = NULL, finished_at = now()
		 WHERE id = $1`,
		id, reason)
	if err != nil {
		return fmt.Errorf("set run failed: %w", err)
	}
	return nil
}

// Delete removes a run and its rounds.
func (r *RunRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
