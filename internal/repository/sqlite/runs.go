package sqlite

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

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.Run, error) {
	var (
		r                       model.Run
		created                 string
		next, readied, finished sql.NullString
	)
	err := s.Scan(&r.ID, &r.Name, &r.CreatorID, &r.Status, &r.Seed, &r.Shuffle, &r.Recolor,
		&r.CastFormat, &r.EventsFormat, &r.CastDoc, &r.EventsDoc, &r.Cycle, &r.CyclesRun,
		&r.AutoInterval, &next, &r.Winner, &r.FailReason, &created, &readied, &finished)
	if err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if r.NextCycleAt, err = parseTimePtr(next); err != nil {
		return nil, err
	}
	if r.ReadiedAt, err = parseTimePtr(readied); err != nil {
		return nil, err
	}
	if r.FinishedAt, err = parseTimePtr(finished); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new run.
func (s *Store) Create(ctx context.Context, run *model.Run) error {
	run.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, creator_id, status, cast_format, events_format, cast_doc, events_doc, cycle, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.CreatorID, run.Status, run.CastFormat, run.EventsFormat,
		run.CastDoc, run.EventsDoc, run.Cycle, formatTime(run.CreatedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FindByID returns a run, or nil if it does not exist.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs.
func (s *Store) List(ctx context.Context) ([]model.Run, error) {
	return s.query(ctx, "list runs", `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT 50`)
}

// ListActive returns every run that is still computing rounds.
func (s *Store) ListActive(ctx context.Context) ([]model.Run, error) {
	return s.query(ctx, "list active runs", `SELECT `+runColumns+` FROM runs WHERE status = 'active' ORDER BY created_at`)
}

// ListDue returns active runs whose next automatic round is due.
// RFC 3339 UTC strings order the same as the instants they encode.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]model.Run, error) {
	return s.query(ctx, "list due runs",
		`SELECT `+runColumns+` FROM runs
		 WHERE status = 'active' AND next_cycle_at IS NOT NULL AND next_cycle_at <= ?
		 ORDER BY next_cycle_at`, formatTime(now))
}

func (s *Store) query(ctx context.Context, op, q string, args ...any) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
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
func (s *Store) MarkReady(ctx context.Context, id, seed string, shuffle, recolor bool, autoInterval string) error {
	return s.exec(ctx, "mark run ready",
		`UPDATE runs SET status = 'active', seed = ?, shuffle = ?, recolor = ?, auto_interval = ?, cycle = 0, readied_at = ?
		 WHERE id = ?`,
		seed, shuffle, recolor, autoInterval, formatTime(s.now()), id)
}

// UpdateProgress stores the round counter after a computed round.
func (s *Store) UpdateProgress(ctx context.Context, id string, cycle, cyclesRun int, nextCycleAt *time.Time) error {
	return s.exec(ctx, "update run progress",
		`UPDATE runs SET cycle = ?, cycles_run = ?, next_cycle_at = ? WHERE id = ?`,
		cycle, cyclesRun, formatTimePtr(nextCycleAt), id)
}

// SetFinished marks a run finished with its winning district, if any.
func (s *Store) SetFinished(ctx context.Context, id, winner string) error {
	return s.exec(ctx, "set run finished",
		`UPDATE runs SET status = 'finished', winner = ?, cycle = -1, next_cycle_at = NULL, finished_at = ? WHERE id = ?`,
		winner, formatTime(s.now()), id)
}

// SetFailed marks a run failed.
func (s *Store) SetFailed(ctx context.Context, id, reason string) error {
	return s.exec(ctx, "set run failed",
		`UPDATE runs SET status = 'failed', fail_reason = ?, next_cycle_at = NULL, finished_at = ? WHERE id = ?`,
		reason, formatTime(s.now()), id)
}

// Delete removes a run and its rounds.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, "delete run", `DELETE FROM runs WHERE id = ?`, id)
}

func (s *Store) exec(ctx context.Context, op, q string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
