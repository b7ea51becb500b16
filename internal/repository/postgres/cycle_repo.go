package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/techsim/internal/model"
)

// CycleRepo handles round history.
type CycleRepo struct {
	db *sql.DB
}

// NewCycleRepo creates a CycleRepo.
func NewCycleRepo(db *sql.DB) *CycleRepo {
	return &CycleRepo{db: db}
}

// SaveCycle stores a computed round. Saving the same index twice overwrites it.
func (r *CycleRepo) SaveCycle(ctx context.Context, rec *model.CycleRecord) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cycles (run_id, cycle_index, cycle_name, narration, deaths, complete)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id, cycle_index) DO UPDATE
		 SET cycle_name = EXCLUDED.cycle_name, narration = EXCLUDED.narration,
		     deaths = EXCLUDED.deaths, complete = EXCLUDED.complete
		 RETURNING created_at`,
		rec.RunID, rec.Index, rec.CycleName, []byte(rec.Narration), rec.Deaths, rec.Complete,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	return nil
}

// ListCycles returns a run's rounds in order.
func (r *CycleRepo) ListCycles(ctx context.Context, runID string) ([]model.CycleRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, cycle_index, cycle_name, narration, deaths, complete, created_at
		 FROM cycles WHERE run_id = $1 ORDER BY cycle_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var recs []model.CycleRecord
	for rows.Next() {
		var rec model.CycleRecord
		var narration []byte
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.CycleName, &narration, &rec.Deaths, &rec.Complete, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		rec.Narration = narration
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
