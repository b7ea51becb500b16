package sqlite

import (
	"context"
	"fmt"

	"github.com/freeeve/techsim/internal/model"
)

// SaveCycle stores a computed round. Saving the same index twice overwrites it.
func (s *Store) SaveCycle(ctx context.Context, rec *model.CycleRecord) error {
	rec.CreatedAt = s.now().UTC()
	return s.exec(ctx, "save cycle",
		`INSERT INTO cycles (run_id, cycle_index, cycle_name, narration, deaths, complete, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, cycle_index) DO UPDATE
		 SET cycle_name = excluded.cycle_name, narration = excluded.narration,
		     deaths = excluded.deaths, complete = excluded.complete`,
		rec.RunID, rec.Index, rec.CycleName, string(rec.Narration), rec.Deaths, rec.Complete, formatTime(rec.CreatedAt))
}

// ListCycles returns a run's rounds in order.
func (s *Store) ListCycles(ctx context.Context, runID string) ([]model.CycleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, cycle_index, cycle_name, narration, deaths, complete, created_at
		 FROM cycles WHERE run_id = ? ORDER BY cycle_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var recs []model.CycleRecord
	for rows.Next() {
		var (
			rec       model.CycleRecord
			narration string
			created   string
		)
		if err := rows.Scan(&rec.RunID, &rec.Index, &rec.CycleName, &narration, &rec.Deaths, &rec.Complete, &created); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		rec.Narration = []byte(narration)
		if rec.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
