package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// RecordGCRun appends a maintenance pass to the audit table, assigning a
// ULID when run.ID is empty.
func (s *SQLiteStore) RecordGCRun(ctx context.Context, run *model.GCRun) error {
	if run.ID == "" {
		run.ID = s.newID()
	}
	var step, msg *string
	if run.FailedStep != "" {
		step = &run.FailedStep
	}
	if run.Error != "" {
		msg = &run.Error
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gc_runs (id, started_at, finished_at, recomputed, promoted, deleted, pruned_turns, failed_step, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Recomputed, run.Promoted, run.Deleted, run.PrunedTurns, step, msg)
	if err != nil {
		return fmt.Errorf("record gc run: %w", err)
	}
	return nil
}

// GCRuns returns the most recent maintenance passes, newest first.
func (s *SQLiteStore) GCRuns(ctx context.Context, limit int) ([]model.GCRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, recomputed, promoted, deleted, pruned_turns, failed_step, error
		FROM gc_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.GCRun{}
	for rows.Next() {
		var r model.GCRun
		var started, finished string
		var step, msg sql.NullString
		err := rows.Scan(&r.ID, &started, &finished,
			&r.Recomputed, &r.Promoted, &r.Deleted, &r.PrunedTurns, &step, &msg)
		if err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		r.FailedStep = step.String
		r.Error = msg.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
