package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/score"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

// Maintenance steps, in the order a pass runs them.
const (
	StepRecompute   = "recompute"
	StepPromote     = "promote"
	StepDeleteStale = "delete_stale"
	StepCapacity    = "capacity"
	StepPrune       = "prune_short_term"
)

// StepError reports the maintenance step that aborted a pass.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("gc step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// GC runs one maintenance pass in a single transaction: recompute scores,
// promote, delete stale, enforce mid capacity, prune short-term turns. A
// failing step rolls back the whole pass. Every pass is recorded in the
// gc_runs audit table, including failed ones.
func (e *Engine) GC(ctx context.Context) (*model.GCRun, error) {
	e.gcMu.Lock()
	defer e.gcMu.Unlock()

	cfg, err := e.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	run := &model.GCRun{StartedAt: e.now()}
	now := run.StartedAt

	var res model.GCResult
	err = e.store.Update(ctx, func(tx store.Tx) error {
		res = model.GCResult{}
		steps := []struct {
			name string
			dst  *int
			fn   func() (int, error)
		}{
			{StepRecompute, &res.Recomputed, func() (int, error) { return recompute(ctx, tx, cfg, now) }},
			{StepPromote, &res.Promoted, func() (int, error) { return promote(ctx, tx, cfg, now) }},
			{StepDeleteStale, &res.Deleted, func() (int, error) { return deleteStale(ctx, tx, cfg, now) }},
			{StepCapacity, &res.Deleted, func() (int, error) { return enforceCapacity(ctx, tx, cfg) }},
			{StepPrune, &res.PrunedTurns, func() (int, error) { return pruneShortTerm(ctx, tx, cfg) }},
		}
		for _, step := range steps {
			n, err := step.fn()
			if err != nil {
				return &StepError{Step: step.name, Err: err}
			}
			*step.dst += n
		}
		return nil
	})

	run.FinishedAt = e.now()
	if err != nil {
		var se *StepError
		if errors.As(err, &se) {
			run.FailedStep = se.Step
		}
		run.Error = err.Error()
		logger.Error("gc failed", "step", run.FailedStep, "error", err)
		e.record(ctx, run)
		return nil, fmt.Errorf("gc: %w", err)
	}

	run.GCResult = res
	logger.Info("gc complete",
		"recomputed", res.Recomputed, "promoted", res.Promoted,
		"deleted", res.Deleted, "pruned_turns", res.PrunedTurns)
	e.record(ctx, run)
	return run, nil
}

func (e *Engine) record(ctx context.Context, run *model.GCRun) {
	if err := e.store.RecordGCRun(ctx, run); err != nil {
		logger.Warn("gc run not recorded", "error", err)
	}
}

func recompute(ctx context.Context, tx store.Tx, cfg *config.Config, now time.Time) (int, error) {
	memories, err := tx.ScanActiveMemories(ctx, "")
	if err != nil {
		return 0, err
	}
	for i := range memories {
		m := &memories[i]
		if err := tx.SetMemoryScore(ctx, m.ID, score.Score(m, cfg.Scoring, now)); err != nil {
			return 0, err
		}
	}
	return len(memories), nil
}

// promote moves mid memories with enough hits and a recent last-seen time to
// the long tier. A memory that was never seen is not recent.
func promote(ctx context.Context, tx store.Tx, cfg *config.Config, now time.Time) (int, error) {
	memories, err := tx.ScanActiveMemories(ctx, model.TierMid)
	if err != nil {
		return 0, err
	}
	promoted := 0
	for _, m := range memories {
		if m.Hits < cfg.Mid.PromoteHits || m.LastSeenAt == nil {
			continue
		}
		if score.AgeDays(*m.LastSeenAt, now) > cfg.Mid.PromoteMaxAgeDays {
			continue
		}
		if err := tx.SetMemoryTier(ctx, m.ID, model.TierLong); err != nil {
			return 0, err
		}
		promoted++
	}
	return promoted, nil
}

func deleteStale(ctx context.Context, tx store.Tx, cfg *config.Config, now time.Time) (int, error) {
	memories, err := tx.ScanActiveMemories(ctx, model.TierMid)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, m := range memories {
		lowScore := m.Score < cfg.Mid.DeleteScoreThreshold
		tooOld := score.AgeDays(m.Recency(), now) > cfg.Mid.DemoteAgeDays
		if !lowScore && !tooOld {
			continue
		}
		if err := tx.DeleteMemory(ctx, m.ID); err != nil {
			return 0, err
		}
		deleted++
	}
	return deleted, nil
}

// enforceCapacity deletes the lowest-scoring mid memories, oldest id first
// on equal scores, until the tier fits its capacity.
func enforceCapacity(ctx context.Context, tx store.Tx, cfg *config.Config) (int, error) {
	memories, err := tx.ScanActiveMemories(ctx, model.TierMid)
	if err != nil {
		return 0, err
	}
	overflow := len(memories) - cfg.Mid.Capacity
	if overflow <= 0 {
		return 0, nil
	}

	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].Score != memories[j].Score {
			return memories[i].Score < memories[j].Score
		}
		return memories[i].ID < memories[j].ID
	})
	for _, m := range memories[:overflow] {
		if err := tx.DeleteMemory(ctx, m.ID); err != nil {
			return 0, err
		}
	}
	return overflow, nil
}

// pruneShortTerm keeps the most recent short_term.size turns of each session.
func pruneShortTerm(ctx context.Context, tx store.Tx, cfg *config.Config) (int, error) {
	sessions, err := tx.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, session := range sessions {
		turns, err := tx.ScanTurns(ctx, session)
		if err != nil {
			return 0, err
		}
		if len(turns) <= cfg.ShortTerm.Size {
			continue
		}
		stale := turns[cfg.ShortTerm.Size:]
		ids := make([]int64, len(stale))
		for i, t := range stale {
			ids[i] = t.ID
		}
		if err := tx.DeleteTurns(ctx, ids); err != nil {
			return 0, fmt.Errorf("session %s: %w", session, err)
		}
		pruned += len(ids)
	}
	return pruned, nil
}
