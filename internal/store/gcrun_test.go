package store

import (
	"context"
	"testing"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

func TestGCRunsAudit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok := &model.GCRun{
		StartedAt:  base,
		FinishedAt: base.Add(time.Second),
		GCResult:   model.GCResult{Recomputed: 3, Promoted: 1, Deleted: 1, PrunedTurns: 2},
	}
	if err := s.RecordGCRun(ctx, ok); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ok.ID == "" {
		t.Error("expected an id to be assigned")
	}

	failed := &model.GCRun{StartedAt: base, FinishedAt: base, FailedStep: "promote", Error: "disk full"}
	if err := s.RecordGCRun(ctx, failed); err != nil {
		t.Fatalf("record failed run: %v", err)
	}

	runs, err := s.GCRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != failed.ID || runs[0].FailedStep != "promote" || runs[0].Error != "disk full" {
		t.Errorf("newest run: %+v", runs[0])
	}
	if runs[1].Promoted != 1 || runs[1].PrunedTurns != 2 || runs[1].FailedStep != "" {
		t.Errorf("first run: %+v", runs[1])
	}
	if !runs[1].FinishedAt.Equal(base.Add(time.Second)) {
		t.Errorf("finished_at = %v", runs[1].FinishedAt)
	}

	st, _ := s.Stats(ctx)
	if st.GCRuns != 2 {
		t.Errorf("stats gc_runs = %d", st.GCRuns)
	}
}
