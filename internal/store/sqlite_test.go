package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

var base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertMemory(t *testing.T, s *SQLiteStore, p MemoryParams) int64 {
	t.Helper()
	var id int64
	err := s.Update(context.Background(), func(tx Tx) error {
		var err error
		id, err = tx.InsertMemory(context.Background(), p)
		return err
	})
	if err != nil {
		t.Fatalf("insert memory: %v", err)
	}
	return id
}

func insertTurn(t *testing.T, s *SQLiteStore, p TurnParams) int64 {
	t.Helper()
	var id int64
	err := s.Update(context.Background(), func(tx Tx) error {
		var err error
		id, err = tx.InsertTurn(context.Background(), p)
		return err
	})
	if err != nil {
		t.Fatalf("insert turn: %v", err)
	}
	return id
}

func TestInsertAndGetMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seen := base.Add(time.Hour)
	id := insertMemory(t, s, MemoryParams{
		Content: "User likes jazz", Importance: 1, Tags: []string{"preference"},
		Hits: 2, CreatedAt: base, LastSeenAt: &seen,
	})

	m, err := s.GetMemory(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Tier != model.TierMid || m.Status != model.StatusActive {
		t.Errorf("defaults: tier=%s status=%s", m.Tier, m.Status)
	}
	if m.Content != "User likes jazz" || m.Hits != 2 || m.Importance != 1 {
		t.Errorf("unexpected memory: %+v", m)
	}
	if !m.CreatedAt.Equal(base) {
		t.Errorf("created_at = %v, want %v", m.CreatedAt, base)
	}
	if m.LastSeenAt == nil || !m.LastSeenAt.Equal(seen) {
		t.Errorf("last_seen_at = %v, want %v", m.LastSeenAt, seen)
	}
	if len(m.Tags) != 1 || m.Tags[0] != "preference" {
		t.Errorf("tags = %v", m.Tags)
	}
}

func TestInsertMemoryValidation(t *testing.T) {
	s := newTestStore(t)
	cases := []MemoryParams{
		{Content: "  "},
		{Content: "x", Importance: 2},
		{Content: "x", Tier: "short"},
		{Content: "x", Status: "gone"},
		{Content: "x", Hits: -1},
	}
	for _, p := range cases {
		err := s.Update(context.Background(), func(tx Tx) error {
			_, err := tx.InsertMemory(context.Background(), p)
			return err
		})
		if !errors.Is(err, model.ErrInvalid) {
			t.Errorf("%+v: expected ErrInvalid, got %v", p, err)
		}
	}
}

func TestGetMemoryNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetMemory(context.Background(), 99); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCorruptTagsReported(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := insertMemory(t, s, MemoryParams{Content: "likes jazz", Tags: []string{"music"}, CreatedAt: base})

	if _, err := s.db.ExecContext(ctx, `UPDATE memories SET tags = '{not json' WHERE id = ?`, id); err != nil {
		t.Fatalf("corrupt tags: %v", err)
	}

	_, err := s.GetMemory(ctx, id)
	if err == nil || errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !strings.Contains(err.Error(), "decode tags") {
		t.Errorf("error = %v", err)
	}

	err = s.View(ctx, func(tx Tx) error {
		_, err := tx.ScanActiveMemories(ctx, model.TierMid)
		return err
	})
	if err == nil {
		t.Error("scan should report corrupt tags")
	}
}

func TestTouchMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := insertMemory(t, s, MemoryParams{Content: "fact", CreatedAt: base})

	at := base.Add(48 * time.Hour)
	err := s.Update(ctx, func(tx Tx) error { return tx.TouchMemory(ctx, id, at) })
	if err != nil {
		t.Fatalf("touch: %v", err)
	}
	m, _ := s.GetMemory(ctx, id)
	if m.Hits != 1 || m.LastSeenAt == nil || !m.LastSeenAt.Equal(at) {
		t.Errorf("after touch: hits=%d last_seen=%v", m.Hits, m.LastSeenAt)
	}

	err = s.Update(ctx, func(tx Tx) error { return tx.TouchMemory(ctx, 404, at) })
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("touch missing: expected ErrNotFound, got %v", err)
	}
}

func TestSetMemoryTierIsOneWay(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := insertMemory(t, s, MemoryParams{Content: "fact", CreatedAt: base})

	if err := s.Update(ctx, func(tx Tx) error { return tx.SetMemoryTier(ctx, id, model.TierLong) }); err != nil {
		t.Fatalf("promote: %v", err)
	}
	err := s.Update(ctx, func(tx Tx) error { return tx.SetMemoryTier(ctx, id, model.TierMid) })
	if !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("demote: expected ErrInvalid, got %v", err)
	}
	m, _ := s.GetMemory(ctx, id)
	if m.Tier != model.TierLong {
		t.Errorf("tier = %s, want long", m.Tier)
	}
}

func TestDeleteMemoryCascadesLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	turn := insertTurn(t, s, TurnParams{SessionID: "s1", Role: model.RoleUser, Text: "hi", TS: base})
	id := insertMemory(t, s, MemoryParams{Content: "fact", CreatedAt: base})

	err := s.Update(ctx, func(tx Tx) error { return tx.UpsertLink(ctx, id, turn, model.ReasonExtracted) })
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := s.Update(ctx, func(tx Tx) error { return tx.DeleteMemory(ctx, id) }); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM memory_links`).Scan(&n)
	if n != 0 {
		t.Errorf("expected links removed, found %d", n)
	}
	err = s.Update(ctx, func(tx Tx) error { return tx.DeleteMemory(ctx, id) })
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx Tx) error {
		if _, err := tx.InsertTurn(ctx, TurnParams{SessionID: "s1", Role: model.RoleUser, Text: "a", TS: base}); err != nil {
			return err
		}
		if _, err := tx.InsertMemory(ctx, MemoryParams{Content: "b", CreatedAt: base}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var turns, memories int
	s.db.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&turns)
	s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&memories)
	if turns != 0 || memories != 0 {
		t.Errorf("expected nothing committed, got %d turns %d memories", turns, memories)
	}
}

func TestScanTurnsOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	a := insertTurn(t, s, TurnParams{SessionID: "s1", Role: model.RoleUser, Text: "a", TS: base})
	b := insertTurn(t, s, TurnParams{SessionID: "s1", Role: model.RoleAssistant, Text: "b", TS: base})
	c := insertTurn(t, s, TurnParams{SessionID: "s1", Role: model.RoleUser, Text: "c", TS: base.Add(time.Second)})
	insertTurn(t, s, TurnParams{SessionID: "s2", Role: model.RoleUser, Text: "other", TS: base})

	var turns []model.Turn
	err := s.View(ctx, func(tx Tx) error {
		var err error
		turns, err = tx.ScanTurns(ctx, "s1")
		return err
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []int64{c, b, a}
	if len(turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(turns), len(want))
	}
	for i, id := range want {
		if turns[i].ID != id {
			t.Errorf("turns[%d] = %d, want %d", i, turns[i].ID, id)
		}
	}

	if err := s.Update(ctx, func(tx Tx) error { return tx.DeleteTurns(ctx, []int64{a, b}) }); err != nil {
		t.Fatalf("delete turns: %v", err)
	}
	var sessions []string
	s.View(ctx, func(tx Tx) error {
		turns, _ = tx.ScanTurns(ctx, "s1")
		sessions, _ = tx.ListSessions(ctx)
		return nil
	})
	if len(turns) != 1 || turns[0].ID != c {
		t.Errorf("after delete: %+v", turns)
	}
	if len(sessions) != 2 || sessions[0] != "s1" || sessions[1] != "s2" {
		t.Errorf("sessions = %v", sessions)
	}
}

func TestInsertTurnValidation(t *testing.T) {
	s := newTestStore(t)
	for _, p := range []TurnParams{
		{SessionID: "", Role: model.RoleUser, Text: "x"},
		{SessionID: "s", Role: "system", Text: "x"},
	} {
		err := s.Update(context.Background(), func(tx Tx) error {
			_, err := tx.InsertTurn(context.Background(), p)
			return err
		})
		if !errors.Is(err, model.ErrInvalid) {
			t.Errorf("%+v: expected ErrInvalid, got %v", p, err)
		}
	}
}

func TestPatchMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := insertMemory(t, s, MemoryParams{Content: "old", Tags: []string{"a"}, CreatedAt: base})

	status := model.StatusArchived
	content := "new"
	tags := []string{}
	err := s.Update(ctx, func(tx Tx) error {
		return tx.PatchMemory(ctx, id, PatchParams{Status: &status, Content: &content, Tags: &tags})
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	m, _ := s.GetMemory(ctx, id)
	if m.Status != model.StatusArchived || m.Content != "new" || len(m.Tags) != 0 {
		t.Errorf("after patch: %+v", m)
	}

	err = s.Update(ctx, func(tx Tx) error { return tx.PatchMemory(ctx, id, PatchParams{}) })
	if !errors.Is(err, model.ErrInvalid) {
		t.Errorf("empty patch: expected ErrInvalid, got %v", err)
	}
	bad := model.Status("gone")
	err = s.Update(ctx, func(tx Tx) error { return tx.PatchMemory(ctx, id, PatchParams{Status: &bad}) })
	if !errors.Is(err, model.ErrInvalid) {
		t.Errorf("bad status: expected ErrInvalid, got %v", err)
	}
}

func TestConfigPersistsAcrossHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cfg.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mid.Capacity != 500 {
		t.Errorf("default capacity = %d", cfg.Mid.Capacity)
	}

	cfg.Mid.Capacity = 42
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	cfg2, _ := s2.LoadConfig(ctx)
	if cfg2.Mid.Capacity != 42 {
		t.Errorf("capacity after reopen = %d, want 42", cfg2.Mid.Capacity)
	}
	if cfg2.FTS.Enabled != s2.FTSAvailable() {
		t.Errorf("fts.enabled = %v, available = %v", cfg2.FTS.Enabled, s2.FTSAvailable())
	}
}

func TestLoadConfigReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	cfg, _ := s.LoadConfig(ctx)
	cfg.Mid.Capacity = 1

	again, _ := s.LoadConfig(ctx)
	if again.Mid.Capacity != 500 {
		t.Errorf("cached config was mutated: %d", again.Mid.Capacity)
	}
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	cfg, _ := s.LoadConfig(context.Background())
	cfg.Mid.Capacity = 0
	if err := s.SaveConfig(context.Background(), cfg); !errors.Is(err, model.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c", "test.db")
	s, err := NewSQLiteStore(nested)
	if err != nil {
		t.Fatalf("create nested: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Error("expected db file to exist")
	}
}
