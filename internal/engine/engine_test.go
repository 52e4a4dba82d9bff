package engine

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d float64) time.Time {
	return now.Add(-time.Duration(d * 24 * float64(time.Hour)))
}

func ptr(t time.Time) *time.Time { return &t }

// newTestStore opens a store in heuristic mode so no test reaches a network provider.
func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	setConfig(t, s, func(c *config.Config) { c.Extractor.Mode = config.ModeHeuristic })
	return s
}

func newTestEngine(t *testing.T, s store.Store, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	e := New(s, opts...)
	t.Cleanup(e.Close)
	return e
}

func setConfig(t *testing.T, s *store.SQLiteStore, fn func(*config.Config)) {
	t.Helper()
	ctx := context.Background()
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	fn(cfg)
	if err := s.SaveConfig(ctx, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
}

func seedMemory(t *testing.T, s store.Store, p store.MemoryParams) int64 {
	t.Helper()
	var id int64
	err := s.Update(context.Background(), func(tx store.Tx) error {
		var err error
		id, err = tx.InsertMemory(context.Background(), p)
		return err
	})
	if err != nil {
		t.Fatalf("seed memory: %v", err)
	}
	return id
}

func getMemory(t *testing.T, s *store.SQLiteStore, id int64) *model.Memory {
	t.Helper()
	m, err := s.GetMemory(context.Background(), id)
	if err != nil {
		t.Fatalf("get memory %d: %v", id, err)
	}
	return m
}

var errInjected = errors.New("injected failure")

// failingStore fails the named Tx operation inside every write transaction.
type failingStore struct {
	store.Store
	failOn string
}

func (f *failingStore) Update(ctx context.Context, fn func(store.Tx) error) error {
	return f.Store.Update(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, failOn: f.failOn})
	})
}

type failingTx struct {
	store.Tx
	failOn string
}

func (t *failingTx) InsertMemory(ctx context.Context, p store.MemoryParams) (int64, error) {
	if t.failOn == "insert_memory" {
		return 0, errInjected
	}
	return t.Tx.InsertMemory(ctx, p)
}

func (t *failingTx) SetMemoryTier(ctx context.Context, id int64, tier model.Tier) error {
	if t.failOn == "set_tier" {
		return errInjected
	}
	return t.Tx.SetMemoryTier(ctx, id, tier)
}

func TestRemember(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)

	m, err := e.Remember(ctx, RememberParams{Content: "  Prefers dark mode ", Importance: 1, Tags: []string{"ui"}})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if m.Content != "Prefers dark mode" || m.Tier != model.TierMid || m.Hits != 0 || m.Score != 0 {
		t.Errorf("unexpected memory: %+v", m)
	}
	if m.LastSeenAt != nil {
		t.Errorf("expected no last-seen, got %v", m.LastSeenAt)
	}
	if !m.CreatedAt.Equal(now) {
		t.Errorf("created_at = %v, want %v", m.CreatedAt, now)
	}

	for _, p := range []RememberParams{{Content: " "}, {Content: "x", Importance: 2}} {
		if _, err := e.Remember(ctx, p); !errors.Is(err, model.ErrInvalid) {
			t.Errorf("%+v: expected ErrInvalid, got %v", p, err)
		}
	}
}

func TestRecallCountsAsHit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)
	id := seedMemory(t, s, store.MemoryParams{Content: "fact", Hits: 2, CreatedAt: daysAgo(3)})

	m, err := e.Recall(ctx, id)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if m.Hits != 3 || m.LastSeenAt == nil || !m.LastSeenAt.Equal(now) {
		t.Errorf("after recall: hits=%d last_seen=%v", m.Hits, m.LastSeenAt)
	}

	if _, err := e.Recall(ctx, 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPatchAndForget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)
	id := seedMemory(t, s, store.MemoryParams{Content: "fact", CreatedAt: now})

	archived := model.StatusArchived
	m, err := e.Patch(ctx, id, store.PatchParams{Status: &archived})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if m.Status != model.StatusArchived {
		t.Errorf("status = %s", m.Status)
	}

	if err := e.Forget(ctx, id); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if err := e.Forget(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("second forget: expected ErrNotFound, got %v", err)
	}
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)
	id := seedMemory(t, s, store.MemoryParams{
		Content: "User name is Al", Hits: 3, Importance: 1,
		CreatedAt: daysAgo(10), LastSeenAt: ptr(daysAgo(2)),
	})

	x, err := e.Explain(ctx, id)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	b := x.Breakdown
	checks := []struct {
		name      string
		got, want float64
	}{
		{"freq_term", b.Freq, math.Log(4)},
		{"recency_term", b.Recency, math.Exp(-0.1)},
		{"importance_term", b.Importance, 2},
		{"age_days", b.AgeDays, 2},
		{"computed_score", x.ComputedScore, math.Log(4) + math.Exp(-0.1) + 2},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if x.StoredScore != 0 {
		t.Errorf("stored score = %v, want 0 before any gc", x.StoredScore)
	}

	m := getMemory(t, s, id)
	if m.Hits != 3 {
		t.Errorf("explain must not count as a hit, hits = %d", m.Hits)
	}

	if _, err := e.Explain(ctx, 404); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
