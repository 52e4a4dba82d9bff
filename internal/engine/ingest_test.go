package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

type staticProvider string

func (p staticProvider) Complete(context.Context, string, string) (string, error) {
	return string(p), nil
}

type staticExtractor []model.Candidate

func (x staticExtractor) Extract(context.Context, string) []model.Candidate { return x }

func userTurn(text string) IngestParams {
	return IngestParams{SessionID: "s1", Role: model.RoleUser, Text: text, AutoExtract: true}
}

func TestIngestCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)

	first, err := e.Ingest(ctx, userTurn("I like jazz. My name is Al."))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(first.Extracted) != 2 {
		t.Fatalf("expected 2 extracted, got %+v", first.Extracted)
	}
	want := []model.Extracted{
		{Content: "User likes jazz", Action: model.ActionCreate},
		{Content: "User name is Al", Action: model.ActionCreate},
	}
	for i, w := range want {
		got := first.Extracted[i]
		if got.Content != w.Content || got.Action != w.Action {
			t.Errorf("extracted[%d] = %+v, want %+v", i, got, w)
		}
	}

	jazz := getMemory(t, s, first.Extracted[0].ID)
	if jazz.Hits != 1 || jazz.Score != 0 || jazz.LastSeenAt == nil || !jazz.LastSeenAt.Equal(now) {
		t.Errorf("new memory: %+v", jazz)
	}
	if len(jazz.Tags) != 1 || jazz.Tags[0] != "preference" {
		t.Errorf("jazz tags = %v", jazz.Tags)
	}
	name := getMemory(t, s, first.Extracted[1].ID)
	if name.Importance != 1 || len(name.Tags) != 1 || name.Tags[0] != "identity" {
		t.Errorf("name memory: %+v", name)
	}

	second, err := e.Ingest(ctx, userTurn("I like jazz. My name is Al."))
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if len(second.Extracted) != 2 {
		t.Fatalf("expected 2 extracted, got %+v", second.Extracted)
	}
	for i, x := range second.Extracted {
		if x.Action != model.ActionUpdate || x.ID != first.Extracted[i].ID {
			t.Errorf("re-ingest[%d] = %+v, want update of %d", i, x, first.Extracted[i].ID)
		}
	}
	if jazz = getMemory(t, s, jazz.ID); jazz.Hits != 2 {
		t.Errorf("jazz hits = %d, want 2", jazz.Hits)
	}

	all, _ := s.ExportAll(ctx, "")
	if len(all) != 2 {
		t.Errorf("expected no duplicates, found %d memories", len(all))
	}
	links, _ := s.Links(ctx, jazz.ID)
	if len(links) != 2 || links[0].TurnID != first.TurnID || links[1].TurnID != second.TurnID {
		t.Errorf("links: %+v", links)
	}
}

func TestIngestSkipsExtraction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)

	for _, p := range []IngestParams{
		{SessionID: "s1", Role: model.RoleAssistant, Text: "I like jazz", AutoExtract: true},
		{SessionID: "s1", Role: model.RoleUser, Text: "I like jazz", AutoExtract: false},
	} {
		res, err := e.Ingest(ctx, p)
		if err != nil {
			t.Fatalf("ingest %+v: %v", p, err)
		}
		if res.TurnID == 0 || len(res.Extracted) != 0 {
			t.Errorf("%+v: %+v", p, res)
		}
	}
	st, _ := s.Stats(ctx)
	if st.Turns != 2 || len(st.Memories) != 0 {
		t.Errorf("stats: %+v", st)
	}
}

func TestIngestValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s)

	for _, p := range []IngestParams{
		{SessionID: "", Role: model.RoleUser, Text: "hi"},
		{SessionID: "s1", Role: "system", Text: "hi"},
	} {
		if _, err := e.Ingest(ctx, p); !errors.Is(err, model.ErrInvalid) {
			t.Errorf("%+v: expected ErrInvalid, got %v", p, err)
		}
	}
	st, _ := s.Stats(ctx)
	if st.Turns != 0 {
		t.Errorf("rejected input wrote %d turns", st.Turns)
	}
}

func TestIngestIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, &failingStore{Store: s, failOn: "insert_memory"})

	if _, err := e.Ingest(ctx, userTurn("I like jazz")); !errors.Is(err, errInjected) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	st, _ := s.Stats(ctx)
	if st.Turns != 0 || st.Links != 0 {
		t.Errorf("partial ingest committed: %+v", st)
	}
}

func TestIngestHybridMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	setConfig(t, s, func(c *config.Config) { c.Extractor.Mode = config.ModeHybrid })
	reply := `[{"content":"user likes jazz!","tags":["music"]},{"content":"User plays piano","importance":1}]`
	e := newTestEngine(t, s, WithProvider(staticProvider(reply)))

	res, err := e.Ingest(ctx, userTurn("I like jazz"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Extracted) != 2 {
		t.Fatalf("expected 2 extracted, got %+v", res.Extracted)
	}
	if res.Extracted[0].Content != "User likes jazz" || res.Extracted[1].Content != "User plays piano" {
		t.Errorf("extracted: %+v", res.Extracted)
	}
	jazz := getMemory(t, s, res.Extracted[0].ID)
	if len(jazz.Tags) != 1 || jazz.Tags[0] != "preference" {
		t.Errorf("heuristic candidate should win the merge, tags = %v", jazz.Tags)
	}
	if piano := getMemory(t, s, res.Extracted[1].ID); piano.Importance != 1 {
		t.Errorf("piano importance = %d", piano.Importance)
	}
}

func TestIngestHybridDegradesWithoutProvider(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	setConfig(t, s, func(c *config.Config) {
		c.Extractor.Mode = config.ModeHybrid
		c.LLM.APIKeyEnv = "SM_TEST_UNSET_KEY"
	})
	t.Setenv("SM_TEST_UNSET_KEY", "")
	e := newTestEngine(t, s)

	res, err := e.Ingest(ctx, userTurn("I like jazz"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Extracted) != 1 || res.Extracted[0].Content != "User likes jazz" {
		t.Errorf("extracted: %+v", res.Extracted)
	}
}

func TestIngestStoresBlankTurn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := newTestEngine(t, s, WithExtractor(staticExtractor{{Content: "User owns a cat"}}))

	res, err := e.Ingest(ctx, userTurn("   "))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.TurnID == 0 || len(res.Extracted) != 0 {
		t.Errorf("result: %+v", res)
	}
	st, _ := s.Stats(ctx)
	if st.Turns != 1 || len(st.Memories) != 0 {
		t.Errorf("stats: %+v", st)
	}
}

func TestIngestIgnoresCandidateAction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := seedMemory(t, s, store.MemoryParams{Content: "User likes jazz", Hits: 1, CreatedAt: daysAgo(2), LastSeenAt: ptr(daysAgo(2))})
	e := newTestEngine(t, s, WithExtractor(staticExtractor{
		{Content: "user likes jazz", Action: model.ActionArchive},
		{Content: "User owns a cat", Action: model.ActionArchive},
	}))

	res, err := e.Ingest(ctx, userTurn("I don't like jazz anymore"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Extracted) != 2 {
		t.Fatalf("extracted: %+v", res.Extracted)
	}
	if x := res.Extracted[0]; x.ID != id || x.Action != model.ActionUpdate {
		t.Errorf("matched candidate: %+v, want update of %d", x, id)
	}
	if x := res.Extracted[1]; x.ID == id || x.Action != model.ActionCreate {
		t.Errorf("unmatched candidate: %+v, want create", x)
	}

	m := getMemory(t, s, id)
	if m.Hits != 2 || m.Status != model.StatusActive || m.LastSeenAt == nil || !m.LastSeenAt.Equal(now) {
		t.Errorf("matched memory: %+v", m)
	}
	st, _ := s.Stats(ctx)
	if st.Links != 2 {
		t.Errorf("links = %d, want 2", st.Links)
	}
}

func TestIngestDoesNotMergeIntoLongTier(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	longID := seedMemory(t, s, store.MemoryParams{Content: "User likes jazz", Tier: model.TierLong, Hits: 4, CreatedAt: daysAgo(5)})
	midID := seedMemory(t, s, store.MemoryParams{Content: "User likes jazz a lot", Hits: 1, CreatedAt: daysAgo(1)})
	setConfig(t, s, func(c *config.Config) { c.Extractor.MatchThreshold = 0.95 })
	e := newTestEngine(t, s)

	res, err := e.Ingest(ctx, userTurn("I like jazz"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Extracted) != 1 {
		t.Fatalf("extracted: %+v", res.Extracted)
	}
	x := res.Extracted[0]
	if x.ID == longID || x.ID == midID || x.Action != model.ActionCreate {
		t.Fatalf("want a new mid memory, got %+v", x)
	}
	if m := getMemory(t, s, x.ID); m.Tier != model.TierMid || m.Hits != 1 {
		t.Errorf("new memory: %+v", m)
	}
	if m := getMemory(t, s, longID); m.Hits != 4 {
		t.Errorf("long memory hits = %d, want 4", m.Hits)
	}
}

func TestIngestMatchesMidOverExactLong(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	longID := seedMemory(t, s, store.MemoryParams{Content: "User likes jazz", Tier: model.TierLong, Hits: 4, CreatedAt: daysAgo(5)})
	midID := seedMemory(t, s, store.MemoryParams{Content: "User likes jazz a lot", Hits: 1, CreatedAt: daysAgo(1)})
	setConfig(t, s, func(c *config.Config) { c.Extractor.MatchThreshold = 0.5 })
	e := newTestEngine(t, s)

	res, err := e.Ingest(ctx, userTurn("I like jazz"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Extracted) != 1 || res.Extracted[0].ID != midID || res.Extracted[0].Action != model.ActionUpdate {
		t.Fatalf("extracted: %+v, want update of mid %d", res.Extracted, midID)
	}
	if m := getMemory(t, s, longID); m.Hits != 4 {
		t.Errorf("long memory hits = %d, want 4", m.Hits)
	}
}
