package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/textnorm"
)

// DefaultListLimit caps list and search results when no limit is given.
const DefaultListLimit = 50

// ListParams holds parameters for listing or searching memories.
type ListParams struct {
	Tier   model.Tier
	Status model.Status // defaults to active
	Query  string
	Limit  int
}

// ListMemories returns memories of one tier ordered by score desc, id desc.
// A non-empty query uses FTS5 when enabled and a substring match otherwise.
func (s *SQLiteStore) ListMemories(ctx context.Context, p ListParams) ([]model.Memory, error) {
	if p.Tier == "" {
		p.Tier = model.TierMid
	}
	if !model.ValidTiers[p.Tier] {
		return nil, fmt.Errorf("%w: tier %q (valid: mid, long)", model.ErrInvalid, p.Tier)
	}
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	if !model.ValidStatuses[p.Status] {
		return nil, fmt.Errorf("%w: status %q", model.ErrInvalid, p.Status)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := strings.TrimSpace(p.Query)
	if query == "" {
		return queryMemories(ctx, s.db,
			`SELECT `+memoryColumns+` FROM memories
			 WHERE tier = ? AND status = ?
			 ORDER BY score DESC, id DESC LIMIT ?`,
			string(p.Tier), string(p.Status), limit)
	}

	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if match := ftsQuery(query); cfg.FTS.Enabled && s.fts && match != "" {
		return queryMemories(ctx, s.db,
			`SELECT m.id, m.tier, m.content, m.created_at, m.last_seen_at, m.hits, m.score,
			        m.importance, m.status, m.tags
			 FROM memories m JOIN memories_fts f ON m.id = f.rowid
			 WHERE m.tier = ? AND m.status = ? AND f.memories_fts MATCH ?
			 ORDER BY m.score DESC, m.id DESC LIMIT ?`,
			string(p.Tier), string(p.Status), match, limit)
	}

	return queryMemories(ctx, s.db,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE tier = ? AND status = ? AND content LIKE ?
		 ORDER BY score DESC, id DESC LIMIT ?`,
		string(p.Tier), string(p.Status), "%"+query+"%", limit)
}

// ftsQuery turns free text into an FTS5 expression of quoted tokens so that
// user input never reaches the query parser as syntax.
func ftsQuery(q string) string {
	tokens := textnorm.Tokens(q)
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// GetMemory returns one memory by id.
func (s *SQLiteStore) GetMemory(ctx context.Context, id int64) (*model.Memory, error) {
	return getMemory(ctx, s.db, id)
}
