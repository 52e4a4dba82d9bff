package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// DefaultContextK is the number of memories per tier returned by Context.
const DefaultContextK = 20

// ContextParams holds parameters for context assembly.
type ContextParams struct {
	SessionID string
	K         int
}

// ContextResult is the assembled context for one session.
type ContextResult struct {
	SessionID string         `json:"session_id"`
	ShortTerm []model.Turn   `json:"short_term"`
	MidTerm   []model.Memory `json:"mid_term"`
	LongTerm  []model.Memory `json:"long_term"`
}

// Context returns the session's retained turns in chronological order plus
// the top-k active memories of each tier. It does not count as a hit.
func (s *SQLiteStore) Context(ctx context.Context, p ContextParams) (*ContextResult, error) {
	if strings.TrimSpace(p.SessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", model.ErrInvalid)
	}
	k := p.K
	if k <= 0 {
		k = DefaultContextK
	}

	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := queryTurns(ctx, s.db,
		`SELECT id, session_id, ts, role, text FROM turns
		 WHERE session_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		p.SessionID, cfg.ShortTerm.Size)
	if err != nil {
		return nil, fmt.Errorf("short-term: %w", err)
	}
	short := make([]model.Turn, len(recent))
	for i, t := range recent {
		short[len(recent)-1-i] = t
	}

	res := &ContextResult{SessionID: p.SessionID, ShortTerm: short}
	for _, tier := range []model.Tier{model.TierMid, model.TierLong} {
		ms, err := queryMemories(ctx, s.db,
			`SELECT `+memoryColumns+` FROM memories
			 WHERE tier = ? AND status = 'active'
			 ORDER BY score DESC, id DESC LIMIT ?`,
			string(tier), k)
		if err != nil {
			return nil, fmt.Errorf("%s-term: %w", tier, err)
		}
		if ms == nil {
			ms = []model.Memory{}
		}
		if tier == model.TierMid {
			res.MidTerm = ms
		} else {
			res.LongTerm = ms
		}
	}
	if res.ShortTerm == nil {
		res.ShortTerm = []model.Turn{}
	}
	return res, nil
}
