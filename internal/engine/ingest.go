package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

// IngestParams holds one incoming dialogue turn.
type IngestParams struct {
	SessionID   string
	Role        model.Role
	Text        string
	AutoExtract bool
}

// IngestResult reports the stored turn and what extraction did with it.
type IngestResult struct {
	TurnID    int64             `json:"turn_id"`
	Extracted []model.Extracted `json:"extracted_memories"`
}

// Ingest records a turn and, for non-blank user turns with auto-extract on,
// commits the extracted candidates. Extraction runs before the write transaction;
// the turn and every candidate commit apply as one unit.
func (e *Engine) Ingest(ctx context.Context, p IngestParams) (*IngestResult, error) {
	if strings.TrimSpace(p.SessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", model.ErrInvalid)
	}
	if !model.ValidRoles[p.Role] {
		return nil, fmt.Errorf("%w: role %q (valid: user, assistant)", model.ErrInvalid, p.Role)
	}

	cfg, err := e.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []model.Candidate
	if p.Role == model.RoleUser && p.AutoExtract && strings.TrimSpace(p.Text) != "" {
		candidates = e.extractorFor(cfg).Extract(ctx, p.Text)
	}

	now := e.now()
	res := &IngestResult{Extracted: []model.Extracted{}}
	err = e.store.Update(ctx, func(tx store.Tx) error {
		turnID, err := tx.InsertTurn(ctx, store.TurnParams{
			SessionID: p.SessionID,
			Role:      p.Role,
			Text:      p.Text,
			TS:        now,
		})
		if err != nil {
			return err
		}
		res.TurnID = turnID

		for _, c := range candidates {
			x, err := e.commitCandidate(ctx, tx, cfg, turnID, c, now)
			if err != nil {
				return fmt.Errorf("commit %s: %w", c, err)
			}
			res.Extracted = append(res.Extracted, x)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	logger.Debug("ingested turn", "session", p.SessionID, "turn", res.TurnID,
		"candidates", len(candidates), "committed", len(res.Extracted))
	return res, nil
}

// commitCandidate merges c into its matching mid memory, counting a hit, or
// creates a new mid memory, then links the memory to the originating turn.
// The candidate's proposed action does not change the outcome.
func (e *Engine) commitCandidate(ctx context.Context, tx store.Tx, cfg *config.Config, turnID int64, c model.Candidate, now time.Time) (model.Extracted, error) {
	match, found, err := e.matchTx(ctx, tx, ingestTier, c.Content, cfg.Extractor.MatchThreshold)
	if err != nil {
		return model.Extracted{}, err
	}

	var x model.Extracted
	if found {
		if err := tx.TouchMemory(ctx, match.Memory.ID, now); err != nil {
			return x, err
		}
		x = model.Extracted{ID: match.Memory.ID, Content: match.Memory.Content, Action: model.ActionUpdate}
	} else {
		importance := 0
		if c.Importance == 1 {
			importance = 1
		}
		id, err := tx.InsertMemory(ctx, store.MemoryParams{
			Tier:       ingestTier,
			Content:    c.Content,
			Importance: importance,
			Tags:       c.Tags,
			Hits:       1,
			Score:      0,
			Status:     model.StatusActive,
			CreatedAt:  now,
			LastSeenAt: &now,
		})
		if err != nil {
			return x, err
		}
		x = model.Extracted{ID: id, Content: c.Content, Action: model.ActionCreate}
	}

	if err := tx.UpsertLink(ctx, x.ID, turnID, model.ReasonExtracted); err != nil {
		return x, err
	}
	return x, nil
}

// RememberParams holds a manually supplied memory.
type RememberParams struct {
	Content    string
	Importance int
	Tags       []string
}

// Remember stores a mid-tier memory directly. It starts with no hits and no
// last-seen time; its score is assigned by the next maintenance pass.
func (e *Engine) Remember(ctx context.Context, p RememberParams) (*model.Memory, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", model.ErrInvalid)
	}
	if p.Importance != 0 && p.Importance != 1 {
		return nil, fmt.Errorf("%w: importance must be 0 or 1", model.ErrInvalid)
	}

	var m *model.Memory
	err := e.store.Update(ctx, func(tx store.Tx) error {
		id, err := tx.InsertMemory(ctx, store.MemoryParams{
			Tier:       model.TierMid,
			Content:    strings.TrimSpace(p.Content),
			Importance: p.Importance,
			Tags:       p.Tags,
			CreatedAt:  e.now(),
		})
		if err != nil {
			return err
		}
		m, err = tx.GetMemory(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("remember: %w", err)
	}
	return m, nil
}

// Recall counts an explicit lookup of a memory as a hit.
func (e *Engine) Recall(ctx context.Context, id int64) (*model.Memory, error) {
	var m *model.Memory
	err := e.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.TouchMemory(ctx, id, e.now()); err != nil {
			return err
		}
		var err error
		m, err = tx.GetMemory(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("recall: %w", err)
	}
	return m, nil
}

// Patch updates a memory's status, content or tags.
func (e *Engine) Patch(ctx context.Context, id int64, p store.PatchParams) (*model.Memory, error) {
	var m *model.Memory
	err := e.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.PatchMemory(ctx, id, p); err != nil {
			return err
		}
		var err error
		m, err = tx.GetMemory(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	return m, nil
}

// Forget hard-deletes a memory and its links.
func (e *Engine) Forget(ctx context.Context, id int64) error {
	err := e.store.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteMemory(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	return nil
}
