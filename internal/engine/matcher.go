package engine

import (
	"context"
	"fmt"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/textnorm"
)

// Match is a memory whose token overlap with a candidate met the threshold.
type Match struct {
	Memory     model.Memory `json:"memory"`
	Similarity float64      `json:"similarity"`
}

// FindSimilar returns the memory with the strictly highest Jaccard similarity
// to content, keeping the first in slice order on ties, if that similarity is
// at least threshold.
func FindSimilar(content string, memories []model.Memory, threshold float64) (Match, bool) {
	return findSimilar(nil, content, memories, threshold)
}

func findSimilar(cache *textnorm.TokenCache, content string, memories []model.Memory, threshold float64) (Match, bool) {
	cand := textnorm.NewTokenSet(textnorm.Tokens(content))

	best := -1
	bestSim := -1.0
	for i := range memories {
		sim := cand.Jaccard(cache.Set(memories[i].Content))
		if sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if best < 0 || bestSim < threshold {
		return Match{}, false
	}
	return Match{Memory: memories[best], Similarity: bestSim}, true
}

// ingestTier is the tier extracted candidates are matched against.
// Promoted memories are not merged into; a repeated fact starts a new mid memory.
const ingestTier = model.TierMid

func (e *Engine) matchTx(ctx context.Context, tx store.Tx, tier model.Tier, content string, threshold float64) (Match, bool, error) {
	memories, err := tx.ScanActiveMemories(ctx, tier)
	if err != nil {
		return Match{}, false, fmt.Errorf("scan %s tier: %w", tier, err)
	}
	m, ok := findSimilar(e.tokens, content, memories, threshold)
	return m, ok, nil
}

// FindSimilar looks up the active memory of tier that text would merge into,
// using the configured match threshold. An empty tier means mid.
func (e *Engine) FindSimilar(ctx context.Context, text string, tier model.Tier) (*Match, error) {
	if tier == "" {
		tier = ingestTier
	}
	if !model.ValidTiers[tier] {
		return nil, fmt.Errorf("%w: tier %q (valid: mid, long)", model.ErrInvalid, tier)
	}
	cfg, err := e.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	var found *Match
	err = e.store.View(ctx, func(tx store.Tx) error {
		m, ok, err := e.matchTx(ctx, tx, tier, text, cfg.Extractor.MatchThreshold)
		if ok {
			found = &m
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find similar: %w", err)
	}
	return found, nil
}
