package store

import (
	"context"
	"fmt"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// ExportAll returns every memory in id order, optionally filtered by tier.
func (s *SQLiteStore) ExportAll(ctx context.Context, tier model.Tier) ([]model.Memory, error) {
	if tier == "" {
		return queryMemories(ctx, s.db, `SELECT `+memoryColumns+` FROM memories ORDER BY id`)
	}
	if !model.ValidTiers[tier] {
		return nil, fmt.Errorf("%w: tier %q (valid: mid, long)", model.ErrInvalid, tier)
	}
	return queryMemories(ctx, s.db,
		`SELECT `+memoryColumns+` FROM memories WHERE tier = ? ORDER BY id`, string(tier))
}

// Import stores memories from an export in one transaction. Ids are
// reassigned; tier, hits, score, status and timestamps are preserved.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.Memory) (int, error) {
	imported := 0
	err := s.Update(ctx, func(tx Tx) error {
		for _, m := range memories {
			_, err := tx.InsertMemory(ctx, MemoryParams{
				Tier:       m.Tier,
				Content:    m.Content,
				Importance: m.Importance,
				Tags:       m.Tags,
				Hits:       m.Hits,
				Score:      m.Score,
				Status:     m.Status,
				CreatedAt:  m.CreatedAt,
				LastSeenAt: m.LastSeenAt,
			})
			if err != nil {
				return fmt.Errorf("import memory %d: %w", m.ID, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return imported, nil
}
