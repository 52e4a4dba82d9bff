package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/score"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
)

// Explanation shows how a memory's score is made up at the time of the call.
type Explanation struct {
	ID            int64           `json:"id"`
	Tier          model.Tier      `json:"tier"`
	Content       string          `json:"content"`
	Status        model.Status    `json:"status"`
	Hits          int             `json:"hits"`
	Importance    int             `json:"importance"`
	CreatedAt     time.Time       `json:"created_at"`
	LastSeenAt    *time.Time      `json:"last_seen_at"`
	StoredScore   float64         `json:"stored_score"`
	ComputedScore float64         `json:"computed_score"`
	Breakdown     score.Breakdown `json:"breakdown"`
}

// Explain returns the score breakdown of one memory. It does not count as a hit.
func (e *Engine) Explain(ctx context.Context, id int64) (*Explanation, error) {
	cfg, err := e.store.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	var m *model.Memory
	err = e.store.View(ctx, func(tx store.Tx) error {
		var err error
		m, err = tx.GetMemory(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}

	b := score.Compute(m, cfg.Scoring, e.now())
	return &Explanation{
		ID:            m.ID,
		Tier:          m.Tier,
		Content:       m.Content,
		Status:        m.Status,
		Hits:          m.Hits,
		Importance:    m.Importance,
		CreatedAt:     m.CreatedAt,
		LastSeenAt:    m.LastSeenAt,
		StoredScore:   m.Score,
		ComputedScore: b.Total(),
		Breakdown:     b,
	}, nil
}
