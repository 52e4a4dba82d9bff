package store

import (
	"context"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// LinkedTurn is a provenance link joined with the turn it points at.
type LinkedTurn struct {
	model.Link
	SessionID string     `json:"session_id"`
	TS        time.Time  `json:"ts"`
	Role      model.Role `json:"role"`
	Text      string     `json:"text"`
}

// Links returns the turns a memory was extracted from, oldest first.
func (s *SQLiteStore) Links(ctx context.Context, memoryID int64) ([]LinkedTurn, error) {
	if _, err := s.GetMemory(ctx, memoryID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT l.memory_id, l.turn_id, COALESCE(l.reason, ''), t.session_id, t.ts, t.role, t.text
		FROM memory_links l JOIN turns t ON t.id = l.turn_id
		WHERE l.memory_id = ?
		ORDER BY t.ts, t.id`, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []LinkedTurn{}
	for rows.Next() {
		var lt LinkedTurn
		var ts, role string
		if err := rows.Scan(&lt.MemoryID, &lt.TurnID, &lt.Reason, &lt.SessionID, &ts, &role, &lt.Text); err != nil {
			return nil, err
		}
		lt.TS = parseTime(ts)
		lt.Role = model.Role(role)
		links = append(links, lt)
	}
	return links, rows.Err()
}
