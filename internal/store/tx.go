package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) InsertTurn(ctx context.Context, p TurnParams) (int64, error) {
	if strings.TrimSpace(p.SessionID) == "" {
		return 0, fmt.Errorf("%w: session id is required", model.ErrInvalid)
	}
	if !model.ValidRoles[p.Role] {
		return 0, fmt.Errorf("%w: role %q (valid: user, assistant)", model.ErrInvalid, p.Role)
	}
	if p.TS.IsZero() {
		p.TS = time.Now()
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, ts, role, text) VALUES (?, ?, ?, ?)`,
		p.SessionID, formatTime(p.TS), string(p.Role), p.Text)
	if err != nil {
		return 0, fmt.Errorf("insert turn: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqliteTx) DeleteTurns(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	linkStmt, err := t.tx.PrepareContext(ctx, `DELETE FROM memory_links WHERE turn_id = ?`)
	if err != nil {
		return err
	}
	defer linkStmt.Close()
	turnStmt, err := t.tx.PrepareContext(ctx, `DELETE FROM turns WHERE id = ?`)
	if err != nil {
		return err
	}
	defer turnStmt.Close()

	for _, id := range ids {
		if _, err := linkStmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("delete links of turn %d: %w", id, err)
		}
		if _, err := turnStmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("delete turn %d: %w", id, err)
		}
	}
	return nil
}

func (t *sqliteTx) ScanTurns(ctx context.Context, sessionID string) ([]model.Turn, error) {
	return queryTurns(ctx, t.tx,
		`SELECT id, session_id, ts, role, text FROM turns
		 WHERE session_id = ? ORDER BY ts DESC, id DESC`, sessionID)
}

func (t *sqliteTx) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT DISTINCT session_id FROM turns ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (t *sqliteTx) InsertMemory(ctx context.Context, p MemoryParams) (int64, error) {
	if p.Tier == "" {
		p.Tier = model.TierMid
	}
	if p.Status == "" {
		p.Status = model.StatusActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	switch {
	case strings.TrimSpace(p.Content) == "":
		return 0, fmt.Errorf("%w: content is required", model.ErrInvalid)
	case !model.ValidTiers[p.Tier]:
		return 0, fmt.Errorf("%w: tier %q (valid: mid, long)", model.ErrInvalid, p.Tier)
	case !model.ValidStatuses[p.Status]:
		return 0, fmt.Errorf("%w: status %q", model.ErrInvalid, p.Status)
	case p.Importance != 0 && p.Importance != 1:
		return 0, fmt.Errorf("%w: importance must be 0 or 1", model.ErrInvalid)
	case p.Hits < 0:
		return 0, fmt.Errorf("%w: hits must be >= 0", model.ErrInvalid)
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO memories (tier, content, created_at, last_seen_at, hits, score, importance, status, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(p.Tier), p.Content, formatTime(p.CreatedAt), formatTimePtr(p.LastSeenAt),
		p.Hits, p.Score, p.Importance, string(p.Status), encodeTags(p.Tags))
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	return res.LastInsertId()
}

func (t *sqliteTx) GetMemory(ctx context.Context, id int64) (*model.Memory, error) {
	return getMemory(ctx, t.tx, id)
}

func getMemory(ctx context.Context, q queryer, id int64) (*model.Memory, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *sqliteTx) TouchMemory(ctx context.Context, id int64, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE memories SET hits = hits + 1, last_seen_at = ? WHERE id = ?`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touch memory %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (t *sqliteTx) SetMemoryTier(ctx context.Context, id int64, tier model.Tier) error {
	if !model.ValidTiers[tier] {
		return fmt.Errorf("%w: tier %q (valid: mid, long)", model.ErrInvalid, tier)
	}
	m, err := t.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if m.Tier == model.TierLong && tier == model.TierMid {
		return fmt.Errorf("%w: memory %d is long-term and cannot be demoted", model.ErrInvalid, id)
	}
	if m.Tier == tier {
		return nil
	}
	_, err = t.tx.ExecContext(ctx, `UPDATE memories SET tier = ? WHERE id = ?`, string(tier), id)
	return err
}

func (t *sqliteTx) SetMemoryScore(ctx context.Context, id int64, score float64) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE memories SET score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("set score of %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (t *sqliteTx) PatchMemory(ctx context.Context, id int64, p PatchParams) error {
	var sets []string
	var args []any

	if p.Status != nil {
		if !model.ValidStatuses[*p.Status] {
			return fmt.Errorf("%w: status %q (valid: active, archived, deleted)", model.ErrInvalid, *p.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Content != nil {
		if strings.TrimSpace(*p.Content) == "" {
			return fmt.Errorf("%w: content must not be empty", model.ErrInvalid)
		}
		sets = append(sets, "content = ?")
		args = append(args, *p.Content)
	}
	if p.Tags != nil {
		tags := *p.Tags
		if tags == nil {
			tags = []string{}
		}
		sets = append(sets, "tags = ?")
		args = append(args, encodeTags(tags))
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: nothing to update", model.ErrInvalid)
	}

	args = append(args, id)
	res, err := t.tx.ExecContext(ctx,
		`UPDATE memories SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("patch memory %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (t *sqliteTx) DeleteMemory(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM memory_links WHERE memory_id = ?`, id); err != nil {
		return fmt.Errorf("delete links of memory %d: %w", id, err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory %d: %w", id, err)
	}
	return requireRow(res, id)
}

func (t *sqliteTx) ScanActiveMemories(ctx context.Context, tier model.Tier) ([]model.Memory, error) {
	if tier == "" {
		return queryMemories(ctx, t.tx,
			`SELECT `+memoryColumns+` FROM memories WHERE status = 'active' ORDER BY id ASC`)
	}
	return queryMemories(ctx, t.tx,
		`SELECT `+memoryColumns+` FROM memories WHERE status = 'active' AND tier = ? ORDER BY id ASC`,
		string(tier))
}

func (t *sqliteTx) UpsertLink(ctx context.Context, memoryID, turnID int64, reason string) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO memory_links (memory_id, turn_id, reason) VALUES (?, ?, ?)
		 ON CONFLICT(memory_id, turn_id) DO UPDATE SET reason = excluded.reason`,
		memoryID, turnID, reason)
	if err != nil {
		return fmt.Errorf("link memory %d to turn %d: %w", memoryID, turnID, err)
	}
	return nil
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("memory %d: %w", id, model.ErrNotFound)
	}
	return nil
}
