package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath           string         `json:"db_path"`
	DBSizeBytes      int64          `json:"db_size_bytes"`
	FTSAvailable     bool           `json:"fts_available"`
	Turns            int            `json:"turns"`
	Sessions         int            `json:"sessions"`
	Links            int            `json:"links"`
	Memories         map[string]int `json:"memories"`
	GCRuns           int            `json:"gc_runs"`
	LastGCFinishedAt string         `json:"last_gc_finished_at,omitempty"`
}

// SessionStats holds per-session turn counts.
type SessionStats struct {
	SessionID string `json:"session_id"`
	Turns     int    `json:"turns"`
	LastTS    string `json:"last_ts"`
}

// Stats returns database statistics. Memory counts are keyed "<tier>/<status>".
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path, FTSAvailable: s.fts, Memories: map[string]int{}}

	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&st.Turns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT session_id) FROM turns`).Scan(&st.Sessions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_links`).Scan(&st.Links)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gc_runs`).Scan(&st.GCRuns)
	s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(finished_at), '') FROM gc_runs`).Scan(&st.LastGCFinishedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT tier, status, COUNT(*) FROM memories
		GROUP BY tier, status ORDER BY tier, status`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var tier, status string
		var n int
		if err := rows.Scan(&tier, &status, &n); err != nil {
			return st, err
		}
		st.Memories[tier+"/"+status] = n
	}
	return st, rows.Err()
}

// Sessions lists sessions with their turn counts, most recently active first.
func (s *SQLiteStore) Sessions(ctx context.Context) ([]SessionStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(ts) FROM turns
		GROUP BY session_id ORDER BY MAX(ts) DESC, session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionStats
	for rows.Next() {
		var ss SessionStats
		if err := rows.Scan(&ss.SessionID, &ss.Turns, &ss.LastTS); err != nil {
			return nil, err
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}
