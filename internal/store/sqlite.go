package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02 15:04:05.000000"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	fts  bool

	mu  sync.Mutex
	cfg *config.Config

	idMu    sync.Mutex
	entropy io.Reader
}

// NewSQLiteStore opens or creates a SQLite database at the given path,
// creates the schema and writes the default config if none is saved.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if _, err := s.LoadConfig(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("load config: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// FTSAvailable reports whether the SQLite build supports FTS5.
func (s *SQLiteStore) FTSAvailable() bool { return s.fts }

func (s *SQLiteStore) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		ts         TEXT NOT NULL,
		role       TEXT NOT NULL CHECK (role IN ('user','assistant')),
		text       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session_ts ON turns(session_id, ts);

	CREATE TABLE IF NOT EXISTS memories (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		tier         TEXT NOT NULL CHECK (tier IN ('mid','long')),
		content      TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		last_seen_at TEXT,
		hits         INTEGER NOT NULL DEFAULT 0 CHECK (hits >= 0),
		score        REAL NOT NULL DEFAULT 0.0,
		importance   INTEGER NOT NULL DEFAULT 0 CHECK (importance IN (0,1)),
		status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','archived','deleted')),
		tags         TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_tier_score ON memories(tier, score DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_last_seen ON memories(last_seen_at);
	CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status, tier);

	CREATE TABLE IF NOT EXISTS memory_links (
		memory_id INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
		turn_id   INTEGER NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
		reason    TEXT,
		PRIMARY KEY (memory_id, turn_id)
	);
	CREATE INDEX IF NOT EXISTS idx_links_turn ON memory_links(turn_id);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS gc_runs (
		id           TEXT PRIMARY KEY,
		started_at   TEXT NOT NULL,
		finished_at  TEXT NOT NULL,
		recomputed   INTEGER NOT NULL DEFAULT 0,
		promoted     INTEGER NOT NULL DEFAULT 0,
		deleted      INTEGER NOT NULL DEFAULT 0,
		pruned_turns INTEGER NOT NULL DEFAULT 0,
		failed_step  TEXT,
		error        TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	s.fts = s.hasFTS5()
	if !s.fts {
		return nil
	}

	ftsSchema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		content,
		content='memories',
		content_rowid='id',
		tokenize='unicode61'
	);
	CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, content) VALUES (new.id, new.content);
	END;
	CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.id, old.content);
	END;
	CREATE TRIGGER IF NOT EXISTS memories_au AFTER UPDATE OF content ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.id, old.content);
		INSERT INTO memories_fts(rowid, content) VALUES (new.id, new.content);
	END;
	`
	if _, err := s.db.Exec(ftsSchema); err != nil {
		return fmt.Errorf("create fts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) hasFTS5() bool {
	rows, err := s.db.Query(`PRAGMA compile_options`)
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var opt string
		if err := rows.Scan(&opt); err != nil {
			return false
		}
		if strings.Contains(strings.ToUpper(opt), "FTS5") {
			return true
		}
	}
	return false
}

// LoadConfig returns the store's config, reading it from the meta table on
// first use and caching it for the lifetime of the handle.
func (s *SQLiteStore) LoadConfig(ctx context.Context) (*config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg != nil {
		return s.cfg.Clone(), nil
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'config'`).Scan(&raw)
	var cfg *config.Config
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cfg = config.Default()
		cfg.FTS.Enabled = s.fts
		if err := s.writeConfig(ctx, cfg); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg, err = config.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		if cfg.FTS.Enabled && !s.fts {
			cfg.FTS.Enabled = false
			if err := s.writeConfig(ctx, cfg); err != nil {
				return nil, err
			}
		}
	}

	s.cfg = cfg
	return cfg.Clone(), nil
}

// SaveConfig validates and persists cfg, replacing the cached copy.
// FTS stays disabled when the SQLite build lacks it.
func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.Clone()
	if !s.fts {
		cfg.FTS.Enabled = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeConfig(ctx, cfg); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

func (s *SQLiteStore) writeConfig(ctx context.Context, cfg *config.Config) error {
	b, err := cfg.Encode()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('config', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, string(b))
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Update runs fn in a write transaction.
func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is rolled back afterwards.
func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{tx: tx})
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

const memoryColumns = `id, tier, content, created_at, last_seen_at, hits, score, importance, status, tags`

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var tier, status, createdAt string
	var lastSeen, tags sql.NullString

	err := row.Scan(&m.ID, &tier, &m.Content, &createdAt, &lastSeen,
		&m.Hits, &m.Score, &m.Importance, &status, &tags)
	if err != nil {
		return m, err
	}

	m.Tier = model.Tier(tier)
	m.Status = model.Status(status)
	m.CreatedAt = parseTime(createdAt)
	if lastSeen.Valid {
		t := parseTime(lastSeen.String)
		m.LastSeenAt = &t
	}
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &m.Tags); err != nil {
			return m, fmt.Errorf("memory %d: decode tags: %w", m.ID, err)
		}
	}
	return m, nil
}

func queryMemories(ctx context.Context, q queryer, query string, args ...any) ([]model.Memory, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func scanTurn(row scanner) (model.Turn, error) {
	var t model.Turn
	var ts, role string
	if err := row.Scan(&t.ID, &t.SessionID, &ts, &role, &t.Text); err != nil {
		return t, err
	}
	t.TS = parseTime(ts)
	t.Role = model.Role(role)
	return t, nil
}

func queryTurns(ctx context.Context, q queryer, query string, args ...any) ([]model.Turn, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		// tolerate RFC 3339 values written by other tools
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func encodeTags(tags []string) *string {
	if tags == nil {
		return nil
	}
	b, _ := json.Marshal(tags)
	s := string(b)
	return &s
}
