// Package store provides the lifecycle storage interface and SQLite implementation.
package store

import (
	"context"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// TurnParams holds parameters for recording a turn.
type TurnParams struct {
	SessionID string
	Role      model.Role
	Text      string
	TS        time.Time
}

// MemoryParams holds parameters for inserting a memory.
// Zero Tier and Status default to mid and active.
type MemoryParams struct {
	Tier       model.Tier
	Content    string
	Importance int
	Tags       []string
	Hits       int
	Score      float64
	Status     model.Status
	CreatedAt  time.Time
	LastSeenAt *time.Time
}

// PatchParams holds the updatable fields of a memory. Nil fields are left
// unchanged; a non-nil empty Tags clears the tag set.
type PatchParams struct {
	Status  *model.Status
	Content *string
	Tags    *[]string
}

// Tx is the set of reads and writes the lifecycle engine performs. All calls
// made through one Tx commit or roll back together.
type Tx interface {
	InsertTurn(ctx context.Context, p TurnParams) (int64, error)
	DeleteTurns(ctx context.Context, ids []int64) error
	// ScanTurns returns a session's turns, most recent first (ts desc, id desc).
	ScanTurns(ctx context.Context, sessionID string) ([]model.Turn, error)
	ListSessions(ctx context.Context) ([]string, error)

	InsertMemory(ctx context.Context, p MemoryParams) (int64, error)
	GetMemory(ctx context.Context, id int64) (*model.Memory, error)
	// TouchMemory records a hit: hits+1 and last-seen = at.
	TouchMemory(ctx context.Context, id int64, at time.Time) error
	SetMemoryTier(ctx context.Context, id int64, tier model.Tier) error
	SetMemoryScore(ctx context.Context, id int64, score float64) error
	PatchMemory(ctx context.Context, id int64, p PatchParams) error
	// DeleteMemory hard-deletes a memory and its links.
	DeleteMemory(ctx context.Context, id int64) error
	// ScanActiveMemories returns active memories in id order; an empty tier
	// scans every tier.
	ScanActiveMemories(ctx context.Context, tier model.Tier) ([]model.Memory, error)

	// UpsertLink records provenance, replacing any link for the same pair.
	UpsertLink(ctx context.Context, memoryID, turnID int64, reason string) error
}

// Store is a durable lifecycle store with one cached config per handle.
type Store interface {
	// Update runs fn in a write transaction, committing if fn returns nil.
	Update(ctx context.Context, fn func(Tx) error) error
	// View runs fn in a transaction that is always rolled back.
	View(ctx context.Context, fn func(Tx) error) error

	LoadConfig(ctx context.Context) (*config.Config, error)
	SaveConfig(ctx context.Context, cfg *config.Config) error

	RecordGCRun(ctx context.Context, run *model.GCRun) error

	Close() error
}
