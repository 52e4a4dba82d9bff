// Package model defines the core memory data types.
package model

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a turn or memory does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid input")
)

// Tier classifies a memory. Promotion is one-directional: mid → long.
type Tier string

const (
	TierMid  Tier = "mid"
	TierLong Tier = "long"
)

// Status is the lifecycle state of a memory.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidTiers are the allowed memory tiers.
var ValidTiers = map[Tier]bool{
	TierMid:  true,
	TierLong: true,
}

// ValidStatuses are the allowed memory statuses.
var ValidStatuses = map[Status]bool{
	StatusActive:   true,
	StatusArchived: true,
	StatusDeleted:  true,
}

// ValidRoles are the allowed turn roles.
var ValidRoles = map[Role]bool{
	RoleUser:      true,
	RoleAssistant: true,
}

// Turn is one immutable dialogue event.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	TS        time.Time `json:"ts"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
}

// Memory represents a durable fact.
type Memory struct {
	ID         int64      `json:"id"`
	Tier       Tier       `json:"tier"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	Hits       int        `json:"hits"`
	Score      float64    `json:"score"`
	Importance int        `json:"importance"`
	Status     Status     `json:"status"`
	Tags       []string   `json:"tags,omitempty"`
}

// Recency returns the timestamp age is measured from: last-seen if set,
// otherwise creation.
func (m *Memory) Recency() time.Time {
	if m.LastSeenAt != nil {
		return *m.LastSeenAt
	}
	return m.CreatedAt
}

// Link records which turn a memory was extracted from.
type Link struct {
	MemoryID int64  `json:"memory_id"`
	TurnID   int64  `json:"turn_id"`
	Reason   string `json:"reason"`
}

// ReasonExtracted is the link reason written by the extraction pipeline.
const ReasonExtracted = "extracted"
