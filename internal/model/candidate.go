package model

import (
	"encoding/json"
	"fmt"
)

// Action is what a candidate proposes, or what committing it did.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionArchive Action = "archive"
)

// ParseAction maps a raw action string to an Action, defaulting to create.
func ParseAction(s string) Action {
	switch Action(s) {
	case ActionCreate, ActionUpdate, ActionArchive:
		return Action(s)
	}
	return ActionCreate
}

// UnmarshalJSON coerces unknown actions to create.
func (a *Action) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*a = ActionCreate
		return nil
	}
	*a = ParseAction(s)
	return nil
}

// Candidate is an unpersisted memory proposal produced by extraction.
type Candidate struct {
	Content    string   `json:"content"`
	Importance int      `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
	Action     Action   `json:"action"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s(%q)", c.Action, c.Content)
}

// Extracted is the result of committing one candidate.
type Extracted struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Action  Action `json:"action"`
}
