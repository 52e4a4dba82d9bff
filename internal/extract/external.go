package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// Instruction is sent with every external extraction request.
const Instruction = "You extract user memories as a JSON array of objects. " +
	"Each object: {content: string, importance: 0|1, tags: [string], action: 'create'|'update'|'archive'}. " +
	"Output ONLY valid JSON array, no prose."

// External asks a text-generation service for candidates.
type External struct {
	Provider Provider
	Timeout  time.Duration
}

func (e *External) Extract(ctx context.Context, text string) []model.Candidate {
	if e.Provider == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := e.Provider.Complete(ctx, Instruction, text)
	if err != nil {
		logger.Debug("external extraction unavailable", "error", err)
		return nil
	}

	cands := ParseCandidates(out)
	logger.Debug("external extraction", "candidates", len(cands))
	return cands
}

var fencedArray = regexp.MustCompile("(?s)```json\\s*(\\[.*?\\])\\s*```")

// ParseCandidates finds a JSON array in a model response, fenced or bare,
// and coerces each element. Unparseable responses yield nil.
func ParseCandidates(s string) []model.Candidate {
	if m := fencedArray.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start, end := strings.Index(s, "["), strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return nil
	}

	var items []any
	if err := json.Unmarshal([]byte(s[start:end+1]), &items); err != nil {
		return nil
	}

	var out []model.Candidate
	for _, item := range items {
		if c, ok := coerceCandidate(item); ok {
			out = append(out, c)
		}
	}
	return out
}

// coerceCandidate applies field defaults: importance is 0 unless exactly 0
// or 1, tags are dropped unless a list, and unknown actions become create.
// Items without content are skipped.
func coerceCandidate(item any) (model.Candidate, bool) {
	c := model.Candidate{Action: model.ActionCreate}

	switch v := item.(type) {
	case string:
		c.Content = strings.TrimSpace(v)
	case map[string]any:
		switch content := v["content"].(type) {
		case nil:
		case string:
			c.Content = strings.TrimSpace(content)
		default:
			c.Content = strings.TrimSpace(fmt.Sprint(content))
		}
		if imp, ok := v["importance"].(float64); ok && imp == 1 {
			c.Importance = 1
		}
		if tags, ok := v["tags"].([]any); ok {
			c.Tags = []string{}
			for _, t := range tags {
				if s, ok := t.(string); ok {
					c.Tags = append(c.Tags, s)
				}
			}
		}
		if action, ok := v["action"].(string); ok {
			c.Action = model.ParseAction(action)
		}
	}

	return c, c.Content != ""
}
