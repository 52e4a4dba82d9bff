package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/textnorm"
)

type rule struct {
	re    *regexp.Regexp
	build func(m []string) model.Candidate
}

var preferenceVerbs = map[string]string{
	"i like":   "likes",
	"i love":   "loves",
	"i hate":   "hates",
	"i prefer": "prefers",
}

// rules run in order; all of them may fire on one input.
var rules = []rule{
	{
		re: regexp.MustCompile(`(?i)\b(i like|i love|i hate|i prefer)\b\s+([^.!?]+)`),
		build: func(m []string) model.Candidate {
			verb := preferenceVerbs[strings.ToLower(m[1])]
			return model.Candidate{
				Content: strings.TrimSpace("User " + verb + " " + strings.TrimSpace(m[2])),
				Tags:    []string{"preference"},
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(my name is|i am|im)\b\s+([A-Za-z][A-Za-z0-9_-]{1,31})`),
		build: func(m []string) model.Candidate {
			return model.Candidate{
				Content:    "User name is " + m[2],
				Importance: 1,
				Tags:       []string{"identity"},
			}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(no longer|dont anymore|do not anymore|changed to|now)\b[^.!?]*`),
		build: func(m []string) model.Candidate {
			return model.Candidate{
				Content: "State change: " + strings.TrimSpace(m[0]),
				Tags:    []string{"state"},
			}
		},
	},
	{
		re: regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}/\d{1,2}/\d{2,4})\b`),
		build: func(m []string) model.Candidate {
			return model.Candidate{
				Content: "Date mentioned: " + m[1],
				Tags:    []string{"time"},
			}
		},
	},
}

// Heuristic extracts candidates with fixed pattern rules.
type Heuristic struct{}

func (Heuristic) Extract(_ context.Context, text string) []model.Candidate {
	return ExtractHeuristic(text)
}

// ExtractHeuristic applies every rule to the trimmed text. Results are
// deduplicated by normalized content; for a repeated key the last match
// wins but keeps the position of the first.
func ExtractHeuristic(text string) []model.Candidate {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}

	var keys []string
	byKey := map[string]model.Candidate{}
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatch(t, -1) {
			c := r.build(m)
			c.Action = model.ActionCreate
			key := textnorm.Normalize(c.Content)
			if _, seen := byKey[key]; !seen {
				keys = append(keys, key)
			}
			byKey[key] = c
		}
	}

	out := make([]model.Candidate, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}
