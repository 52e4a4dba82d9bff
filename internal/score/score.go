// Package score computes memory utility scores.
//
//	freq       = w_freq * ln(1 + hits)
//	recency    = w_recency * exp(-lambda * age_days)
//	importance = w_importance * importance
//	score      = freq + recency + importance
//
// age_days is measured from last-seen when present, otherwise from creation,
// and is floored at zero. Importance is a flat bonus and does not decay.
package score

import (
	"math"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// Breakdown exposes the individual terms of a score.
type Breakdown struct {
	Freq       float64 `json:"freq_term"`
	Recency    float64 `json:"recency_term"`
	Importance float64 `json:"importance_term"`
	AgeDays    float64 `json:"age_days"`
}

// Total is the score the breakdown sums to.
func (b Breakdown) Total() float64 {
	return b.Freq + b.Recency + b.Importance
}

// AgeDays returns the days elapsed between since and now, never negative.
func AgeDays(since, now time.Time) float64 {
	d := now.Sub(since).Hours() / 24.0
	if d < 0 {
		return 0
	}
	return d
}

// Compute scores a memory from its hits, timestamps and importance.
func Compute(m *model.Memory, w config.ScoringConfig, now time.Time) Breakdown {
	return Terms(m.Hits, m.CreatedAt, m.LastSeenAt, m.Importance, w, now)
}

// Terms is Compute over raw fields.
func Terms(hits int, createdAt time.Time, lastSeenAt *time.Time, importance int, w config.ScoringConfig, now time.Time) Breakdown {
	since := createdAt
	if lastSeenAt != nil {
		since = *lastSeenAt
	}
	age := AgeDays(since, now)
	if hits < 0 {
		hits = 0
	}
	return Breakdown{
		Freq:       w.WFreq * math.Log1p(float64(hits)),
		Recency:    w.WRecency * math.Exp(-w.Lambda*age),
		Importance: w.WImportance * float64(importance),
		AgeDays:    age,
	}
}

// Score is shorthand for Compute(...).Total().
func Score(m *model.Memory, w config.ScoringConfig, now time.Time) float64 {
	return Compute(m, w, now).Total()
}
