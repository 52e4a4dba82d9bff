// Package extract turns raw turn text into memory candidates.
//
// Extraction never mutates the store and never fails: the heuristic path is
// pure, and the external path degrades to no candidates on any error.
package extract

import (
	"context"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/textnorm"
)

// Extractor produces candidates from one turn's text.
type Extractor interface {
	Extract(ctx context.Context, text string) []model.Candidate
}

// Option customizes New.
type Option func(*options)

type options struct {
	provider Provider
}

// WithProvider overrides the provider built from the LLM config.
func WithProvider(p Provider) Option {
	return func(o *options) { o.provider = p }
}

// New builds the extractor for the configured mode.
func New(cfg *config.Config, opts ...Option) Extractor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	mode, err := config.ParseMode(string(cfg.Extractor.Mode))
	if err != nil || mode == config.ModeHeuristic {
		return Heuristic{}
	}

	provider := o.provider
	if provider == nil {
		provider = NewProvider(cfg.LLM)
	}
	ext := &External{Provider: provider, Timeout: cfg.LLM.Timeout()}

	if mode == config.ModeExternal {
		return &fallback{primary: ext, secondary: Heuristic{}}
	}
	return &Hybrid{
		Sources:   []Extractor{Heuristic{}, ext},
		Threshold: cfg.Extractor.MergeThreshold,
	}
}

// fallback uses secondary only when primary yields nothing.
type fallback struct {
	primary   Extractor
	secondary Extractor
}

func (f *fallback) Extract(ctx context.Context, text string) []model.Candidate {
	if cands := f.primary.Extract(ctx, text); len(cands) > 0 {
		return cands
	}
	return f.secondary.Extract(ctx, text)
}

// Hybrid runs every source and merges near-duplicates, earlier sources first.
type Hybrid struct {
	Sources   []Extractor
	Threshold float64
}

func (h *Hybrid) Extract(ctx context.Context, text string) []model.Candidate {
	sets := make([][]model.Candidate, 0, len(h.Sources))
	for _, src := range h.Sources {
		sets = append(sets, src.Extract(ctx, text))
	}
	return Merge(h.Threshold, sets...)
}

// Merge concatenates candidate sets, dropping any candidate whose token
// similarity to an already kept candidate is >= threshold. The first
// occurrence wins.
func Merge(threshold float64, sets ...[]model.Candidate) []model.Candidate {
	var out []model.Candidate
	var kept []textnorm.TokenSet
	for _, set := range sets {
		for _, c := range set {
			ts := textnorm.NewTokenSet(textnorm.Tokens(c.Content))
			dup := false
			for _, k := range kept {
				if ts.Jaccard(k) >= threshold {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			out = append(out, c)
			kept = append(kept, ts)
		}
	}
	return out
}
