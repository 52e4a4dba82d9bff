// Package engine implements the memory lifecycle: ingestion with candidate
// matching, explicit hits, scoring explanations and the maintenance pass.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/extract"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/logger"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/store"
	"github.com/Duff-Y11/Symbiosis-Memory/internal/textnorm"
)

// Engine runs lifecycle operations against one store handle. It is safe for
// concurrent use; maintenance passes are serialized.
type Engine struct {
	store     store.Store
	provider  extract.Provider
	extractor extract.Extractor
	now       func() time.Time
	tokens    *textnorm.TokenCache
	ownTokens bool

	gcMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithProvider sets the external extraction provider instead of building
// one from the store's llm config.
func WithProvider(p extract.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithExtractor replaces mode-based extractor selection entirely.
func WithExtractor(x extract.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithTokenCache shares a token cache between engines. The caller keeps
// ownership and closes it.
func WithTokenCache(c *textnorm.TokenCache) Option {
	return func(e *Engine) { e.tokens = c }
}

// New creates an engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{store: s, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.tokens == nil {
		c, err := textnorm.NewTokenCache(10000)
		if err != nil {
			logger.Warn("token cache disabled", "error", err)
		} else {
			e.tokens = c
			e.ownTokens = true
		}
	}
	return e
}

// Close releases the engine's token cache. The store is not closed.
func (e *Engine) Close() {
	if e.ownTokens {
		e.tokens.Close()
	}
}

// Config returns the store's current config.
func (e *Engine) Config(ctx context.Context) (*config.Config, error) {
	return e.store.LoadConfig(ctx)
}

func (e *Engine) extractorFor(cfg *config.Config) extract.Extractor {
	if e.extractor != nil {
		return e.extractor
	}
	var opts []extract.Option
	if e.provider != nil {
		opts = append(opts, extract.WithProvider(e.provider))
	}
	return extract.New(cfg, opts...)
}
