package textnorm

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// TokenCache memoizes token sets by raw text. The matcher tokenizes every
// active memory of a tier per candidate, so stored contents are hot keys.
type TokenCache struct {
	cache *ristretto.Cache
}

// NewTokenCache creates a cache holding roughly maxEntries token sets.
func NewTokenCache(maxEntries int64) (*TokenCache, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &TokenCache{cache: c}, nil
}

// Set returns the token set of text, computing and caching it on a miss.
// A nil cache computes directly. Returned sets are shared; do not modify them.
func (c *TokenCache) Set(text string) TokenSet {
	if c == nil {
		return NewTokenSet(Tokens(text))
	}
	if v, ok := c.cache.Get(text); ok {
		if ts, ok := v.(TokenSet); ok {
			return ts
		}
	}
	ts := NewTokenSet(Tokens(text))
	c.cache.Set(text, ts, 1)
	return ts
}

// Close releases the cache's background goroutines.
func (c *TokenCache) Close() {
	if c != nil {
		c.cache.Close()
	}
}
