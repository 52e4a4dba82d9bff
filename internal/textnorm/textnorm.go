// Package textnorm normalizes and tokenizes text for extraction and
// similarity matching.
package textnorm

import (
	"strings"
	"unicode"
)

// asciiPunct is the ASCII punctuation set. Some of these characters
// (e.g. $ + < = > ^ ` | ~) are symbols rather than punctuation to unicode.
const asciiPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

func isPunct(r rune) bool {
	return strings.ContainsRune(asciiPunct, r) || unicode.IsPunct(r)
}

// Normalize lowercases text, strips punctuation, collapses whitespace and
// trims. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, strings.ToLower(text))
	return strings.Join(strings.Fields(stripped), " ")
}

// Tokens returns the normalized words of text in order.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// TokenSet is an unordered set of tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from a token slice.
func NewTokenSet(tokens []string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b.
// Two empty sets are identical (1.0); one empty set against a non-empty
// one is maximally dissimilar (0.0).
func Jaccard(a, b []string) float64 {
	return NewTokenSet(a).Jaccard(NewTokenSet(b))
}

// Jaccard is the set form of the package-level Jaccard.
func (s TokenSet) Jaccard(o TokenSet) float64 {
	if len(s) == 0 && len(o) == 0 {
		return 1.0
	}
	if len(s) == 0 || len(o) == 0 {
		return 0.0
	}
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(s) + len(o) - inter
	return float64(inter) / float64(union)
}
