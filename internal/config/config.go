// Package config defines the per-store lifecycle configuration.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// Mode selects the extraction strategy.
type Mode string

const (
	ModeHeuristic Mode = "heuristic"
	ModeExternal  Mode = "external"
	ModeHybrid    Mode = "hybrid"
)

// ParseMode accepts "llm" as an alias for external.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "heuristic":
		return ModeHeuristic, nil
	case "external", "llm":
		return ModeExternal, nil
	case "hybrid":
		return ModeHybrid, nil
	}
	return "", fmt.Errorf("%w: unknown extractor mode %q (valid: heuristic, external, hybrid)", model.ErrInvalid, s)
}

// UnmarshalText lets stored and YAML configs use the "llm" alias.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ValidProviders lists the providers the external extractor supports.
var ValidProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
	"gemini":    true,
}

// ShortTermConfig bounds the per-session turn history.
type ShortTermConfig struct {
	Size int `json:"size" yaml:"size"`
}

// MidConfig holds mid-tier capacity, promotion and eviction thresholds.
type MidConfig struct {
	Capacity             int     `json:"capacity" yaml:"capacity"`
	PromoteHits          int     `json:"promote_hits" yaml:"promote_hits"`
	PromoteMaxAgeDays    float64 `json:"promote_max_age_days" yaml:"promote_max_age_days"`
	DemoteAgeDays        float64 `json:"demote_age_days" yaml:"demote_age_days"`
	DeleteScoreThreshold float64 `json:"delete_score_threshold" yaml:"delete_score_threshold"`
}

// ScoringConfig holds the utility score weights and decay rate.
type ScoringConfig struct {
	WFreq       float64 `json:"w_freq" yaml:"w_freq"`
	WRecency    float64 `json:"w_recency" yaml:"w_recency"`
	WImportance float64 `json:"w_importance" yaml:"w_importance"`
	Lambda      float64 `json:"lambda" yaml:"lambda"`
}

// ExtractorConfig selects the extraction mode and similarity thresholds.
type ExtractorConfig struct {
	Mode           Mode    `json:"mode" yaml:"mode"`
	MatchThreshold float64 `json:"match_threshold" yaml:"match_threshold"`
	MergeThreshold float64 `json:"merge_threshold" yaml:"merge_threshold"`
}

// LLMConfig configures the optional external extraction service.
// The API key is never stored; APIKeyEnv names the variable to read it from.
type LLMConfig struct {
	Provider  string `json:"provider" yaml:"provider"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Model     string `json:"model" yaml:"model"`
	APIKeyEnv string `json:"api_key_env" yaml:"api_key_env"`
	TimeoutS  int    `json:"timeout_s" yaml:"timeout_s"`
}

// Timeout returns the request timeout for the external service.
func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutS <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutS) * time.Second
}

// FTSConfig records whether full-text search is available on the store.
type FTSConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Config is the full lifecycle configuration of one store.
type Config struct {
	ShortTerm ShortTermConfig `json:"short_term" yaml:"short_term"`
	Mid       MidConfig       `json:"mid" yaml:"mid"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Extractor ExtractorConfig `json:"extractor" yaml:"extractor"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	FTS       FTSConfig       `json:"fts" yaml:"fts"`
}

// DefaultTimeout bounds external extraction calls.
const DefaultTimeout = 8 * time.Second

// Default returns the configuration written to a fresh store.
func Default() *Config {
	return &Config{
		ShortTerm: ShortTermConfig{Size: 100},
		Mid: MidConfig{
			Capacity:             500,
			PromoteHits:          3,
			PromoteMaxAgeDays:    7,
			DemoteAgeDays:        30,
			DeleteScoreThreshold: 0.5,
		},
		Scoring: ScoringConfig{
			WFreq:       1.0,
			WRecency:    1.0,
			WImportance: 2.0,
			Lambda:      0.05,
		},
		Extractor: ExtractorConfig{
			Mode:           ModeHybrid,
			MatchThreshold: 0.85,
			MergeThreshold: 0.9,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
			TimeoutS:  8,
		},
		FTS: FTSConfig{Enabled: true},
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.ShortTerm.Size > 0, "short_term.size must be > 0")
	check(c.Mid.Capacity > 0, "mid.capacity must be > 0")
	check(c.Mid.PromoteHits > 0, "mid.promote_hits must be > 0")
	check(c.Mid.PromoteMaxAgeDays >= 0, "mid.promote_max_age_days must be >= 0")
	check(c.Mid.DemoteAgeDays > 0, "mid.demote_age_days must be > 0")
	check(c.Scoring.WFreq >= 0, "scoring.w_freq must be >= 0")
	check(c.Scoring.WRecency >= 0, "scoring.w_recency must be >= 0")
	check(c.Scoring.WImportance >= 0, "scoring.w_importance must be >= 0")
	check(c.Scoring.Lambda >= 0, "scoring.lambda must be >= 0")
	check(inUnit(c.Extractor.MatchThreshold), "extractor.match_threshold must be in [0,1]")
	check(inUnit(c.Extractor.MergeThreshold), "extractor.merge_threshold must be in [0,1]")
	if _, err := ParseMode(string(c.Extractor.Mode)); err != nil {
		problems = append(problems, err.Error())
	}
	check(ValidProviders[c.LLM.Provider], "llm.provider %q not supported (valid: openai, anthropic, gemini)", c.LLM.Provider)
	check(c.LLM.TimeoutS >= 0, "llm.timeout_s must be >= 0")

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %v", model.ErrInvalid, problems)
}

func inUnit(f float64) bool { return f >= 0 && f <= 1 }

// Decode parses a stored JSON document on top of the defaults, so fields
// absent from older documents keep their default values.
func Decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Encode serializes the config for storage.
func (c *Config) Encode() ([]byte, error) {
	return json.Marshal(c)
}
