package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/model"
)

// LoadFile reads a YAML config file layered over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes YAML layered over the defaults and validates the result.
func ParseYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", model.ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// YAML renders the config as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Set returns a copy of c with the dotted key (e.g. "mid.capacity") set to
// value. The value is parsed as a YAML scalar, so "200", "0.3", "true" and
// "hybrid" all take their natural types.
func (c *Config) Set(key, value string) (*Config, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: key %q must be section.field", model.ErrInvalid, key)
	}

	raw, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var tree map[string]map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	section, ok := tree[parts[0]]
	if !ok {
		return nil, fmt.Errorf("%w: unknown section %q", model.ErrInvalid, parts[0])
	}
	if _, ok := section[parts[1]]; !ok {
		return nil, fmt.Errorf("%w: unknown key %q", model.ErrInvalid, key)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return nil, fmt.Errorf("%w: value %q: %v", model.ErrInvalid, value, err)
	}
	section[parts[1]] = parsed

	out, err := yaml.Marshal(tree)
	if err != nil {
		return nil, err
	}
	next := &Config{}
	if err := yaml.Unmarshal(out, next); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrInvalid, key, err)
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
