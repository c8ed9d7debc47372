// Package config loads the mind's configuration files: config.json for
// service toggles and tuning overrides, and satellites.toml for the
// registry of sense-producing satellites.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/steveyegge/samara/internal/mind"
)

// Config mirrors config.json. All fields are optional; a missing file
// yields the zero value.
type Config struct {
	// Services toggles surfaces on and off. A surface absent from the
	// map is enabled.
	Services map[string]bool `mapstructure:"services"`

	Stream StreamConfig `mapstructure:"stream"`
}

// StreamConfig holds stream tuning knobs.
type StreamConfig struct {
	HotDigest HotDigestConfig `mapstructure:"hot_digest"`
}

// HotDigestConfig overrides the adaptive-window parameters. Zero values
// mean "use the default".
type HotDigestConfig struct {
	MinHours   float64 `mapstructure:"min_hours"`
	MaxHours   float64 `mapstructure:"max_hours"`
	BaseHours  float64 `mapstructure:"base_hours"`
	TargetRate float64 `mapstructure:"target_rate"`
}

// DefaultHotDigest is the adaptive-window tuning used when config.json
// doesn't override it.
var DefaultHotDigest = HotDigestConfig{
	MinHours:   2,
	MaxHours:   24,
	BaseHours:  12,
	TargetRate: 10,
}

// Load reads config.json from the mind root. A missing file is not an
// error; a malformed one is.
func Load(root mind.Root) (*Config, error) {
	path := root.ConfigFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// ServiceEnabled reports whether a surface is enabled. Surfaces are
// enabled unless explicitly turned off.
func (c *Config) ServiceEnabled(name string) bool {
	if c == nil || c.Services == nil {
		return true
	}
	enabled, ok := c.Services[name]
	if !ok {
		return true
	}
	return enabled
}

// HotDigest returns the adaptive-window tuning with defaults applied for
// any field config.json leaves unset.
func (c *Config) HotDigest() HotDigestConfig {
	out := DefaultHotDigest
	if c == nil {
		return out
	}
	hd := c.Stream.HotDigest
	if hd.MinHours > 0 {
		out.MinHours = hd.MinHours
	}
	if hd.MaxHours > 0 {
		out.MaxHours = hd.MaxHours
	}
	if hd.BaseHours > 0 {
		out.BaseHours = hd.BaseHours
	}
	if hd.TargetRate > 0 {
		out.TargetRate = hd.TargetRate
	}
	return out
}
