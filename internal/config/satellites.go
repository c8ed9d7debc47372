package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/steveyegge/samara/internal/mind"
)

// Manifest is the satellite registry from satellites.toml. It maps sense
// names to surfaces and declares which surfaces the audit should expect
// to see traffic on.
type Manifest struct {
	Satellite []Satellite `toml:"satellite"`
}

// Satellite describes one sense-producing process.
type Satellite struct {
	Name        string `toml:"name"`
	Surface     string `toml:"surface"`
	Enabled     *bool  `toml:"enabled"`
	Description string `toml:"description"`
}

// IsEnabled reports whether the satellite is active. Entries without an
// explicit enabled flag are active.
func (s Satellite) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadManifest reads satellites.toml from the mind root.
// Returns (nil, nil) if the manifest is not present.
func LoadManifest(root mind.Root) (*Manifest, error) {
	data, err := os.ReadFile(root.SatellitesFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading satellite manifest: %w", err)
	}

	var manifest Manifest
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return nil, fmt.Errorf("parsing satellite manifest: %w", err)
	}
	return &manifest, nil
}

// SurfaceFor returns the surface a sense name maps to, if the manifest
// declares one. Lookup is case-insensitive on the satellite name.
func (m *Manifest) SurfaceFor(sense string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, s := range m.Satellite {
		if strings.EqualFold(s.Name, sense) && s.IsEnabled() && s.Surface != "" {
			return s.Surface, true
		}
	}
	return "", false
}

// Surfaces returns the surfaces of all enabled satellites, deduplicated
// in manifest order.
func (m *Manifest) Surfaces() []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range m.Satellite {
		if !s.IsEnabled() || s.Surface == "" {
			continue
		}
		if !seen[s.Surface] {
			seen[s.Surface] = true
			out = append(out, s.Surface)
		}
	}
	return out
}

// Disabled returns the surfaces every enabled satellite has abandoned:
// surfaces that appear only on disabled entries.
func (m *Manifest) Disabled() []string {
	if m == nil {
		return nil
	}
	active := make(map[string]bool)
	for _, s := range m.Satellite {
		if s.IsEnabled() && s.Surface != "" {
			active[s.Surface] = true
		}
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range m.Satellite {
		if s.IsEnabled() || s.Surface == "" || active[s.Surface] {
			continue
		}
		if !seen[s.Surface] {
			seen[s.Surface] = true
			out = append(out, s.Surface)
		}
	}
	return out
}
