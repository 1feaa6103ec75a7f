package policy

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Preset is a named policy template. Unlike a PermissionPolicy it carries no
// script identity; Policy stamps one out per script instance.
type Preset struct {
	Name           string   `yaml:"name" json:"name"`
	Level          string   `yaml:"level" json:"level"`
	Timeout        string   `yaml:"timeout" json:"timeout"`
	MaxMemoryBytes int64    `yaml:"max_memory_bytes" json:"max_memory_bytes"`
	Namespaces     []string `yaml:"namespaces" json:"namespaces"`
	APIs           []string `yaml:"apis" json:"apis"`
}

// presetFile is the on-disk shape of a preset document.
type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Policy builds a concrete policy from the preset for one script instance.
func (p Preset) Policy(scriptID string) (*PermissionPolicy, error) {
	level, ok := ParseLevel(p.Level)
	if !ok {
		return nil, fmt.Errorf("policy: preset %q has unknown level %q", p.Name, p.Level)
	}
	timeout, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return nil, fmt.Errorf("policy: preset %q has invalid timeout: %w", p.Name, err)
	}

	b := NewBuilder().
		WithScriptID(scriptID).
		WithLevel(level).
		WithTimeout(timeout).
		WithMaxMemory(p.MaxMemoryBytes)
	for _, ns := range p.Namespaces {
		b.AllowNamespace(ns)
	}
	for _, api := range p.APIs {
		c, ok := ParseCategory(api)
		if !ok {
			return nil, fmt.Errorf("policy: preset %q has unknown api category %q", p.Name, api)
		}
		b.AllowAPI(c)
	}
	return b.Build()
}

// ParsePresets decodes a YAML preset document.
func ParsePresets(data []byte) (map[string]Preset, error) {
	var doc presetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("policy: failed to parse presets: %w", err)
	}
	out := make(map[string]Preset, len(doc.Presets))
	for _, p := range doc.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("policy: preset without a name")
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("policy: duplicate preset %q", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadPresetFile reads and decodes a YAML preset file.
func LoadPresetFile(path string) (map[string]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: failed to read preset file: %w", err)
	}
	return ParsePresets(data)
}

// BuiltinPresets returns the permission tiers shipped with the service.
func BuiltinPresets() map[string]Preset {
	return map[string]Preset{
		"mod-restricted": {
			Name:           "mod-restricted",
			Level:          string(Restricted),
			Timeout:        "2s",
			MaxMemoryBytes: 32 << 20,
			Namespaces:     []string{"game.data"},
		},
		"mod-standard": {
			Name:           "mod-standard",
			Level:          string(Elevated),
			Timeout:        "5s",
			MaxMemoryBytes: 64 << 20,
			Namespaces:     []string{"game.data", "game.entities", "game.events"},
		},
		"mod-trusted": {
			Name:           "mod-trusted",
			Level:          string(Unrestricted),
			Timeout:        "30s",
			MaxMemoryBytes: 256 << 20,
			Namespaces:     []string{"game"},
		},
	}
}
