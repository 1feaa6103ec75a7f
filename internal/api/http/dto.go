package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/modforge/scriptbox/internal/config"
	"github.com/modforge/scriptbox/internal/policy"
	"github.com/modforge/scriptbox/internal/security"
	"github.com/modforge/scriptbox/internal/shared/id"
)

// PolicySpec is the wire form of a permission policy. Either Preset names a
// configured preset, or Level plus limits describe the policy inline. The
// namespace and API lists are additive in both cases.
type PolicySpec struct {
	Preset         string   `json:"preset,omitempty"`
	ScriptID       string   `json:"script_id,omitempty"`
	Level          string   `json:"level,omitempty"`
	TimeoutMS      int64    `json:"timeout_ms,omitempty"`
	MaxMemoryBytes int64    `json:"max_memory_bytes,omitempty"`
	Namespaces     []string `json:"namespaces,omitempty"`
	APIs           []string `json:"apis,omitempty"`
}

// ErrUnknownPreset reports a preset name that is not configured.
var ErrUnknownPreset = errors.New("unknown policy preset")

// Build resolves the spec into an immutable policy, applying the service's
// defaults and caps.
func (s PolicySpec) Build(cfg config.SandboxConfig, presets map[string]policy.Preset) (*policy.PermissionPolicy, error) {
	scriptID := s.ScriptID
	if scriptID == "" {
		scriptID = id.NewScriptID().String()
	}

	b := policy.NewBuilder().WithScriptID(scriptID)

	if s.Preset != "" {
		p, ok := presets[s.Preset]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, s.Preset)
		}
		level, ok := policy.ParseLevel(p.Level)
		if !ok {
			return nil, fmt.Errorf("preset %q has unknown level %q", p.Name, p.Level)
		}
		timeout, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return nil, fmt.Errorf("preset %q has invalid timeout: %w", p.Name, err)
		}
		b.WithLevel(level).
			WithTimeout(timeout).
			WithMaxMemory(p.MaxMemoryBytes)
		for _, ns := range p.Namespaces {
			b.AllowNamespace(ns)
		}
		for _, api := range p.APIs {
			cat, ok := policy.ParseCategory(api)
			if !ok {
				return nil, fmt.Errorf("preset %q has unknown api category %q", p.Name, api)
			}
			b.AllowAPI(cat)
		}
	} else {
		level, ok := policy.ParseLevel(s.Level)
		if !ok {
			return nil, fmt.Errorf("unknown policy level %q", s.Level)
		}
		b.WithLevel(level)

		timeout := cfg.DefaultTimeout
		if s.TimeoutMS > 0 {
			timeout = time.Duration(s.TimeoutMS) * time.Millisecond
		}
		if timeout > cfg.MaxTimeout {
			timeout = cfg.MaxTimeout
		}
		b.WithTimeout(timeout)

		maxMemory := cfg.DefaultMaxMemory
		if s.MaxMemoryBytes > 0 {
			maxMemory = s.MaxMemoryBytes
		}
		b.WithMaxMemory(maxMemory)
	}

	for _, ns := range s.Namespaces {
		b.AllowNamespace(ns)
	}
	for _, name := range s.APIs {
		cat, ok := policy.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("unknown api category %q", name)
		}
		b.AllowAPI(cat)
	}
	return b.Build()
}

// ValidateRequest asks for static validation only.
type ValidateRequest struct {
	Source string     `json:"source"`
	Policy PolicySpec `json:"policy"`
}

// ValidateResponse is the validation verdict with its findings.
type ValidateResponse struct {
	Valid      bool                         `json:"valid"`
	Summary    string                       `json:"summary"`
	Violations []security.SecurityViolation `json:"violations"`
}

// ExecuteRequest asks for a full validate-compile-run cycle.
type ExecuteRequest struct {
	Source     string        `json:"source"`
	EntryPoint string        `json:"entry_point,omitempty"`
	Args       []interface{} `json:"args,omitempty"`
	Policy     PolicySpec    `json:"policy"`
	Seed       int64         `json:"seed,omitempty"`
}
