package policy

import (
	"sort"
	"strings"
	"time"
)

// ApiCategory names a bundle of operations a script may use only when the
// policy explicitly grants it.
type ApiCategory string

const (
	Core           ApiCategory = "core"
	Collections    ApiCategory = "collections"
	GameStateRead  ApiCategory = "game_state_read"
	GameStateWrite ApiCategory = "game_state_write"
	Logging        ApiCategory = "logging"
	Random         ApiCategory = "random"
	DateTime       ApiCategory = "datetime"
	Serialization  ApiCategory = "serialization"
	FileIO         ApiCategory = "file_io"
	Network        ApiCategory = "network"
	Reflection     ApiCategory = "reflection"
	Threading      ApiCategory = "threading"
	Unsafe         ApiCategory = "unsafe"
)

// Categories lists every known category in stable order.
func Categories() []ApiCategory {
	return []ApiCategory{
		Core, Collections, GameStateRead, GameStateWrite, Logging,
		Random, DateTime, Serialization, FileIO, Network, Reflection,
		Threading, Unsafe,
	}
}

// ParseCategory resolves a category name as used in API payloads and preset
// files.
func ParseCategory(s string) (ApiCategory, bool) {
	c := ApiCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return known, true
		}
	}
	return "", false
}

// Level is a coarse preset that seeds the benign portion of the capability
// set. It never grants Unsafe, which must always be explicit.
type Level string

const (
	Restricted   Level = "restricted"
	Elevated     Level = "elevated"
	Unrestricted Level = "unrestricted"
)

// ParseLevel resolves a level name.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case Restricted:
		return Restricted, true
	case Elevated:
		return Elevated, true
	case Unrestricted:
		return Unrestricted, true
	}
	return "", false
}

// levelGrants returns the categories a level seeds into the allowed set.
func levelGrants(l Level) []ApiCategory {
	switch l {
	case Restricted:
		return []ApiCategory{Core, Collections, Logging}
	case Elevated:
		return []ApiCategory{
			Core, Collections, Logging,
			GameStateRead, GameStateWrite, Random, DateTime, Serialization,
		}
	case Unrestricted:
		return []ApiCategory{
			Core, Collections, Logging,
			GameStateRead, GameStateWrite, Random, DateTime, Serialization,
			FileIO, Network, Reflection, Threading,
		}
	}
	return nil
}

// PermissionPolicy is the immutable capability and resource contract for one
// script context. A built policy is read-only and safe to share across
// concurrent executions.
type PermissionPolicy struct {
	scriptID       string
	level          Level
	timeout        time.Duration
	maxMemoryBytes int64
	namespaces     map[string]struct{}
	apis           map[ApiCategory]struct{}
}

// ScriptID identifies the script instance for logging and isolation.
func (p *PermissionPolicy) ScriptID() string { return p.scriptID }

// Level returns the coarse preset the policy was built with.
func (p *PermissionPolicy) Level() Level { return p.level }

// Timeout is the wall-clock budget for one execution.
func (p *PermissionPolicy) Timeout() time.Duration { return p.timeout }

// MaxMemoryBytes is the soft ceiling on memory growth attributable to one
// execution.
func (p *PermissionPolicy) MaxMemoryBytes() int64 { return p.maxMemoryBytes }

// Allows reports whether an API category was granted.
func (p *PermissionPolicy) Allows(c ApiCategory) bool {
	_, ok := p.apis[c]
	return ok
}

// AllowsNamespace reports whether a host namespace was granted. A grant of
// "game.data" covers "game.data" itself and any segment below it
// ("game.data.items"), never a sibling ("game.database").
func (p *PermissionPolicy) AllowsNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for allowed := range p.namespaces {
		if ns == allowed || strings.HasPrefix(ns, allowed+".") {
			return true
		}
	}
	return false
}

// AllowedAPIs returns a sorted copy of the granted categories.
func (p *PermissionPolicy) AllowedAPIs() []ApiCategory {
	out := make([]ApiCategory, 0, len(p.apis))
	for c := range p.apis {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AllowedNamespaces returns a sorted copy of the granted namespaces.
func (p *PermissionPolicy) AllowedNamespaces() []string {
	out := make([]string, 0, len(p.namespaces))
	for ns := range p.namespaces {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}
