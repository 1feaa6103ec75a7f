package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingScriptID = errors.New("policy: script id is required")
	ErrMissingTimeout  = errors.New("policy: timeout is required and must be positive")
	ErrMissingMemory   = errors.New("policy: max memory is required and must be positive")
	ErrMissingLevel    = errors.New("policy: level is required")
)

// Builder accumulates policy fields and produces an immutable
// PermissionPolicy. Required fields are ScriptID, Timeout, MaxMemory and
// Level; everything else defaults to denied.
type Builder struct {
	scriptID   string
	level      Level
	timeout    time.Duration
	maxMemory  int64
	namespaces []string
	apis       []ApiCategory
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithScriptID sets the script instance identifier.
func (b *Builder) WithScriptID(id string) *Builder {
	b.scriptID = id
	return b
}

// WithTimeout sets the wall-clock budget for one execution.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// WithMaxMemory sets the memory ceiling in bytes.
func (b *Builder) WithMaxMemory(bytes int64) *Builder {
	b.maxMemory = bytes
	return b
}

// WithLevel sets the coarse preset level.
func (b *Builder) WithLevel(l Level) *Builder {
	b.level = l
	return b
}

// AllowNamespace grants a host namespace, e.g. "game.data".
func (b *Builder) AllowNamespace(ns string) *Builder {
	b.namespaces = append(b.namespaces, ns)
	return b
}

// AllowAPI grants a single API category.
func (b *Builder) AllowAPI(c ApiCategory) *Builder {
	b.apis = append(b.apis, c)
	return b
}

// Build validates required fields and returns the immutable policy. The
// level seeds its benign categories; explicit AllowAPI grants are unioned on
// top. Unsafe is never seeded by any level.
func (b *Builder) Build() (*PermissionPolicy, error) {
	if strings.TrimSpace(b.scriptID) == "" {
		return nil, ErrMissingScriptID
	}
	if b.timeout <= 0 {
		return nil, ErrMissingTimeout
	}
	if b.maxMemory <= 0 {
		return nil, ErrMissingMemory
	}
	if b.level == "" {
		return nil, ErrMissingLevel
	}
	if _, ok := ParseLevel(string(b.level)); !ok {
		return nil, fmt.Errorf("policy: unknown level %q", b.level)
	}

	apis := make(map[ApiCategory]struct{})
	for _, c := range levelGrants(b.level) {
		apis[c] = struct{}{}
	}
	for _, c := range b.apis {
		if _, ok := ParseCategory(string(c)); !ok {
			return nil, fmt.Errorf("policy: unknown api category %q", c)
		}
		apis[c] = struct{}{}
	}

	namespaces := make(map[string]struct{})
	for _, ns := range b.namespaces {
		ns = strings.TrimSpace(ns)
		if ns == "" {
			return nil, errors.New("policy: namespace grant cannot be empty")
		}
		namespaces[ns] = struct{}{}
	}

	return &PermissionPolicy{
		scriptID:       b.scriptID,
		level:          b.level,
		timeout:        b.timeout,
		maxMemoryBytes: b.maxMemory,
		namespaces:     namespaces,
		apis:           apis,
	}, nil
}
