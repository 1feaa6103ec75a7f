package capability

import (
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/modforge/scriptbox/internal/policy"
)

// DefaultConsoleLimit bounds how many log entries one execution may emit.
const DefaultConsoleLimit = 1000

// LogEntry is one console call captured during execution.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Console captures a script's console output instead of writing it to the
// host's stdout. One Console serves one execution.
type Console struct {
	mu        sync.Mutex
	limit     int
	entries   []LogEntry
	truncated bool
}

// NewConsole creates a console with the given entry limit; limit <= 0 uses
// DefaultConsoleLimit.
func NewConsole(limit int) *Console {
	if limit <= 0 {
		limit = DefaultConsoleLimit
	}
	return &Console{limit: limit}
}

// Category implements Injector.
func (c *Console) Category() policy.ApiCategory { return policy.Logging }

// Inject binds the console object with log, info, warn, error and debug.
func (c *Console) Inject(vm *goja.Runtime, _ *policy.PermissionPolicy) error {
	obj := vm.NewObject()
	for name, level := range map[string]string{
		"log":   "info",
		"info":  "info",
		"warn":  "warn",
		"error": "error",
		"debug": "debug",
	} {
		if err := obj.Set(name, c.sink(level)); err != nil {
			return err
		}
	}
	return vm.Set("console", obj)
}

func (c *Console) sink(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		c.append(level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func (c *Console) append(level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.limit {
		c.truncated = true
		return
	}
	c.entries = append(c.entries, LogEntry{
		Level:   level,
		Message: message,
		Time:    time.Now(),
	})
}

// Entries returns a copy of everything captured so far.
func (c *Console) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Truncated reports whether output was dropped after hitting the limit.
func (c *Console) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}
