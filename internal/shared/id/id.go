// Package id provides centralized ID generation for the sandbox service.
//
// IDs are prefixed ULIDs (scr_*, exec_*, req_*): lexicographically sortable,
// unique without coordination, and readable in logs. Separate Go types keep
// a script ID from being passed where an execution ID is expected.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ScriptID identifies one registered script instance.
type ScriptID string

// ExecutionID identifies one sandboxed execution.
type ExecutionID string

// RequestID identifies one API request.
type RequestID string

const (
	ScriptPrefix    = "scr"
	ExecutionPrefix = "exec"
	RequestPrefix   = "req"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewScriptID generates a new script ID.
func NewScriptID() ScriptID {
	return ScriptID(Default().GenerateWithPrefix(ScriptPrefix))
}

// NewExecutionID generates a new execution ID.
func NewExecutionID() ExecutionID {
	return ExecutionID(Default().GenerateWithPrefix(ExecutionPrefix))
}

// NewRequestID generates a new request ID.
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

func (id ScriptID) String() string    { return string(id) }
func (id ExecutionID) String() string { return string(id) }
func (id RequestID) String() string   { return string(id) }

// IsValid checks whether an ID carries the given prefix and a parseable ULID.
func IsValid(id, prefix string) bool {
	raw, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(raw)
	return err == nil
}

// Timestamp extracts the creation time from a prefixed ID.
func Timestamp(id string) (time.Time, error) {
	raw := id
	if i := strings.IndexByte(id, '_'); i >= 0 {
		raw = id[i+1:]
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
