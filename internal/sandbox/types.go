package sandbox

import (
	"fmt"
	"time"

	"github.com/modforge/scriptbox/internal/capability"
	"github.com/modforge/scriptbox/internal/security"
	"github.com/modforge/scriptbox/internal/shared/id"
)

// ErrKind classifies why an execution did not succeed.
type ErrKind string

const (
	ErrValidationRejected  ErrKind = "validation_rejected"
	ErrCompilationFailed   ErrKind = "compilation_failed"
	ErrRuntimeFault        ErrKind = "runtime_fault"
	ErrTimeout             ErrKind = "timeout"
	ErrMemoryLimitExceeded ErrKind = "memory_limit_exceeded"
)

// ExecError describes a failed execution. Violations is populated only for
// validation rejections. Messages carry the script's own diagnostics, never
// host stack traces.
type ExecError struct {
	Kind       ErrKind                      `json:"kind"`
	Message    string                       `json:"message"`
	Violations []security.SecurityViolation `json:"violations,omitempty"`
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ExecutionResult is the complete outcome of one Execute call. It is owned
// by the caller; the sandbox retains no reference after returning.
type ExecutionResult struct {
	ExecutionID id.ExecutionID `json:"execution_id"`
	ScriptID    string         `json:"script_id"`

	Success bool        `json:"success"`
	Value   interface{} `json:"value,omitempty"`
	Err     *ExecError  `json:"error,omitempty"`

	Duration            time.Duration `json:"duration"`
	MemoryUsed          int64         `json:"memory_used"`
	TimedOut            bool          `json:"timed_out"`
	MemoryLimitExceeded bool          `json:"memory_limit_exceeded"`

	// SecurityEvents is the ordered audit trail of the call's lifecycle.
	SecurityEvents []string `json:"security_events"`

	Console          []capability.LogEntry `json:"console,omitempty"`
	ConsoleTruncated bool                  `json:"console_truncated,omitempty"`
}
