package security

import (
	"fmt"
	"strings"
)

// Severity grades a violation. Warnings never block execution on their own;
// Error and Critical findings do.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityCritical
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText renders the severity name in JSON/YAML payloads.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the severity name produced by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Stable violation codes.
const (
	CodeEmptyCode           = "EMPTY_CODE"
	CodeSyntaxError         = "SYNTAX_ERROR"
	CodeForbiddenFileIO     = "FORBIDDEN_FILEIO"
	CodeForbiddenNetwork    = "FORBIDDEN_NETWORK"
	CodeForbiddenProcess    = "FORBIDDEN_PROCESS"
	CodeForbiddenReflection = "FORBIDDEN_REFLECTION"
	CodeForbiddenUnsafe     = "FORBIDDEN_UNSAFE"
	CodeForbiddenAsync      = "FORBIDDEN_ASYNC"
	CodeForbiddenNamespace  = "FORBIDDEN_NAMESPACE"
	CodeDynamicEval         = "DYNAMIC_EVAL"
	CodeSuspiciousPattern   = "SUSPICIOUS_PATTERN"
	CodeHighComplexity      = "HIGH_COMPLEXITY"
)

// SecurityViolation is a single static-analysis finding. Line and Column are
// 1-based positions into the original source.
type SecurityViolation struct {
	Code     string   `json:"code"`
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

// String renders a single-line diagnostic.
func (v SecurityViolation) String() string {
	return fmt.Sprintf("%d:%d [%s] %s: %s", v.Line, v.Column, v.Severity, v.Code, v.Message)
}

// ValidationResult is the ordered list of findings for one (source, policy)
// pair. Violations are sorted by line, then column, then code.
type ValidationResult struct {
	Violations []SecurityViolation `json:"violations"`
}

// IsValid reports whether the source may proceed to compilation: true iff no
// violation is at Error severity or above.
func (r *ValidationResult) IsValid() bool {
	for _, v := range r.Violations {
		if v.Severity >= SeverityError {
			return false
		}
	}
	return true
}

// HasErrors reports whether any violation is at Error severity or above.
func (r *ValidationResult) HasErrors() bool {
	return !r.IsValid()
}

// HasCritical reports whether any violation is Critical.
func (r *ValidationResult) HasCritical() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Summary renders a one-line digest suitable for logs and API payloads.
func (r *ValidationResult) Summary() string {
	if len(r.Violations) == 0 {
		return "no violations"
	}
	var warnings, errors, criticals int
	for _, v := range r.Violations {
		switch v.Severity {
		case SeverityCritical:
			criticals++
		case SeverityError:
			errors++
		default:
			warnings++
		}
	}
	parts := make([]string, 0, 3)
	if criticals > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", criticals))
	}
	if errors > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errors))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	return fmt.Sprintf("%d violation(s): %s", len(r.Violations), strings.Join(parts, ", "))
}
