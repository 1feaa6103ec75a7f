package security

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dop251/goja/parser"

	"github.com/modforge/scriptbox/internal/policy"
)

// DefaultComplexityThreshold is the cyclomatic complexity above which a
// function is reported.
const DefaultComplexityThreshold = 10

// Validator inspects script source against a permission policy without
// executing anything. Validators are stateless and safe for concurrent use.
type Validator struct {
	complexityThreshold int
}

// Option customizes a Validator.
type Option func(*Validator)

// WithComplexityThreshold overrides the complexity warning threshold.
func WithComplexityThreshold(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.complexityThreshold = n
		}
	}
}

// NewValidator creates a validator with default settings.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{complexityThreshold: DefaultComplexityThreshold}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// goja parse errors embed their position as "Line L:C".
var syntaxPos = regexp.MustCompile(`Line (\d+):(\d+)`)

// Scripts run as a function body so top-level return is legal; validation
// parses the same shape. The prologue is exactly one line, which pos()
// subtracts when reporting.
const (
	parsePrologue     = "(function(){ \"use strict\";\n"
	parseEpilogue     = "\n})()"
	parsePrologueRows = 1
)

// Validate is a pure function of (source, policy): identical inputs yield an
// identical result. A nil policy is caller misuse and panics; untrusted
// input can never panic.
func (v *Validator) Validate(source string, pol *policy.PermissionPolicy) *ValidationResult {
	if pol == nil {
		panic("security: Validate called with nil policy")
	}

	if strings.TrimSpace(source) == "" {
		return &ValidationResult{Violations: []SecurityViolation{{
			Code:     CodeEmptyCode,
			Category: "syntax",
			Severity: SeverityError,
			Message:  "script source is empty or whitespace only",
			Line:     1,
			Column:   1,
		}}}
	}

	wrapped := parsePrologue + source + parseEpilogue
	prog, err := parser.ParseFile(nil, "script.js", wrapped, 0)
	if err != nil {
		line, col := 1, 1
		if m := syntaxPos.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
			col, _ = strconv.Atoi(m[2])
			if line -= parsePrologueRows; line < 1 {
				line = 1
			}
		}
		return &ValidationResult{Violations: []SecurityViolation{{
			Code:     CodeSyntaxError,
			Category: "syntax",
			Severity: SeverityError,
			Message:  firstLine(err.Error()),
			Line:     line,
			Column:   col,
		}}}
	}

	w := newWalker(wrapped, parsePrologueRows, pol, v.complexityThreshold)
	w.walk(prog)

	violations := w.violations
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		if violations[i].Column != violations[j].Column {
			return violations[i].Column < violations[j].Column
		}
		return violations[i].Code < violations[j].Code
	})
	return &ValidationResult{Violations: violations}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
