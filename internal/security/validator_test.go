package security

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/modforge/scriptbox/internal/policy"
)

func testPolicy(t *testing.T, level policy.Level, namespaces []string, apis ...policy.ApiCategory) *policy.PermissionPolicy {
	t.Helper()
	b := policy.NewBuilder().
		WithScriptID("scr_test").
		WithTimeout(time.Second).
		WithMaxMemory(16 << 20).
		WithLevel(level)
	for _, ns := range namespaces {
		b.AllowNamespace(ns)
	}
	for _, c := range apis {
		b.AllowAPI(c)
	}
	pol, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build policy: %v", err)
	}
	return pol
}

func hasCode(r *ValidationResult, code string) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

func TestValidateForbiddenFamilies(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	tests := []struct {
		name     string
		source   string
		wantCode string
	}{
		{
			name:     "network fetch",
			source:   `fetch("http://example.com");`,
			wantCode: CodeForbiddenNetwork,
		},
		{
			name:     "network xhr",
			source:   `var x = new XMLHttpRequest();`,
			wantCode: CodeForbiddenNetwork,
		},
		{
			name:     "file module",
			source:   `var f = require("fs"); f.readFileSync("/etc/passwd");`,
			wantCode: CodeForbiddenFileIO,
		},
		{
			name:     "process control",
			source:   `process.exit(1);`,
			wantCode: CodeForbiddenProcess,
		},
		{
			name:     "child process module",
			source:   `require("child_process").exec("rm -rf /");`,
			wantCode: CodeForbiddenProcess,
		},
		{
			name:     "reflection",
			source:   `Reflect.get(target, "secret");`,
			wantCode: CodeForbiddenReflection,
		},
		{
			name:     "proxy trap",
			source:   `var p = new Proxy({}, handler);`,
			wantCode: CodeForbiddenReflection,
		},
		{
			name:     "global escape",
			source:   `globalThis["fet" + "ch"];`,
			wantCode: CodeForbiddenReflection,
		},
		{
			name:     "eval",
			source:   `eval("1 + 1");`,
			wantCode: CodeDynamicEval,
		},
		{
			name:     "function constructor",
			source:   `var f = new Function("return 1");`,
			wantCode: CodeDynamicEval,
		},
		{
			name:     "webassembly",
			source:   `WebAssembly.instantiate(buf);`,
			wantCode: CodeForbiddenUnsafe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.source, pol)
			if result.IsValid() {
				t.Fatalf("expected invalid result, got valid (violations: %v)", result.Violations)
			}
			if !hasCode(result, tt.wantCode) {
				t.Errorf("expected code %s, got %v", tt.wantCode, result.Violations)
			}
			if !result.HasCritical() {
				t.Errorf("expected at least one critical violation, got %v", result.Violations)
			}
		})
	}
}

func TestValidateCleanSource(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, []string{"game.data"})

	source := `
		function main(bonus) {
			var total = 0;
			var items = game.data.keys();
			for (var i = 0; i < items.length; i++) {
				total += i;
			}
			return total + bonus;
		}
	`
	result := validator.Validate(source, pol)
	if !result.IsValid() {
		t.Fatalf("expected valid result, got: %s", result.Summary())
	}
	if len(result.Violations) != 0 {
		t.Errorf("expected no violations, got %v", result.Violations)
	}
}

func TestValidateIgnoresStringsAndComments(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "string literal",
			source: `var s = "fetch('http://evil'); process.exit(1); eval('x')";`,
		},
		{
			name: "line comment",
			source: `// fetch("http://evil.example")
var a = 1;`,
		},
		{
			name: "block comment",
			source: `/* require("fs").unlinkSync("/");
   eval("while(true){}") */
var b = 2;`,
		},
		{
			name:   "property name",
			source: `var obj = { count: 1 }; obj.fetch = null;`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.source, pol)
			if !result.IsValid() {
				t.Errorf("false positive on non-executable text: %v", result.Violations)
			}
		})
	}
}

func TestValidateDeterminism(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, []string{"game.data"})

	source := `
		fetch("http://a");
		while (true) { game.audio.play("boom"); }
		function big(x) { if (x) { return eval("x"); } return 0; }
	`
	first := validator.Validate(source, pol)
	second := validator.Validate(source, pol)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("validation is not deterministic:\nfirst:  %v\nsecond: %v",
			first.Violations, second.Violations)
	}
	if len(first.Violations) == 0 {
		t.Fatal("expected violations for adversarial source")
	}
}

func TestValidateEmptySource(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	for _, source := range []string{"", "   ", "\n\t\n"} {
		result := validator.Validate(source, pol)
		if len(result.Violations) != 1 || result.Violations[0].Code != CodeEmptyCode {
			t.Errorf("source %q: expected single EMPTY_CODE violation, got %v",
				source, result.Violations)
		}
		if result.IsValid() {
			t.Errorf("source %q: empty code must not validate", source)
		}
	}
}

func TestValidateSyntaxError(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	result := validator.Validate("var a = ;", pol)
	if len(result.Violations) != 1 || result.Violations[0].Code != CodeSyntaxError {
		t.Fatalf("expected single SYNTAX_ERROR violation, got %v", result.Violations)
	}
	if result.IsValid() {
		t.Error("syntax errors must not validate")
	}
}

func TestValidateNilPolicyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil policy")
		}
	}()
	NewValidator().Validate("var a = 1;", nil)
}

func TestValidateConcurrencyConstructs(t *testing.T) {
	validator := NewValidator()
	denied := testPolicy(t, policy.Restricted, nil)
	allowed := testPolicy(t, policy.Restricted, nil, policy.Threading)

	tests := []struct {
		name   string
		source string
	}{
		{name: "async function", source: `async function tick() { return 1; }`},
		{name: "await", source: `async function tick() { await wait(); }`},
		{name: "generator", source: `function gen() { return 1; } function outer() { var g = function*(){ yield 1; }; }`},
		{name: "promise", source: `var p = new Promise(function(res) { res(1); });`},
		{name: "timer", source: `setTimeout(function() {}, 100);`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.source, denied)
			if result.IsValid() {
				t.Errorf("expected FORBIDDEN_ASYNC without threading capability, got %v",
					result.Violations)
			}
			if !hasCode(result, CodeForbiddenAsync) {
				t.Errorf("expected code FORBIDDEN_ASYNC, got %v", result.Violations)
			}

			result = validator.Validate(tt.source, allowed)
			if hasCode(result, CodeForbiddenAsync) {
				t.Errorf("threading capability should clear FORBIDDEN_ASYNC, got %v",
					result.Violations)
			}
		})
	}
}

func TestValidateReflectionDowngrade(t *testing.T) {
	validator := NewValidator()
	allowed := testPolicy(t, policy.Restricted, nil, policy.Reflection)

	// Reflect is tolerated at Warning severity when the capability is
	// granted; eval never is.
	result := validator.Validate(`Reflect.ownKeys({});`, allowed)
	if !result.IsValid() {
		t.Fatalf("Reflect with reflection capability should validate, got %v", result.Violations)
	}
	if !hasCode(result, CodeForbiddenReflection) {
		t.Error("Reflect use should still be recorded as a warning")
	}

	result = validator.Validate(`eval("1");`, allowed)
	if result.IsValid() || !result.HasCritical() {
		t.Errorf("eval must stay critical regardless of capabilities, got %v", result.Violations)
	}
}

func TestValidateSuspiciousPatternsWarnOnly(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	tests := []struct {
		name   string
		source string
	}{
		{name: "while true", source: `function spin() { while (true) { } }`},
		{name: "bare for", source: `function spin() { for (;;) { } }`},
		{name: "while one", source: `function spin() { while (1) { } }`},
		{name: "labelled jump", source: `outer: for (var i = 0; i < 2; i++) { break outer; }`},
		{name: "debugger", source: `var a = 1; debugger;`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.source, pol)
			if !hasCode(result, CodeSuspiciousPattern) {
				t.Fatalf("expected SUSPICIOUS_PATTERN, got %v", result.Violations)
			}
			// Heuristics warn; the runtime timeout is the backstop.
			if !result.IsValid() {
				t.Errorf("suspicious patterns alone must not block execution: %v",
					result.Violations)
			}
		})
	}
}

func TestValidateNamespaceAllowlist(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, []string{"game.data"})

	result := validator.Validate(`game.audio.play("boom");`, pol)
	if result.IsValid() || !hasCode(result, CodeForbiddenNamespace) {
		t.Fatalf("expected FORBIDDEN_NAMESPACE for game.audio, got %v", result.Violations)
	}

	result = validator.Validate(`game.data.items.count();`, pol)
	if !result.IsValid() {
		t.Fatalf("game.data subtree is allowed, got %v", result.Violations)
	}

	// Bracket access with a literal member resolves like dot access.
	result = validator.Validate(`game["audio"].play("boom");`, pol)
	if !hasCode(result, CodeForbiddenNamespace) {
		t.Fatalf("bracket access should resolve namespaces, got %v", result.Violations)
	}
}

func TestValidateComplexity(t *testing.T) {
	validator := NewValidator(WithComplexityThreshold(3))
	pol := testPolicy(t, policy.Restricted, nil)

	source := `
		function tangled(x) {
			if (x > 0) { x--; }
			if (x > 1) { x--; }
			if (x > 2) { x--; }
			if (x > 3) { x--; }
			return x;
		}
	`
	result := validator.Validate(source, pol)
	if !hasCode(result, CodeHighComplexity) {
		t.Fatalf("expected HIGH_COMPLEXITY, got %v", result.Violations)
	}
	if !result.IsValid() {
		t.Error("complexity findings are warnings, not blockers")
	}
}

func TestValidatePositions(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	source := "var a = 1;\nvar b = 2;\nfetch(\"http://example.com\");\n"
	result := validator.Validate(source, pol)
	if len(result.Violations) != 1 {
		t.Fatalf("expected one violation, got %v", result.Violations)
	}
	v := result.Violations[0]
	if v.Line != 3 || v.Column != 1 {
		t.Errorf("expected position 3:1, got %d:%d", v.Line, v.Column)
	}
}

func TestValidationSummary(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	result := validator.Validate(`fetch("x"); while(true){}`, pol)
	summary := result.Summary()
	if !strings.Contains(summary, "critical") || !strings.Contains(summary, "warning") {
		t.Errorf("summary should mention severities, got %q", summary)
	}

	clean := validator.Validate(`var ok = 1;`, pol)
	if clean.Summary() != "no violations" {
		t.Errorf("unexpected summary for clean source: %q", clean.Summary())
	}
}

func TestValidateConstructorAccess(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	tests := []struct {
		name   string
		source string
	}{
		{
			name:   "dot access aliases the Function intrinsic",
			source: `var F = (function(){}).constructor; return F("return 6*7")();`,
		},
		{
			name:   "bracket access with a string literal",
			source: `var f = function(){}; return f["constructor"]("return 1")();`,
		},
		{
			name:   "constructor deep in a member chain",
			source: `return [].slice.constructor("return 2")();`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(tt.source, pol)
			if result.IsValid() {
				t.Fatalf("constructor access must not validate: %v", result.Violations)
			}
			if !hasCode(result, CodeDynamicEval) {
				t.Errorf("expected DYNAMIC_EVAL, got %v", result.Violations)
			}
			if !result.HasCritical() {
				t.Errorf("constructor access must be critical: %v", result.Violations)
			}
		})
	}

	// Reflection does not unlock it; code generation is never tolerated.
	elevated := testPolicy(t, policy.Unrestricted, nil, policy.Reflection)
	result := validator.Validate(tests[0].source, elevated)
	if !result.HasCritical() {
		t.Errorf("constructor access must stay critical under reflection: %v", result.Violations)
	}
}

func TestValidateConstructorPropertyKey(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	// A property named constructor in an object literal is data, not an
	// access to the intrinsic.
	result := validator.Validate(`var shape = { constructor: "circle" }; return shape.kind;`, pol)
	if hasCode(result, CodeDynamicEval) {
		t.Errorf("object literal key must not be flagged: %v", result.Violations)
	}
}

func TestValidateZeroValuedLoopCondition(t *testing.T) {
	validator := NewValidator()
	pol := testPolicy(t, policy.Restricted, nil)

	result := validator.Validate("var i = 0;\nwhile (0.0) { i += 1; }\nreturn i;", pol)
	if hasCode(result, CodeSuspiciousPattern) {
		t.Errorf("while (0.0) can terminate, got %v", result.Violations)
	}

	result = validator.Validate("while (1.0) { }", pol)
	if !hasCode(result, CodeSuspiciousPattern) {
		t.Errorf("while (1.0) is unconditional, got %v", result.Violations)
	}
}
