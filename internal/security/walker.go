package security

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"

	"github.com/modforge/scriptbox/internal/policy"
)

const astPkgPath = "github.com/dop251/goja/ast"

// walker traverses one parsed program and collects violations. Traversal is
// generic over the node structs (reflection-based descent), while the checks
// dispatch on the handful of node types that carry security meaning.
type walker struct {
	pol        *policy.PermissionPolicy
	lines      []int // byte offset of each line start
	lineOffset int   // lines prepended by the parse wrapper
	threshold  int

	violations []SecurityViolation

	// visited guards pointer nodes reachable through more than one edge
	// (declaration lists alias the bindings inside statement bodies).
	visited map[interface{}]bool

	// consumed marks member-access spines and callees a parent node has
	// already accounted for.
	consumed map[interface{}]bool

	fns []*fnFrame
}

type fnFrame struct {
	name       string
	idx        file.Idx
	complexity int
}

func newWalker(source string, lineOffset int, pol *policy.PermissionPolicy, threshold int) *walker {
	lines := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &walker{
		pol:        pol,
		lines:      lines,
		lineOffset: lineOffset,
		threshold:  threshold,
		visited:    make(map[interface{}]bool),
		consumed:   make(map[interface{}]bool),
	}
}

// pos converts a 1-based source index into a line/column of the original
// source, compensating for the parse wrapper's prologue lines.
func (w *walker) pos(idx file.Idx) (line, col int) {
	offset := int(idx) - 1
	if offset < 0 {
		offset = 0
	}
	i := sort.Search(len(w.lines), func(i int) bool { return w.lines[i] > offset }) - 1
	line = i + 1 - w.lineOffset
	if line < 1 {
		line = 1
	}
	return line, offset - w.lines[i] + 1
}

func (w *walker) report(code, category string, sev Severity, idx file.Idx, msg string) {
	line, col := w.pos(idx)
	w.violations = append(w.violations, SecurityViolation{
		Code:     code,
		Category: category,
		Severity: sev,
		Message:  msg,
		Line:     line,
		Column:   col,
	})
}

// flag applies the policy to a restriction before reporting it.
func (w *walker) flag(r restriction, idx file.Idx, msg string) {
	sev := r.severity
	if !r.never && r.unlock != "" && w.pol.Allows(r.unlock) {
		if !r.flagWhenAllowed {
			return
		}
		sev = SeverityWarning
	}
	w.report(r.code, r.category, sev, idx, msg)
}

// walk inspects a node and recurses into its children.
func (w *walker) walk(x interface{}) {
	if x == nil {
		return
	}
	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		if w.visited[x] {
			return
		}
		w.visited[x] = true
	}
	exit := w.inspect(x)
	w.descend(v)
	if exit != nil {
		exit()
	}
}

// descend walks the children of one node value. Only structs belonging to
// the goja ast package are entered, so positions, tokens and source slices
// are skipped naturally.
func (w *walker) descend(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			w.descend(v.Elem())
		}
	case reflect.Struct:
		t := v.Type()
		if t.PkgPath() != astPkgPath {
			return
		}
		// The right-hand identifier of a member access is a property
		// name, not a global reference.
		if t == reflect.TypeOf(ast.DotExpression{}) {
			w.child(v.FieldByName("Left"))
			return
		}
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			if !f.CanInterface() {
				continue
			}
			w.child(f)
		}
	}
}

// child dispatches one struct field or slice element.
func (w *walker) child(v reflect.Value) {
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if !v.IsNil() {
			w.walk(v.Interface())
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			w.child(v.Index(i))
		}
	case reflect.Struct:
		if v.Type().PkgPath() == astPkgPath {
			w.walk(v.Interface())
		}
	}
}

// inspect runs the security checks for one node. The returned function, if
// any, runs after the node's children were walked.
func (w *walker) inspect(x interface{}) func() {
	switch n := x.(type) {
	case *ast.Identifier:
		w.identifier(n)
	case ast.Identifier:
		w.identifier(&n)

	case *ast.DotExpression:
		w.memberChain(n)
	case *ast.BracketExpression:
		w.memberChain(n)

	case *ast.CallExpression:
		w.call(n)

	case *ast.ForStatement:
		w.bump()
		if n.Test == nil || isAlwaysTrue(n.Test) {
			w.suspicious(n.Idx0(), "unconditional 'for' loop; only the runtime timeout bounds it")
		}
	case *ast.WhileStatement:
		w.bump()
		if isAlwaysTrue(n.Test) {
			w.suspicious(n.Idx0(), "unconditional 'while' loop; only the runtime timeout bounds it")
		}
	case *ast.DoWhileStatement:
		w.bump()
		if isAlwaysTrue(n.Test) {
			w.suspicious(n.Idx0(), "unconditional 'do/while' loop; only the runtime timeout bounds it")
		}

	case *ast.IfStatement, *ast.ConditionalExpression, *ast.ForInStatement,
		*ast.ForOfStatement, *ast.CatchStatement:
		w.bump()
	case *ast.CaseStatement:
		if n.Test != nil {
			w.bump()
		}

	case *ast.LabelledStatement:
		w.suspicious(n.Idx0(), "labelled statement enables unstructured jumps")
	case *ast.WithStatement:
		w.suspicious(n.Idx0(), "'with' statement resolves names dynamically")
	case *ast.DebuggerStatement:
		w.suspicious(n.Idx0(), "'debugger' statement")

	case *ast.AwaitExpression:
		w.concurrency(n.Idx0(), "'await' expression")
	case *ast.YieldExpression:
		w.concurrency(n.Idx0(), "'yield' expression")

	case *ast.FunctionLiteral:
		if n.Async {
			w.concurrency(n.Idx0(), "async function")
		}
		name := "<anonymous>"
		if n.Name != nil {
			name = string(n.Name.Name)
		}
		return w.enterFn(name, n.Idx0())
	case *ast.ArrowFunctionLiteral:
		if n.Async {
			w.concurrency(n.Idx0(), "async arrow function")
		}
		return w.enterFn("<arrow>", n.Idx0())
	}
	return nil
}

// identifier flags references to (or shadowing of) restricted globals.
func (w *walker) identifier(n *ast.Identifier) {
	if w.consumed[n] {
		return
	}
	r, ok := restrictedGlobals[string(n.Name)]
	if !ok {
		return
	}
	w.flag(r, n.Idx, fmt.Sprintf("use of restricted identifier %q", string(n.Name)))
}

// memberChain resolves a dotted/bracketed access chain and, when it is
// rooted at the host API, checks it against the namespace allowlist.
func (w *walker) memberChain(e ast.Expression) {
	if w.consumed[e] {
		return
	}
	root, path, complete := chain(e)
	// Mark inner spine expressions handled, but leave the base identifier
	// for the restricted-globals check. Every spine segment is also checked
	// for "constructor": f.constructor aliases the Function intrinsic, so
	// it reopens dynamic code generation no matter what the base is.
	for spine := e; ; {
		if d, ok := spine.(*ast.DotExpression); ok {
			w.consumed[spine] = true
			if string(d.Identifier.Name) == "constructor" {
				w.constructorAccess(d.Identifier.Idx)
			}
			spine = d.Left
			continue
		}
		if b, ok := spine.(*ast.BracketExpression); ok {
			w.consumed[spine] = true
			if s, isStr := b.Member.(*ast.StringLiteral); isStr && string(s.Value) == "constructor" {
				w.constructorAccess(b.LeftBracket)
			}
			spine = b.Left
			continue
		}
		break
	}
	if root == nil || string(root.Name) != hostRoot {
		return
	}
	if !complete {
		w.suspicious(root.Idx, "computed member access on the host namespace defeats static checking")
		return
	}
	if len(path) < 2 {
		return
	}
	ns := strings.Join(path, ".")
	if !w.pol.AllowsNamespace(ns) {
		w.report(CodeForbiddenNamespace, "namespace", SeverityError, root.Idx,
			fmt.Sprintf("namespace %q is not in the policy allowlist", ns))
	}
}

// chain unwinds a member-access chain to its base identifier and dotted
// path. complete is false when a computed member hides part of the path.
func chain(e ast.Expression) (root *ast.Identifier, path []string, complete bool) {
	switch n := e.(type) {
	case *ast.Identifier:
		return n, []string{string(n.Name)}, true
	case *ast.DotExpression:
		r, p, ok := chain(n.Left)
		if r == nil {
			return nil, nil, false
		}
		return r, append(p, string(n.Identifier.Name)), ok
	case *ast.BracketExpression:
		if s, isStr := n.Member.(*ast.StringLiteral); isStr {
			r, p, ok := chain(n.Left)
			if r == nil {
				return nil, nil, false
			}
			return r, append(p, string(s.Value)), ok
		}
		r, _, _ := chain(n.Left)
		return r, nil, false
	}
	return nil, nil, false
}

// call refines require() calls into per-module findings.
func (w *walker) call(n *ast.CallExpression) {
	id, ok := n.Callee.(*ast.Identifier)
	if !ok || string(id.Name) != "require" || len(n.ArgumentList) == 0 {
		return
	}
	str, ok := n.ArgumentList[0].(*ast.StringLiteral)
	if !ok {
		return
	}
	w.consumed[id] = true
	mod := string(str.Value)
	if r, known := restrictedModules[mod]; known {
		w.flag(r, id.Idx, fmt.Sprintf("require(%q) loads a restricted module", mod))
		return
	}
	w.flag(reflectionRestriction, id.Idx,
		fmt.Sprintf("require(%q) performs dynamic module loading", mod))
}

// constructorAccess reports a 'constructor' property access. No capability
// tolerates it: the property reaches the Function intrinsic from any
// function value, which is dynamic code generation by another name.
func (w *walker) constructorAccess(idx file.Idx) {
	w.report(CodeDynamicEval, "dynamic", SeverityCritical, idx,
		"'constructor' property access reaches the Function intrinsic and enables dynamic code generation")
}

func (w *walker) suspicious(idx file.Idx, msg string) {
	w.report(CodeSuspiciousPattern, "pattern", SeverityWarning, idx, msg)
}

func (w *walker) concurrency(idx file.Idx, what string) {
	if w.pol.Allows(policy.Threading) {
		return
	}
	w.report(CodeForbiddenAsync, "concurrency", SeverityError, idx,
		what+" requires the threading capability")
}

// bump increments the complexity of the innermost function, if any.
func (w *walker) bump() {
	if len(w.fns) > 0 {
		w.fns[len(w.fns)-1].complexity++
	}
}

// enterFn opens a complexity frame; the returned closure reports on exit.
// The outermost frame is the parse wrapper, not user code, and is never
// reported.
func (w *walker) enterFn(name string, idx file.Idx) func() {
	synthetic := len(w.fns) == 0
	frame := &fnFrame{name: name, idx: idx, complexity: 1}
	w.fns = append(w.fns, frame)
	return func() {
		w.fns = w.fns[:len(w.fns)-1]
		if !synthetic && frame.complexity > w.threshold {
			w.report(CodeHighComplexity, "complexity", SeverityWarning, frame.idx,
				fmt.Sprintf("function %s has cyclomatic complexity %d (threshold %d)",
					frame.name, frame.complexity, w.threshold))
		}
	}
}

// isAlwaysTrue matches literal loop conditions that can never be false.
func isAlwaysTrue(e ast.Expression) bool {
	switch n := e.(type) {
	case *ast.BooleanLiteral:
		return n.Value
	case *ast.NumberLiteral:
		switch v := n.Value.(type) {
		case int64:
			return v != 0
		case float64:
			return v != 0
		}
	}
	return false
}
