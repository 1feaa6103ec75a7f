package security

import "github.com/modforge/scriptbox/internal/policy"

// hostRoot is the identifier under which the capability surface injects the
// host API. Member access below it is checked against the policy's
// namespace allowlist.
const hostRoot = "game"

// restriction describes why a global identifier is sensitive and which
// capability, if any, unlocks it.
type restriction struct {
	code     string
	category string
	unlock   policy.ApiCategory
	severity Severity

	// flagWhenAllowed keeps reflection-style entries visible at Warning
	// severity even when the unlocking capability was granted: dynamic
	// activation is audit-worthy regardless of policy.
	flagWhenAllowed bool

	// never marks constructs that no capability tolerates (eval and the
	// Function constructor bypass static analysis entirely).
	never bool
}

var (
	fileRestriction = restriction{
		code: CodeForbiddenFileIO, category: "namespace",
		unlock: policy.FileIO, severity: SeverityCritical,
	}
	networkRestriction = restriction{
		code: CodeForbiddenNetwork, category: "namespace",
		unlock: policy.Network, severity: SeverityCritical,
	}
	processRestriction = restriction{
		code: CodeForbiddenProcess, category: "namespace",
		unlock: policy.Unsafe, severity: SeverityCritical,
	}
	unsafeRestriction = restriction{
		code: CodeForbiddenUnsafe, category: "unsafe",
		unlock: policy.Unsafe, severity: SeverityCritical,
	}
	reflectionRestriction = restriction{
		code: CodeForbiddenReflection, category: "dynamic",
		unlock: policy.Reflection, severity: SeverityCritical,
		flagWhenAllowed: true,
	}
	evalRestriction = restriction{
		code: CodeDynamicEval, category: "dynamic",
		severity: SeverityCritical, never: true,
	}
	threadingRestriction = restriction{
		code: CodeForbiddenAsync, category: "concurrency",
		unlock: policy.Threading, severity: SeverityError,
	}
)

// restrictedGlobals maps sensitive global identifiers to their restriction.
// Referencing (or shadowing) one of these names is flagged; text inside
// strings and comments never reaches this table.
var restrictedGlobals = map[string]restriction{
	// Dynamic code generation.
	"eval":     evalRestriction,
	"Function": evalRestriction,

	// Reflection and dynamic activation.
	"Reflect":    reflectionRestriction,
	"Proxy":      reflectionRestriction,
	"globalThis": reflectionRestriction,
	"require":    reflectionRestriction,

	// File I/O.
	"fs": fileRestriction,

	// Network and sockets.
	"fetch":          networkRestriction,
	"XMLHttpRequest": networkRestriction,
	"WebSocket":      networkRestriction,
	"net":            networkRestriction,
	"http":           networkRestriction,
	"https":          networkRestriction,
	"dns":            networkRestriction,
	"tls":            networkRestriction,

	// Process control and host interop.
	"process":       processRestriction,
	"child_process": processRestriction,
	"os":            processRestriction,

	// Native/unsafe boundary.
	"WebAssembly": unsafeRestriction,
	"Deno":        unsafeRestriction,
	"Bun":         unsafeRestriction,
	"ffi":         unsafeRestriction,

	// Concurrency primitives.
	"Worker":            threadingRestriction,
	"SharedArrayBuffer": threadingRestriction,
	"Atomics":           threadingRestriction,
	"Promise":           threadingRestriction,
	"setTimeout":        threadingRestriction,
	"setInterval":       threadingRestriction,
	"setImmediate":      threadingRestriction,
	"queueMicrotask":    threadingRestriction,
}

// restrictedModules maps require()'d module names to their restriction, so
// require("fs") reports a file violation rather than a generic module one.
var restrictedModules = map[string]restriction{
	"fs":             fileRestriction,
	"path":           fileRestriction,
	"net":            networkRestriction,
	"http":           networkRestriction,
	"https":          networkRestriction,
	"dns":            networkRestriction,
	"tls":            networkRestriction,
	"dgram":          networkRestriction,
	"child_process":  processRestriction,
	"cluster":        processRestriction,
	"process":        processRestriction,
	"os":             processRestriction,
	"worker_threads": threadingRestriction,
	"vm":             reflectionRestriction,
	"module":         reflectionRestriction,
}
