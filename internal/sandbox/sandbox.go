package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/modforge/scriptbox/internal/capability"
	"github.com/modforge/scriptbox/internal/policy"
	"github.com/modforge/scriptbox/internal/security"
	"github.com/modforge/scriptbox/internal/shared/id"
	"github.com/modforge/scriptbox/internal/shared/utils"
)

// ErrNilPolicy reports caller misuse: Execute was handed a nil policy.
var ErrNilPolicy = errors.New("sandbox: execute called with nil permission policy")

// interruptReason is the value handed to the interpreter interrupt, so the
// terminal state can be recovered from the interruption error.
type interruptReason string

const (
	reasonTimeout  interruptReason = "timeout"
	reasonMemory   interruptReason = "memory"
	reasonCanceled interruptReason = "canceled"
)

// Sandbox validates, compiles and runs untrusted scripts. It is safe for
// concurrent use; every Execute call owns its own interpreter, cancellation
// signal and monitor.
type Sandbox struct {
	validator    *security.Validator
	logger       *zap.Logger
	store        capability.Store
	clock        *capability.Clock
	consoleLimit int
}

// Option customizes a Sandbox.
type Option func(*Sandbox)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sandbox) { s.logger = logger }
}

// WithValidator replaces the default validator.
func WithValidator(v *security.Validator) Option {
	return func(s *Sandbox) { s.validator = v }
}

// WithStore sets the shared game-state store scripts see through their
// namespace allowlist.
func WithStore(store capability.Store) Option {
	return func(s *Sandbox) { s.store = store }
}

// WithClock sets the host clock exposed to scripts.
func WithClock(c *capability.Clock) Option {
	return func(s *Sandbox) { s.clock = c }
}

// WithConsoleLimit caps captured console entries per execution.
func WithConsoleLimit(n int) Option {
	return func(s *Sandbox) { s.consoleLimit = n }
}

// New creates a sandbox with an in-memory state store and a no-op logger.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		validator: security.NewValidator(),
		logger:    zap.NewNop(),
		store:     capability.NewMemoryStore(),
		clock:     capability.NewClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes one execution.
type Request struct {
	// Source is the raw script text. With an empty EntryPoint it is run
	// as a function body and its completion value is the result.
	Source string

	// EntryPoint names a function the source must define; it is resolved
	// after the program runs and called with Args.
	EntryPoint string
	Args       []interface{}

	Policy *policy.PermissionPolicy

	// Seed makes Math.random reproducible when the random capability is
	// granted; 0 picks a time-derived seed.
	Seed int64

	// Observer, when set, receives each security event as it is recorded.
	Observer func(event string)
}

// Validate runs only the static validator, for callers that want the
// intermediate result without executing anything.
func (s *Sandbox) Validate(source string, pol *policy.PermissionPolicy) *security.ValidationResult {
	return s.validator.Validate(source, pol)
}

// Execute runs one script under the request's policy. Script failures of
// every kind are reported inside the ExecutionResult; the error return is
// reserved for caller misuse and host faults.
func (s *Sandbox) Execute(ctx context.Context, req Request) (*ExecutionResult, error) {
	if req.Policy == nil {
		return nil, ErrNilPolicy
	}

	execID := id.NewExecutionID()
	start := time.Now()
	res := &ExecutionResult{
		ExecutionID: execID,
		ScriptID:    req.Policy.ScriptID(),
	}
	log := s.logger.With(
		zap.String("execution_id", execID.String()),
		zap.String("script_id", req.Policy.ScriptID()),
		zap.String("source_hash", utils.ShortFingerprint(req.Source)),
	)
	event := func(msg string) {
		res.SecurityEvents = append(res.SecurityEvents, msg)
		if req.Observer != nil {
			req.Observer(msg)
		}
		log.Debug(msg)
	}

	vr := s.validator.Validate(req.Source, req.Policy)
	if vr.HasErrors() {
		event("validation rejected: " + vr.Summary())
		res.Err = &ExecError{
			Kind:       ErrValidationRejected,
			Message:    "static validation rejected the script: " + vr.Summary(),
			Violations: vr.Violations,
		}
		res.Duration = time.Since(start)
		return res, nil
	}
	event("validation passed: " + vr.Summary())

	src := req.Source
	if req.EntryPoint == "" {
		// Run the source as a strict function body so top-level return
		// works, its completion value becomes the result, and `this`
		// never resolves to the global object.
		src = "(function() { \"use strict\";\n" + req.Source + "\n})()"
	}
	prog, err := goja.Compile("script.js", src, false)
	if err != nil {
		event("compilation failed")
		res.Err = &ExecError{Kind: ErrCompilationFailed, Message: err.Error()}
		res.Duration = time.Since(start)
		return res, nil
	}
	event("compilation succeeded")

	console := capability.NewConsole(s.consoleLimit)
	reg := capability.NewRegistry(
		console,
		capability.NewRandom(req.Seed),
		s.clock,
		capability.NewStateView(s.store),
	)
	vm, err := newRuntime(req.Policy, reg)
	if err != nil {
		return nil, fmt.Errorf("build runtime: %w", err)
	}

	monitor := newMemoryMonitor(req.Policy.MaxMemoryBytes())
	timer := time.NewTimer(req.Policy.Timeout())
	defer timer.Stop()

	done := make(chan struct{})
	var value goja.Value
	var runErr error
	event("execution started")
	go func() {
		defer close(done)
		value, runErr = runProgram(vm, prog, req)
	}()

	watchdog := make(chan struct{})
	go func() {
		defer close(watchdog)
		select {
		case <-timer.C:
			vm.Interrupt(reasonTimeout)
		case <-monitor.Exceeded():
			vm.Interrupt(reasonMemory)
		case <-ctx.Done():
			vm.Interrupt(reasonCanceled)
		case <-done:
		}
	}()

	<-done
	<-watchdog
	monitor.Stop()

	res.MemoryUsed = monitor.Peak()
	res.Console = console.Entries()
	res.ConsoleTruncated = console.Truncated()
	s.classify(res, req.Policy, value, runErr, event)
	res.Duration = time.Since(start)

	log.Info("execution finished",
		zap.Bool("success", res.Success),
		zap.Duration("duration", res.Duration),
		zap.Int64("memory_used", res.MemoryUsed),
	)
	return res, nil
}

// runProgram evaluates the program and, when requested, calls the named
// entry point with the supplied arguments.
func runProgram(vm *goja.Runtime, prog *goja.Program, req Request) (goja.Value, error) {
	value, err := vm.RunProgram(prog)
	if err != nil || req.EntryPoint == "" {
		return value, err
	}
	fn, ok := goja.AssertFunction(vm.Get(req.EntryPoint))
	if !ok {
		return nil, fmt.Errorf("entry point %q is not defined as a function", req.EntryPoint)
	}
	args := make([]goja.Value, len(req.Args))
	for i, a := range req.Args {
		args[i] = vm.ToValue(a)
	}
	return fn(goja.Undefined(), args...)
}

// classify maps the run outcome onto exactly one terminal state.
func (s *Sandbox) classify(res *ExecutionResult, pol *policy.PermissionPolicy, value goja.Value, runErr error, event func(string)) {
	switch e := runErr.(type) {
	case nil:
		res.Success = true
		if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
			res.Value = value.Export()
		}
		event("execution completed")

	case *goja.InterruptedError:
		reason, _ := e.Value().(interruptReason)
		if reason == reasonMemory {
			res.MemoryLimitExceeded = true
			res.Err = &ExecError{
				Kind: ErrMemoryLimitExceeded,
				Message: fmt.Sprintf("memory use exceeded the %d byte limit",
					pol.MaxMemoryBytes()),
			}
			event("memory limit exceeded")
			return
		}
		res.TimedOut = true
		msg := fmt.Sprintf("execution exceeded its %s time budget", pol.Timeout())
		if reason == reasonCanceled {
			msg = "execution canceled by the caller"
		}
		res.Err = &ExecError{Kind: ErrTimeout, Message: msg}
		event("execution timed out")

	case *goja.Exception:
		res.Err = &ExecError{Kind: ErrRuntimeFault, Message: e.Value().String()}
		event("execution faulted")

	default:
		res.Err = &ExecError{Kind: ErrRuntimeFault, Message: runErr.Error()}
		event("execution faulted")
	}
}
