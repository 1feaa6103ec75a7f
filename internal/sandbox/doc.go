// Package sandbox turns untrusted script source into a bounded execution
// and a structured result.
//
// Each Execute call is an independent unit of work: validate against the
// permission policy, compile, then run on a fresh interpreter under a
// timeout race and memory sampling. Script failures of every kind come back
// as a non-error ExecutionResult; an error return always means caller
// misuse, never untrusted-script behavior.
package sandbox
