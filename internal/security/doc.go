/*
Package security implements the static validator that inspects script source
against a permission policy before anything runs.

# Overview

Validation parses the source with the goja parser and walks the resulting
syntax tree, so text inside string literals and comments can never trigger a
finding, and every violation points at the line/column of the offending node
in the original source.

Checks, in tree order:

  - restricted global references (fs, fetch, process, Reflect, ...) mapped
    to the capability category that would unlock them
  - module loading via require("..."), resolved per module name
  - dynamic activation (eval, the Function constructor, and any access to a
    "constructor" property, which aliases the Function intrinsic), always
    Critical because code produced at runtime escapes static analysis
    entirely
  - host namespace references (game.*) checked against the policy allowlist
  - concurrency constructs (async/await, generators, Promise, timers,
    workers) gated on the Threading capability
  - heuristic warnings: unconditional loops, labelled statements, with,
    debugger; the runtime timeout is the real backstop for these
  - per-function cyclomatic complexity

# Determinism

Validate is a pure function of (source, policy): violations are collected
over the whole tree and sorted by position, so identical inputs always yield
an identical ValidationResult.
*/
package security
