/*
Package policy defines the declarative permission contract for one script
execution context.

# Overview

A PermissionPolicy describes everything a script is allowed to do before it
runs: which API categories it may call into, which host namespaces it may
reference, and the wall-clock and memory budget of a single execution.
Policies are deny-by-default: a capability or namespace that is not
explicitly granted does not exist as far as the script is concerned.

# Immutability

Policies are built once through Builder and never mutated afterwards. All
accessors return copies, so one policy instance is safe to share across any
number of concurrent executions.

# Presets

Hosts that load mods from configuration can declare permission tiers in a
YAML preset file (see LoadPresetFile) instead of building policies in code.
*/
package policy
