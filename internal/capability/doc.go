// Package capability provides the host APIs that can be injected into a
// script runtime, gated by the permission policy.
//
// Each injector owns one API category. The registry applies only the
// injectors whose category the policy grants, so a script's global surface
// is exactly its capability set: console logging, deterministic random,
// a host clock, and a namespace-filtered view of shared game state.
package capability
