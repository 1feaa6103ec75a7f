// Package main is the entry point for the scriptbox server.
//
// The server wraps the execution sandbox in an HTTP and WebSocket surface:
// untrusted scripts arrive over REST or a streaming connection, are
// statically validated against a permission policy, and run in an isolated
// interpreter with time and memory budgets enforced.
//
// The server provides:
//   - REST API for validation, execution, policy presets and stats
//   - WebSocket streaming of per-execution security events
//   - Prometheus metrics on /metrics
//   - Rate limiting and permissive CORS for development
//
// Configuration comes from environment variables (12-factor); see the
// config package for the full list and defaults.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
