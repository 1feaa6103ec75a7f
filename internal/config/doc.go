// Package config provides 12-factor configuration for the script sandbox
// service.
//
// Configuration is loaded from environment variables with sensible defaults.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, shutdown grace)
//   - Sandbox: execution defaults (timeout, memory ceiling, console limit)
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT
//   - SANDBOX_TIMEOUT, SANDBOX_MAX_MEMORY, SANDBOX_CONSOLE_LIMIT,
//     SANDBOX_MAX_SOURCE_BYTES, SANDBOX_COMPLEXITY_THRESHOLD, PRESET_FILE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
