// Package server provides HTTP server setup for the script sandbox service.
//
// It wires all components together:
//   - HTTP routing with Gin
//   - Middleware stack (request IDs, CORS, rate limiting, metrics, recovery)
//   - The execution sandbox and its policy presets
//   - WebSocket streaming
//   - Prometheus metrics exposure
//
// Server Lifecycle:
//  1. Load configuration from environment
//  2. Initialize logger (production or development)
//  3. Load policy presets (builtin plus optional preset file)
//  4. Build the sandbox and handler set
//  5. Setup HTTP routes and middleware
//  6. Start the HTTP server
//  7. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
